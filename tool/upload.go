package tool

import (
	"context"
	"errors"
	"io"
	"os"
)

const copyBufferSize = 1 << 20

// ctxReader fails reads once its context is done, so long copies stop early.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// CopyFile copies src to a new file at dst. dst must not exist; a partial
// copy is removed.
func CopyFile(ctx context.Context, dst, src string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, err
	}
	n, copyErr := io.CopyBuffer(out, ctxReader{ctx: ctx, r: in}, make([]byte, copyBufferSize))
	if err := errors.Join(copyErr, out.Close()); err != nil {
		_ = os.Remove(dst)
		return n, err
	}
	return n, nil
}
