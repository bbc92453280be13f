package transfer

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyoez/gcomserver-go/types"
)

type fakeRegistry struct {
	mu      sync.Mutex
	live    map[string]func() types.SessionStatus
	removed []string
}

func (r *fakeRegistry) Add(id string, status func() types.SessionStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live == nil {
		r.live = map[string]func() types.SessionStatus{}
	}
	r.live[id] = status
}

func (r *fakeRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, id)
	r.removed = append(r.removed, id)
}

func (r *fakeRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

func startServer(t *testing.T, opts ServerOptions) (*Server, context.CancelFunc, chan error) {
	t.Helper()
	opts.Addr = "127.0.0.1:0"
	if opts.StagingDir == "" {
		opts.StagingDir = t.TempDir()
	}
	srv := NewServer(opts)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(cancel)
	return srv, cancel, done
}

func TestServerReceivesGroup(t *testing.T) {
	rec := &recorder{}
	reg := &fakeRegistry{}
	srv, cancel, done := startServer(t, ServerOptions{Handler: rec, Registry: reg, AcceptRate: 50})

	client, err := Dial(context.Background(), srv.Addr().String())
	require.NoError(t, err)
	objects := [][]byte{object(t, 1, "first"), object(t, 2, "second"), object(t, 3, "third")}
	require.NoError(t, client.SendGroup(context.Background(), objects))

	assert.Equal(t, 1, reg.count())
	require.NoError(t, client.Close())
	assert.Eventually(t, func() bool { return reg.count() == 0 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.groups, 1)
	assert.Len(t, rec.groups[0].Slots, 3)
	assert.Equal(t, []string{string(objects[0]), string(objects[1]), string(objects[2])}, rec.contents[0])
}

func TestServerBoundsConcurrentSessions(t *testing.T) {
	srv, _, _ := startServer(t, ServerOptions{MaxConnections: 1})

	first, err := Dial(context.Background(), srv.Addr().String())
	require.NoError(t, err)
	require.NoError(t, first.BeginGroup(1))

	second, err := Dial(context.Background(), srv.Addr().String())
	require.NoError(t, err)
	defer second.Close()
	begun := make(chan error, 1)
	go func() { begun <- second.BeginGroup(1) }()

	select {
	case <-begun:
		t.Fatal("second session served while the first holds the only slot")
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, first.Close())
	select {
	case err := <-begun:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("second session never served")
	}
}

func TestServeConnOverStdio(t *testing.T) {
	srv := NewServer(ServerOptions{StagingDir: t.TempDir()})
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	done := make(chan error, 1)
	go func() { done <- srv.ServeConn(context.Background(), StdioConn(inR, outW), "stdio") }()

	client := NewClient(&pipeConn{r: outR, w: inW})
	require.NoError(t, client.SendGroup(context.Background(), [][]byte{object(t, 1, "x")}))
	require.NoError(t, inW.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("stdio session did not finish")
	}
}

type pipeConn struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (c *pipeConn) Read(p []byte) (int, error)  { return c.r.Read(p) }
func (c *pipeConn) Write(p []byte) (int, error) { return c.w.Write(p) }
func (c *pipeConn) Close() error {
	_ = c.r.Close()
	return c.w.Close()
}
