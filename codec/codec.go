// Package codec reads and writes the tagged-element frames exchanged with the
// scanner. A frame is a little-endian element stream that opens with the
// command group length (0000,0000) and the length-to-end (0000,0001) element;
// the latter gives the byte count of the rest of the frame.
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/moyoez/gcomserver-go/types"
)

const (
	elementHeaderSize = 8
	// group length + length-to-end, each a 4 byte UL element
	frameHeaderSize = 2 * (elementHeaderSize + 4)

	DefaultMaxMessageSize = 64 * 1024
	DefaultMaxObjectSize  = 256 * 1024 * 1024

	undefinedLength = 0xffffffff
)

// Codec frames command messages and data objects on a byte stream.
type Codec struct {
	MaxMessageSize uint32
	MaxObjectSize  uint32
}

// New returns a Codec with the default frame size limits.
func New() *Codec {
	return &Codec{
		MaxMessageSize: DefaultMaxMessageSize,
		MaxObjectSize:  DefaultMaxObjectSize,
	}
}

// ReadMessage reads one command message and classifies it.
func (c *Codec) ReadMessage(r io.Reader) (types.Command, types.ElementSet, error) {
	_, elems, err := readFrame(r, c.MaxMessageSize)
	if err != nil {
		return types.CommandUnknown, nil, err
	}
	return Classify(elems), elems, nil
}

// ReadRawObject reads one data object and returns its exact wire bytes along
// with the parsed elements.
func (c *Codec) ReadRawObject(r io.Reader) ([]byte, types.ElementSet, error) {
	return readFrame(r, c.MaxObjectSize)
}

// WriteMessage encodes elems as one frame. cmd names the exchange and only
// appears in errors.
func (c *Codec) WriteMessage(w io.Writer, cmd types.Command, elems types.ElementSet) error {
	frame, err := Encode(elems)
	if err != nil {
		return fmt.Errorf("encode %s reply: %w", cmd, err)
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("%w: write %s reply: %w", types.ErrIO, cmd, err)
	}
	return nil
}

func readFrame(r io.Reader, limit uint32) ([]byte, types.ElementSet, error) {
	header := make([]byte, frameHeaderSize)
	if n, err := io.ReadFull(r, header); err != nil {
		switch {
		case errors.Is(err, io.EOF) && n == 0:
			return nil, nil, types.ErrEndOfInput
		case errors.Is(err, io.ErrUnexpectedEOF):
			return nil, nil, fmt.Errorf("%w: stream ended inside frame header", types.ErrIO)
		default:
			return nil, nil, fmt.Errorf("%w: read frame header: %w", types.ErrIO, err)
		}
	}

	if _, err := headerElement(header[:12], TagGroupLength); err != nil {
		return nil, nil, err
	}
	remaining, err := headerElement(header[12:], TagLengthToEnd)
	if err != nil {
		return nil, nil, err
	}
	if remaining > limit {
		return nil, nil, fmt.Errorf("%w: frame of %d bytes exceeds limit of %d", types.ErrProtocol, remaining, limit)
	}

	raw := make([]byte, frameHeaderSize+int(remaining))
	copy(raw, header)
	if _, err := io.ReadFull(r, raw[frameHeaderSize:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, nil, fmt.Errorf("%w: stream ended inside frame body", types.ErrIO)
		}
		return nil, nil, fmt.Errorf("%w: read frame body: %w", types.ErrIO, err)
	}

	elems, err := parseElements(raw)
	if err != nil {
		return nil, nil, err
	}
	return raw, elems, nil
}

func headerElement(b []byte, want types.Tag) (uint32, error) {
	tag := types.Tag{
		Group:   binary.LittleEndian.Uint16(b[0:2]),
		Element: binary.LittleEndian.Uint16(b[2:4]),
	}
	if tag != want {
		return 0, fmt.Errorf("%w: expected %s at frame start, got %s", types.ErrProtocol, want, tag)
	}
	if n := binary.LittleEndian.Uint32(b[4:8]); n != 4 {
		return 0, fmt.Errorf("%w: %s has length %d, want 4", types.ErrProtocol, want, n)
	}
	return binary.LittleEndian.Uint32(b[8:12]), nil
}

func parseElements(raw []byte) (types.ElementSet, error) {
	var elems types.ElementSet
	for off := 0; off < len(raw); {
		if len(raw)-off < elementHeaderSize {
			return nil, fmt.Errorf("%w: truncated element header at offset %d", types.ErrProtocol, off)
		}
		tag := types.Tag{
			Group:   binary.LittleEndian.Uint16(raw[off : off+2]),
			Element: binary.LittleEndian.Uint16(raw[off+2 : off+4]),
		}
		n := binary.LittleEndian.Uint32(raw[off+4 : off+8])
		off += elementHeaderSize
		if n == undefinedLength {
			return nil, fmt.Errorf("%w: undefined length for %s", types.ErrProtocol, tag)
		}
		if uint64(n) > uint64(len(raw)-off) {
			return nil, fmt.Errorf("%w: %s length %d overruns frame", types.ErrProtocol, tag, n)
		}
		elems = append(elems, types.Element{Tag: tag, Value: raw[off : off+int(n)]})
		off += int(n)
	}
	return elems, nil
}

// Encode serialises elems into a frame. Group length and length-to-end
// elements are computed here; any supplied by the caller are replaced.
func Encode(elems types.ElementSet) ([]byte, error) {
	body := make(types.ElementSet, 0, len(elems))
	for _, e := range elems {
		if e.Tag.Element == 0x0000 || e.Tag == TagLengthToEnd {
			continue
		}
		if uint64(len(e.Value)) >= undefinedLength {
			return nil, fmt.Errorf("element %s too large", e.Tag)
		}
		body = append(body, e)
	}
	slices.SortStableFunc(body, func(a, b types.Element) int {
		if a.Tag.Group != b.Tag.Group {
			return int(a.Tag.Group) - int(b.Tag.Group)
		}
		return int(a.Tag.Element) - int(b.Tag.Element)
	})

	groupLen := make(map[uint16]uint32)
	var groups []uint16
	for _, e := range body {
		if _, ok := groupLen[e.Tag.Group]; !ok {
			groups = append(groups, e.Tag.Group)
		}
		groupLen[e.Tag.Group] += uint32(elementHeaderSize + len(e.Value))
	}
	if _, ok := groupLen[0x0000]; !ok {
		groups = append([]uint16{0x0000}, groups...)
	}

	var buf bytes.Buffer
	for _, g := range groups {
		if g == 0x0000 {
			// group length covers the length-to-end element as well
			writeUL(&buf, TagGroupLength, groupLen[g]+elementHeaderSize+4)
			writeUL(&buf, TagLengthToEnd, 0) // patched below
		} else {
			writeUL(&buf, types.Tag{Group: g, Element: 0x0000}, groupLen[g])
		}
		for _, e := range body {
			if e.Tag.Group == g {
				writeElement(&buf, e)
			}
		}
	}

	frame := buf.Bytes()
	binary.LittleEndian.PutUint32(frame[20:24], uint32(len(frame)-frameHeaderSize))
	return frame, nil
}

func writeUL(buf *bytes.Buffer, tag types.Tag, v uint32) {
	writeElement(buf, types.Element{Tag: tag, Value: U32(v)})
}

func writeElement(buf *bytes.Buffer, e types.Element) {
	var h [elementHeaderSize]byte
	binary.LittleEndian.PutUint16(h[0:2], e.Tag.Group)
	binary.LittleEndian.PutUint16(h[2:4], e.Tag.Element)
	binary.LittleEndian.PutUint32(h[4:8], uint32(len(e.Value)))
	buf.Write(h[:])
	buf.Write(e.Value)
}

// U16 encodes an unsigned short value.
func U16(v uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, v)
}

// U32 encodes an unsigned long value.
func U32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

// Str encodes a text value padded with a space to an even length.
func Str(s string) []byte {
	b := []byte(s)
	if len(b)%2 != 0 {
		b = append(b, ' ')
	}
	return b
}
