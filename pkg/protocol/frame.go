package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// DefaultMaxFrameBytes is the frame size ceiling applied when no limit is
// configured. Commands are small; results can carry nested projections.
const DefaultMaxFrameBytes = 1 << 20

// ErrFrameTooLarge is returned when an inbound frame exceeds the configured
// maximum. The stream cannot be resynchronized afterwards, so the caller
// should report the error and close the connection.
var ErrFrameTooLarge = errors.New("protocol: frame exceeds maximum size")

// FrameReader reads newline-delimited frames from a stream. A frame split
// across any number of reads is reassembled into exactly one payload;
// multiple frames arriving in one read are returned one at a time.
type FrameReader struct {
	r   *bufio.Reader
	max int
}

// NewFrameReader wraps r with a frame decoder enforcing max payload bytes.
// A max of zero applies DefaultMaxFrameBytes.
func NewFrameReader(r io.Reader, max int) *FrameReader {
	if max <= 0 {
		max = DefaultMaxFrameBytes
	}
	return &FrameReader{r: bufio.NewReader(r), max: max}
}

// ReadFrame returns the next frame payload without its trailing newline.
// A partial frame at end of stream yields io.ErrUnexpectedEOF.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	var frame []byte
	for {
		chunk, err := fr.r.ReadSlice('\n')
		frame = append(frame, chunk...)
		if len(frame) > fr.max+1 {
			return nil, ErrFrameTooLarge
		}
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) && len(frame) > 0 {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	frame = frame[:len(frame)-1]
	return bytes.TrimSuffix(frame, []byte{'\r'}), nil
}

// WriteFrame writes payload as one frame. The payload must be a single JSON
// document; encoding/json never emits raw newlines, so the delimiter is safe.
func WriteFrame(w io.Writer, payload []byte) error {
	_, err := w.Write(append(payload, '\n'))
	return err
}

// EncodeFrame marshals v and returns its framed encoding, for callers that
// assemble writes themselves.
func EncodeFrame(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
