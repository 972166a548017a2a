package transport

import (
	"encoding/binary"
	"fmt"
	"io"

	lerrors "github.com/grovetools/sessionlink/errors"
)

// MaxFrameSize bounds a native messaging frame in both directions.
const MaxFrameSize = 1024 * 1024

// WriteFrame writes data prefixed with its little-endian uint32 length.
func WriteFrame(w io.Writer, data []byte) error {
	if len(data) > MaxFrameSize {
		return frameTooLarge(len(data))
	}
	var head [4]byte
	binary.LittleEndian.PutUint32(head[:], uint32(len(data)))
	if _, err := w.Write(head[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// ReadFrame reads one length-prefixed frame. A clean end of stream before the
// header yields io.EOF; a truncated frame yields io.ErrUnexpectedEOF.
func ReadFrame(r io.Reader) ([]byte, error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(head[:])
	if size > MaxFrameSize {
		return nil, frameTooLarge(int(size))
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return data, nil
}

func frameTooLarge(size int) error {
	return lerrors.New(lerrors.ErrCodeInvalidMessage, fmt.Sprintf("frame of %d bytes exceeds %d", size, MaxFrameSize)).
		WithDetail("size", size)
}
