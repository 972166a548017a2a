package transport

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	lerrors "github.com/grovetools/sessionlink/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("hello")))

	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(buf.Bytes()[:4]))
	assert.Equal(t, "hello", buf.String()[4:])
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("test message")))
	require.NoError(t, WriteFrame(&buf, []byte{}))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, "test message", string(got))

	got, err = ReadFrame(&buf)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ReadFrame(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameTooLarge(t *testing.T) {
	err := WriteFrame(io.Discard, make([]byte, MaxFrameSize+1))
	assert.True(t, lerrors.Is(err, lerrors.ErrCodeInvalidMessage))

	var head [4]byte
	binary.LittleEndian.PutUint32(head[:], MaxFrameSize+1)
	_, err = ReadFrame(bytes.NewReader(head[:]))
	assert.True(t, lerrors.Is(err, lerrors.ErrCodeInvalidMessage))

	require.NoError(t, WriteFrame(io.Discard, make([]byte, MaxFrameSize)))
}

func TestReadFrameTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("truncated")))
	data := buf.Bytes()[:8]

	_, err := ReadFrame(bytes.NewReader(data))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = ReadFrame(bytes.NewReader([]byte{1, 0}))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
