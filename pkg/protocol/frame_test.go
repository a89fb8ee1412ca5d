package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFrame(t *testing.T) {
	tests := []struct {
		name    string
		frame   Frame
		wantErr bool
	}{
		{
			name: "valid frame - empty payload",
			frame: Frame{
				Version: 1,
				Type:    TypeFetchPosts,
				Flags:   0,
				Payload: []byte{},
			},
			wantErr: false,
		},
		{
			name: "valid frame - with payload",
			frame: Frame{
				Version: 1,
				Type:    TypeCreatePost,
				Flags:   0,
				Payload: []byte("hello feed"),
			},
			wantErr: false,
		},
		{
			name: "max payload size (1MB)",
			frame: Frame{
				Version: 1,
				Type:    TypeFetchPosts,
				Flags:   FlagCompressed, // Mark as already compressed to skip compression attempt
				Payload: make([]byte, MaxFrameSize-3),
			},
			wantErr: false,
		},
		{
			name: "oversized payload (should fail)",
			frame: Frame{
				Version: 1,
				Type:    TypeFetchPosts,
				Flags:   FlagCompressed,
				Payload: make([]byte, MaxFrameSize), // Too large (exceeds with header)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			err := EncodeFrame(buf, &tt.frame)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, ErrFrameTooLarge, err)
				return
			}
			require.NoError(t, err)

			if tt.frame.Flags&FlagCompressed != 0 {
				// Pre-flagged payloads are not real LZ4 data; only check the header
				data := buf.Bytes()
				assert.Equal(t, byte(tt.frame.Type), data[5])
				assert.Equal(t, 4+headerSize+len(tt.frame.Payload), len(data))
				return
			}

			decoded, err := DecodeFrame(buf)
			require.NoError(t, err)

			assert.Equal(t, tt.frame.Version, decoded.Version)
			assert.Equal(t, tt.frame.Type, decoded.Type)
			assert.Equal(t, tt.frame.Flags, decoded.Flags)
			assert.Equal(t, tt.frame.Payload, decoded.Payload)
		})
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	t.Run("empty buffer", func(t *testing.T) {
		_, err := DecodeFrame(bytes.NewReader([]byte{}))
		assert.Error(t, err)
	})

	t.Run("oversized frame", func(t *testing.T) {
		buf := new(bytes.Buffer)
		WriteUint32(buf, MaxFrameSize+1)

		_, err := DecodeFrame(buf)
		assert.Equal(t, ErrFrameTooLarge, err)
	})

	t.Run("invalid frame length (too small)", func(t *testing.T) {
		buf := new(bytes.Buffer)
		WriteUint32(buf, 2)

		_, err := DecodeFrame(buf)
		assert.Equal(t, ErrInvalidFrameLength, err)
	})

	t.Run("incomplete frame - missing type", func(t *testing.T) {
		buf := new(bytes.Buffer)
		WriteUint32(buf, 3)
		WriteUint8(buf, 1)

		_, err := DecodeFrame(buf)
		assert.Error(t, err)
	})

	t.Run("incomplete frame - missing payload", func(t *testing.T) {
		buf := new(bytes.Buffer)
		WriteUint32(buf, 10)
		WriteUint8(buf, 1)
		WriteUint8(buf, uint8(TypeNewPost))
		WriteUint8(buf, 0)
		buf.Write([]byte("abc"))

		_, err := DecodeFrame(buf)
		assert.Error(t, err)
	})
}

func TestEncodeMessage(t *testing.T) {
	data, err := EncodeMessage(TypeFetchPosts, &TokenRequestMessage{Token: "tok"})
	require.NoError(t, err)

	frame, err := DecodeMessage(data)
	require.NoError(t, err)

	assert.Equal(t, uint8(ProtocolVersion), frame.Version)
	assert.Equal(t, TypeFetchPosts, frame.Type)
	assert.Equal(t, uint8(0), frame.Flags)

	var msg TokenRequestMessage
	require.NoError(t, msg.Decode(frame.Payload))
	assert.Equal(t, "tok", msg.Token)
}

func TestEncodeMessageValidationError(t *testing.T) {
	_, err := EncodeMessage(TypeFetchPosts, &TokenRequestMessage{})
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestFrameStructure(t *testing.T) {
	frame := &Frame{
		Version: 1,
		Type:    TypeCreatePost,
		Flags:   0,
		Payload: []byte("Hello, world!"),
	}

	buf := new(bytes.Buffer)
	require.NoError(t, EncodeFrame(buf, frame))

	data := buf.Bytes()

	// First 4 bytes: length (big-endian)
	length := uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
	assert.Equal(t, uint32(3+len(frame.Payload)), length)
	assert.Equal(t, frame.Version, data[4])
	assert.Equal(t, byte(frame.Type), data[5])
	assert.Equal(t, frame.Flags, data[6])
	assert.Equal(t, frame.Payload, data[7:])
}

type countingWriter struct {
	writes int
	buf    bytes.Buffer
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.writes++
	return w.buf.Write(p)
}

func TestEncodeFrameSingleWrite(t *testing.T) {
	w := &countingWriter{}
	err := EncodeFrame(w, &Frame{Version: 1, Type: TypeNewPost, Payload: []byte("payload")})
	require.NoError(t, err)
	assert.Equal(t, 1, w.writes, "a frame must be one write so it maps to one websocket message")
}

// Compression tests

func TestCompressPayload(t *testing.T) {
	tests := []struct {
		name           string
		input          []byte
		expectCompress bool
	}{
		{
			name:           "empty data",
			input:          []byte{},
			expectCompress: false,
		},
		{
			name:           "small data - no compression benefit",
			input:          []byte("hello"),
			expectCompress: false,
		},
		{
			name:           "highly compressible data",
			input:          bytes.Repeat([]byte("a"), 1000),
			expectCompress: true,
		},
		{
			name:           "repeated pattern",
			input:          bytes.Repeat([]byte("hello world "), 100),
			expectCompress: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compressed, wasCompressed := CompressPayload(tt.input)

			if tt.expectCompress {
				assert.True(t, wasCompressed, "expected compression to succeed")
				assert.Less(t, len(compressed), len(tt.input), "compressed should be smaller")
			}

			if wasCompressed {
				decompressed, err := DecompressPayload(compressed)
				require.NoError(t, err)
				assert.Equal(t, tt.input, decompressed)
			}
		})
	}
}

func TestDecompressPayload(t *testing.T) {
	t.Run("too short data", func(t *testing.T) {
		_, err := DecompressPayload([]byte{0x01, 0x02, 0x03})
		assert.Equal(t, ErrInvalidCompressedLen, err)
	})

	t.Run("invalid compressed data", func(t *testing.T) {
		data := []byte{0x00, 0x00, 0x00, 0x64, 0xFF, 0xFF, 0xFF} // claims 100 bytes uncompressed
		_, err := DecompressPayload(data)
		assert.Equal(t, ErrDecompressionFailed, err)
	})

	t.Run("size exceeds max frame size", func(t *testing.T) {
		data := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0, 0, 0, 0}
		_, err := DecompressPayload(data)
		assert.Equal(t, ErrFrameTooLarge, err)
	})
}

func TestLargePostListIsCompressedOnTheWire(t *testing.T) {
	posts := make([]Post, 50)
	for i := range posts {
		posts[i] = Post{ID: uint64(i + 1), Author: "alice", Content: "the same words again and again"}
	}

	data, err := EncodeMessage(TypeFetchPosts, &FetchPostsResponseMessage{Success: true, Token: "t", Posts: posts})
	require.NoError(t, err)
	assert.Equal(t, uint8(FlagCompressed), data[6]&FlagCompressed)

	result, err := Codec{}.ReadFetchPosts(data)
	require.NoError(t, err)
	assert.Equal(t, posts, result.Posts)
}

func TestDecodeFrameRejectsUnknownVersion(t *testing.T) {
	_, err := DecodeMessage([]byte{0, 0, 0, 3, 9, byte(TypeLogin), 0})
	assert.Equal(t, ErrInvalidVersion, err)
}
