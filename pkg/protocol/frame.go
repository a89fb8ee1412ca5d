package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/pierrec/lz4/v4"
)

const (
	// MaxFrameSize is the maximum allowed frame size (1 MB)
	MaxFrameSize = 1024 * 1024

	// ProtocolVersion is the current protocol version
	ProtocolVersion = 1

	// CompressionThreshold is the minimum payload size to consider compression (512 bytes)
	CompressionThreshold = 512
)

// Flag constants
const (
	FlagCompressed = 0x01 // Bit 0: compression
)

var (
	ErrFrameTooLarge        = errors.New("frame exceeds maximum size (1 MB)")
	ErrInvalidVersion       = errors.New("invalid protocol version")
	ErrInvalidFrameLength   = errors.New("invalid frame length")
	ErrDecompressionFailed  = errors.New("decompression failed")
	ErrInvalidCompressedLen = errors.New("invalid compressed payload length")
)

// headerSize is the fixed part of a frame after the length prefix:
// version, type and flags
const headerSize = 3

// Frame is one protocol message on the wire:
// [length u32 BE][version u8][type u8][flags u8][payload]
// where length counts everything after itself.
type Frame struct {
	Version uint8
	Type    MessageType
	Flags   uint8
	Payload []byte
}

// CompressPayload LZ4-compresses data behind a 4-byte big-endian original size.
// The bool is false, and data is returned untouched, when compression would
// not make the payload smaller.
func CompressPayload(data []byte) ([]byte, bool) {
	if len(data) == 0 {
		return data, false
	}

	out := make([]byte, 4+lz4.CompressBlockBound(len(data)))
	binary.BigEndian.PutUint32(out, uint32(len(data)))

	n, err := lz4.CompressBlock(data, out[4:], nil)
	if err != nil || n == 0 || 4+n >= len(data) {
		return data, false
	}
	return out[:4+n], true
}

// DecompressPayload reverses CompressPayload. The declared size is capped at
// MaxFrameSize before anything is allocated.
func DecompressPayload(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, ErrInvalidCompressedLen
	}

	size := binary.BigEndian.Uint32(data)
	if size > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	out := make([]byte, size)
	n, err := lz4.UncompressBlock(data[4:], out)
	if err != nil || n != int(size) {
		return nil, ErrDecompressionFailed
	}
	return out, nil
}

// EncodeFrame writes a frame to the writer, compressing payloads of at least
// CompressionThreshold bytes when LZ4 actually makes them smaller.
func EncodeFrame(w io.Writer, f *Frame) error {
	payload := f.Payload
	flags := f.Flags

	if len(payload) >= CompressionThreshold && flags&FlagCompressed == 0 {
		compressed, wasCompressed := CompressPayload(payload)
		if wasCompressed {
			payload = compressed
			flags |= FlagCompressed
		}
	}

	// The length prefix does not count itself
	length := uint32(headerSize + len(payload))
	if length > MaxFrameSize {
		return ErrFrameTooLarge
	}

	// Assemble the whole frame first so a websocket writer sees exactly one message
	buf := make([]byte, 0, 4+length)
	buf = binary.BigEndian.AppendUint32(buf, length)
	buf = append(buf, f.Version, byte(f.Type), flags)
	buf = append(buf, payload...)

	if _, err := w.Write(buf); err != nil {
		return err
	}

	// Flush if the writer supports it (e.g., *bufio.Writer)
	type flusher interface {
		Flush() error
	}
	if fl, ok := w.(flusher); ok {
		return fl.Flush()
	}

	return nil
}

// DecodeFrame reads one frame, inflating a compressed payload. The returned
// frame never carries FlagCompressed.
func DecodeFrame(r io.Reader) (*Frame, error) {
	length, err := ReadUint32(r)
	if err != nil {
		return nil, err
	}
	if length > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	if length < headerSize {
		return nil, ErrInvalidFrameLength
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	f := &Frame{
		Version: body[0],
		Type:    MessageType(body[1]),
		Flags:   body[2],
		Payload: body[headerSize:],
	}
	if f.Version != ProtocolVersion {
		return nil, ErrInvalidVersion
	}

	if f.Flags&FlagCompressed != 0 && len(f.Payload) > 0 {
		if f.Payload, err = DecompressPayload(f.Payload); err != nil {
			return nil, err
		}
		f.Flags &^= FlagCompressed
	}
	return f, nil
}

// EncodeMessage encodes a message payload into a complete frame
func EncodeMessage(msgType MessageType, msg ProtocolMessage) ([]byte, error) {
	payload, err := msg.Encode()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := EncodeFrame(&buf, &Frame{Version: ProtocolVersion, Type: msgType, Payload: payload}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeMessage decodes a frame held in a byte slice
func DecodeMessage(data []byte) (*Frame, error) {
	return DecodeFrame(bytes.NewReader(data))
}
