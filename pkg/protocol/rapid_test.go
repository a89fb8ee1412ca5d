package protocol

import (
	"bytes"
	"testing"

	"pgregory.net/rapid"
)

// TestFrameRoundTrip tests that any valid frame can be encoded and decoded
func TestFrameRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		msgType := MessageType(rapid.Byte().Draw(t, "type"))
		// Mask out compression flag - compressed frames require valid LZ4 data
		flags := rapid.Byte().Draw(t, "flags") &^ FlagCompressed
		payloadLen := rapid.IntRange(0, 1024).Draw(t, "payloadLen")
		payload := rapid.SliceOfN(rapid.Byte(), payloadLen, payloadLen).Draw(t, "payload")

		original := &Frame{
			Version: ProtocolVersion,
			Type:    msgType,
			Flags:   flags,
			Payload: payload,
		}

		var buf bytes.Buffer
		if err := EncodeFrame(&buf, original); err != nil {
			t.Fatalf("encode failed: %v", err)
		}

		decoded, err := DecodeFrame(&buf)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}

		if decoded.Type != original.Type {
			t.Fatalf("type mismatch: got %d, want %d", decoded.Type, original.Type)
		}
		if decoded.Flags != original.Flags {
			t.Fatalf("flags mismatch: got %d, want %d", decoded.Flags, original.Flags)
		}
		if !bytes.Equal(decoded.Payload, original.Payload) {
			t.Fatalf("payload mismatch")
		}
	})
}

// TestResponseTypeNeverPanics feeds arbitrary bytes to the tag peek
func TestResponseTypeNeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOf(rapid.Byte()).Draw(t, "data")
		got := Codec{}.ResponseType(data)
		if got != TypeUnrecognized && !got.IsResponse() {
			t.Fatalf("peek returned non-response tag %d", got)
		}
	})
}

// TestDecodersRejectGarbage checks every reader returns an error instead of panicking
func TestDecodersRejectGarbage(t *testing.T) {
	codec := Codec{}
	rapid.Check(t, func(t *rapid.T) {
		msgType := rapid.SampledFrom([]MessageType{
			TypeLogin, TypeLogout, TypeFetchPosts, TypeCreatePost, TypeUserVote,
			TypeInvalidPosts, TypeNewPost, TypeUpdateUsers, TypeConnectToChat, TypeError,
		}).Draw(t, "type")
		payload := rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(t, "payload")

		var buf bytes.Buffer
		if err := EncodeFrame(&buf, &Frame{Version: ProtocolVersion, Type: msgType, Payload: payload}); err != nil {
			t.Fatalf("encode failed: %v", err)
		}
		data := buf.Bytes()

		// Results are irrelevant; decoding arbitrary payloads must not panic
		_, _ = codec.ReadLogin(data)
		_ = codec.ReadLogout(data)
		_, _ = codec.ReadFetchPosts(data)
		_, _ = codec.ReadCreatePost(data)
		_, _ = codec.ReadUserVote(data)
		_, _ = codec.ReadInvalidPosts(data)
		_, _ = codec.ReadNewPost(data)
		_, _ = codec.ReadUpdateUsers(data)
		_ = codec.ReadConnectToChat(data)
		_, _ = codec.ReadError(data)
	})
}

// TestStringRoundTrip tests that any valid string can be encoded and decoded
func TestStringRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		original := rapid.String().Draw(t, "string")

		var buf bytes.Buffer
		if err := WriteString(&buf, original); err != nil {
			t.Fatalf("encode failed: %v", err)
		}

		decoded, err := ReadString(&buf)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if decoded != original {
			t.Fatalf("string mismatch: got %q, want %q", decoded, original)
		}
	})
}

// TestInt64RoundTrip covers negative karma and scores
func TestInt64RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		original := rapid.Int64().Draw(t, "int64")

		var buf bytes.Buffer
		if err := WriteInt64(&buf, original); err != nil {
			t.Fatalf("encode failed: %v", err)
		}
		decoded, err := ReadInt64(&buf)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if decoded != original {
			t.Fatalf("int64 mismatch: got %d, want %d", decoded, original)
		}
	})
}
