package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test decode errors for truncated and malformed payloads

func TestLoginResponseDecodeErrors(t *testing.T) {
	t.Run("invalid payload - empty", func(t *testing.T) {
		err := (&LoginResponseMessage{}).Decode([]byte{})
		assert.Error(t, err)
	})

	t.Run("invalid payload - bad bool", func(t *testing.T) {
		err := (&LoginResponseMessage{}).Decode([]byte{0x02})
		assert.ErrorIs(t, err, ErrInvalidBool)
	})

	t.Run("invalid payload - success without user", func(t *testing.T) {
		// success=true, token "ab", then nothing
		err := (&LoginResponseMessage{}).Decode([]byte{0x01, 0x00, 0x02, 'a', 'b'})
		assert.Error(t, err)
	})

	t.Run("invalid payload - partial string", func(t *testing.T) {
		// String length says 10 bytes but only provide 2
		err := (&LoginResponseMessage{}).Decode([]byte{0x01, 0x00, 0x0A, 0x41, 0x42})
		assert.Error(t, err)
	})
}

func TestSuccessResponsesRequireToken(t *testing.T) {
	msgs := map[string]ProtocolMessage{
		"login":       &LoginResponseMessage{Success: true, User: User{ID: 1, Username: "alice"}},
		"fetch posts": &FetchPostsResponseMessage{Success: true},
		"create post": &CreatePostResponseMessage{Success: true, Post: Post{ID: 1}},
		"user vote":   &UserVoteResponseMessage{Success: true},
	}
	decoders := map[string]ProtocolMessage{
		"login":       &LoginResponseMessage{},
		"fetch posts": &FetchPostsResponseMessage{},
		"create post": &CreatePostResponseMessage{},
		"user vote":   &UserVoteResponseMessage{},
	}

	for name, msg := range msgs {
		t.Run(name, func(t *testing.T) {
			payload, err := msg.Encode()
			assert.NoError(t, err)
			assert.ErrorIs(t, decoders[name].Decode(payload), ErrMissingToken)
		})
	}
}

func TestLoginRequestDecodeErrors(t *testing.T) {
	t.Run("unknown kind", func(t *testing.T) {
		err := (&LoginRequestMessage{}).Decode([]byte{0x05})
		assert.ErrorIs(t, err, ErrInvalidLoginKind)
	})

	t.Run("trailing bytes", func(t *testing.T) {
		err := (&LoginRequestMessage{}).Decode([]byte{0x01, 0x00, 0x01, 'x', 0xFF})
		assert.Error(t, err)
	})
}

func TestInvalidPostsDecodeErrors(t *testing.T) {
	t.Run("missing count", func(t *testing.T) {
		err := (&InvalidPostsMessage{}).Decode([]byte{0x00})
		assert.Error(t, err)
	})

	t.Run("count larger than data", func(t *testing.T) {
		err := (&InvalidPostsMessage{}).Decode([]byte{0x00, 0x00, 0x00, 0x02, 0, 0, 0, 0, 0, 0, 0, 1})
		assert.Error(t, err)
	})

	t.Run("count over limit", func(t *testing.T) {
		err := (&InvalidPostsMessage{}).Decode([]byte{0xFF, 0xFF, 0xFF, 0xFF})
		assert.ErrorIs(t, err, ErrListTooLong)
	})
}

func TestUpdateUsersDecodeErrors(t *testing.T) {
	t.Run("incomplete user", func(t *testing.T) {
		err := (&UpdateUsersMessage{}).Decode([]byte{0x00, 0x00, 0x00, 0x01, 0x00, 0x00})
		assert.Error(t, err)
	})
}

func TestNewPostDecodeErrors(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		err := (&NewPostMessage{}).Decode(nil)
		assert.Error(t, err)
	})
}

func TestUserVoteDecodeErrors(t *testing.T) {
	t.Run("invalid vote", func(t *testing.T) {
		payload := []byte{0x00, 0x01, 't', 0, 0, 0, 0, 0, 0, 0, 1, 0x07}
		err := (&UserVoteMessage{}).Decode(payload)
		assert.ErrorIs(t, err, ErrInvalidVote)
	})
}

func TestReadStringInvalidUTF8(t *testing.T) {
	err := (&TokenRequestMessage{}).Decode([]byte{0x00, 0x02, 0xC3, 0x28})
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}
