package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEncode(t *testing.T, msgType MessageType, msg ProtocolMessage) []byte {
	t.Helper()
	data, err := EncodeMessage(msgType, msg)
	require.NoError(t, err)
	return data
}

func TestResponseType(t *testing.T) {
	codec := Codec{}

	tests := []struct {
		name string
		data []byte
		want MessageType
	}{
		{"nil", nil, TypeUnrecognized},
		{"too short", []byte{0, 0, 0, 3, 1, 1}, TypeUnrecognized},
		{"length mismatch", []byte{0, 0, 0, 9, 1, 1, 0}, TypeUnrecognized},
		{"wrong version", []byte{0, 0, 0, 3, 9, 1, 0}, TypeUnrecognized},
		{"request-only tag", []byte{0, 0, 0, 3, 1, byte(TypeRegistration), 0}, TypeUnrecognized},
		{"unknown tag", []byte{0, 0, 0, 3, 1, 0x77, 0}, TypeUnrecognized},
		{"garbage payload still peeks", []byte{0, 0, 0, 5, 1, byte(TypeNewPost), 0, 0xDE, 0xAD}, TypeNewPost},
		{"login", mustEncode(t, TypeLogin, &LoginResponseMessage{Success: true, Token: "t"}), TypeLogin},
		{"error", mustEncode(t, TypeError, &ErrorMessage{Message: "x"}), TypeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codec.ResponseType(tt.data))
		})
	}
}

func TestCodecWriteValidation(t *testing.T) {
	codec := Codec{}

	_, err := codec.WriteLoginCredentials("ab", "password")
	assert.ErrorIs(t, err, ErrNameTooShort)

	_, err = codec.WriteRegistration("alice", "123")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = codec.WriteCreatePost("tok", "")
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = codec.WriteLogout("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestCodecRequestTags(t *testing.T) {
	codec := Codec{}

	tests := []struct {
		name  string
		write func() ([]byte, error)
		want  MessageType
	}{
		{"login credentials", func() ([]byte, error) { return codec.WriteLoginCredentials("alice", "secret1") }, TypeLogin},
		{"login token", func() ([]byte, error) { return codec.WriteLoginToken("tok") }, TypeLogin},
		{"registration", func() ([]byte, error) { return codec.WriteRegistration("alice", "secret1") }, TypeRegistration},
		{"logout", func() ([]byte, error) { return codec.WriteLogout("tok") }, TypeLogout},
		{"fetch posts", func() ([]byte, error) { return codec.WriteFetchPosts("tok") }, TypeFetchPosts},
		{"connect to chat", func() ([]byte, error) { return codec.WriteConnectToChat("tok") }, TypeConnectToChat},
		{"create post", func() ([]byte, error) { return codec.WriteCreatePost("tok", "hello") }, TypeCreatePost},
		{"vote", func() ([]byte, error) { return codec.WriteUserVote("tok", 3, VoteUp) }, TypeUserVote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.write()
			require.NoError(t, err)
			frame, err := DecodeMessage(data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, frame.Type)
		})
	}
}

func TestCodecReadResponses(t *testing.T) {
	codec := Codec{}

	t.Run("login", func(t *testing.T) {
		user := User{ID: 1, Username: "alice", Karma: 10}
		data := mustEncode(t, TypeLogin, &LoginResponseMessage{Success: true, Token: "t1", User: user})
		result, err := codec.ReadLogin(data)
		require.NoError(t, err)
		assert.Equal(t, "t1", result.Token)
		assert.Equal(t, user, result.User)
	})

	t.Run("login rejected", func(t *testing.T) {
		data := mustEncode(t, TypeLogin, &LoginResponseMessage{Error: "bad token"})
		result, err := codec.ReadLogin(data)
		assert.Nil(t, result)
		var rejected *RejectedError
		assert.ErrorAs(t, err, &rejected)
	})

	t.Run("wrong tag", func(t *testing.T) {
		data := mustEncode(t, TypeLogout, &AckMessage{Success: true})
		_, err := codec.ReadLogin(data)
		assert.ErrorIs(t, err, ErrUnexpectedType)
	})

	t.Run("logout", func(t *testing.T) {
		assert.NoError(t, codec.ReadLogout(mustEncode(t, TypeLogout, &AckMessage{Success: true})))
		err := codec.ReadLogout(mustEncode(t, TypeLogout, &AckMessage{Error: "no session"}))
		var rejected *RejectedError
		require.ErrorAs(t, err, &rejected)
		assert.Equal(t, "no session", rejected.Reason)
	})

	t.Run("create post", func(t *testing.T) {
		post := Post{ID: 5, Content: "hi"}
		result, err := codec.ReadCreatePost(mustEncode(t, TypeCreatePost, &CreatePostResponseMessage{Success: true, Token: "t3", Post: post}))
		require.NoError(t, err)
		assert.Equal(t, "t3", result.Token)
		assert.Equal(t, post, result.Post)
	})

	t.Run("user vote", func(t *testing.T) {
		token, err := codec.ReadUserVote(mustEncode(t, TypeUserVote, &UserVoteResponseMessage{Success: true, Token: "t4"}))
		require.NoError(t, err)
		assert.Equal(t, "t4", token)
	})

	t.Run("connect to chat", func(t *testing.T) {
		assert.NoError(t, codec.ReadConnectToChat(mustEncode(t, TypeConnectToChat, &AckMessage{Success: true})))
		assert.Error(t, codec.ReadConnectToChat(mustEncode(t, TypeConnectToChat, &AckMessage{Error: "full"})))
	})

	t.Run("error frame", func(t *testing.T) {
		msg, err := codec.ReadError(mustEncode(t, TypeError, &ErrorMessage{ErrorCode: 9000, Message: "boom"}))
		require.NoError(t, err)
		assert.Equal(t, uint16(9000), msg.ErrorCode)
	})

	t.Run("truncated frame", func(t *testing.T) {
		_, err := codec.ReadNewPost([]byte{0, 0, 0, 3, 1})
		assert.Error(t, err)
	})
}

func TestRequestType(t *testing.T) {
	codec := Codec{}

	data, err := codec.WriteRegistration("alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, TypeRegistration, codec.RequestType(data))
	assert.Equal(t, TypeUnrecognized, codec.ResponseType(data))

	data, err = codec.WriteUserVote("tok", 1, VoteDown)
	require.NoError(t, err)
	assert.Equal(t, TypeUserVote, codec.RequestType(data))

	assert.Equal(t, TypeUnrecognized, codec.RequestType([]byte{1, 2}))
}
