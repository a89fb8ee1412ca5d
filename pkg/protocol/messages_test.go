package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginRequestMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  LoginRequestMessage
	}{
		{
			name: "credentials",
			msg:  LoginRequestMessage{Kind: LoginWithCredentials, Username: "alice", Password: "secret123"},
		},
		{
			name: "unicode username",
			msg:  LoginRequestMessage{Kind: LoginWithCredentials, Username: "zoë", Password: "hunter22"},
		},
		{
			name: "token",
			msg:  LoginRequestMessage{Kind: LoginWithToken, Token: "abc.def.ghi"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := tt.msg.Encode()
			require.NoError(t, err)

			decoded := &LoginRequestMessage{}
			require.NoError(t, decoded.Decode(payload))
			assert.Equal(t, tt.msg, *decoded)
		})
	}
}

func TestLoginRequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		msg     LoginRequestMessage
		wantErr error
	}{
		{"short username", LoginRequestMessage{Username: "al", Password: "secret123"}, ErrNameTooShort},
		{"long username", LoginRequestMessage{Username: strings.Repeat("a", 21), Password: "secret123"}, ErrNameTooLong},
		{"short password", LoginRequestMessage{Username: "alice", Password: "12345"}, ErrPasswordTooShort},
		{"missing token", LoginRequestMessage{Kind: LoginWithToken}, ErrMissingToken},
		{"unknown kind", LoginRequestMessage{Kind: 7, Token: "t"}, ErrInvalidLoginKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.msg.Encode()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegistrationMessage(t *testing.T) {
	msg := &RegistrationMessage{Username: "newbie", Password: "password1"}
	payload, err := msg.Encode()
	require.NoError(t, err)

	decoded := &RegistrationMessage{}
	require.NoError(t, decoded.Decode(payload))
	assert.Equal(t, *msg, *decoded)

	_, err = (&RegistrationMessage{Username: "x", Password: "password1"}).Encode()
	assert.ErrorIs(t, err, ErrNameTooShort)
}

func TestCreatePostMessage(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		msg := &CreatePostMessage{Token: "tok", Content: "first!"}
		payload, err := msg.Encode()
		require.NoError(t, err)

		decoded := &CreatePostMessage{}
		require.NoError(t, decoded.Decode(payload))
		assert.Equal(t, *msg, *decoded)
	})

	t.Run("empty content", func(t *testing.T) {
		_, err := (&CreatePostMessage{Token: "tok"}).Encode()
		assert.ErrorIs(t, err, ErrEmptyContent)
	})

	t.Run("content too long", func(t *testing.T) {
		_, err := (&CreatePostMessage{Token: "tok", Content: strings.Repeat("x", MaxContentLength+1)}).Encode()
		assert.ErrorIs(t, err, ErrContentTooLong)
	})

	t.Run("content at limit", func(t *testing.T) {
		_, err := (&CreatePostMessage{Token: "tok", Content: strings.Repeat("x", MaxContentLength)}).Encode()
		assert.NoError(t, err)
	})
}

func TestUserVoteMessage(t *testing.T) {
	for _, vote := range []Vote{VoteNone, VoteUp, VoteDown} {
		msg := &UserVoteMessage{Token: "tok", PostID: 42, Vote: vote}
		payload, err := msg.Encode()
		require.NoError(t, err)

		decoded := &UserVoteMessage{}
		require.NoError(t, decoded.Decode(payload))
		assert.Equal(t, *msg, *decoded)
	}

	_, err := (&UserVoteMessage{Token: "tok", PostID: 1, Vote: 9}).Encode()
	assert.ErrorIs(t, err, ErrInvalidVote)
}

func TestLoginResponseMessage(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		msg := &LoginResponseMessage{
			Success: true,
			Token:   "fresh",
			User:    User{ID: 7, Username: "alice", Karma: -3, Streak: 12},
		}
		payload, err := msg.Encode()
		require.NoError(t, err)

		decoded := &LoginResponseMessage{}
		require.NoError(t, decoded.Decode(payload))
		assert.Equal(t, *msg, *decoded)
	})

	t.Run("rejected", func(t *testing.T) {
		msg := &LoginResponseMessage{Success: false, Error: "invalid credentials"}
		payload, err := msg.Encode()
		require.NoError(t, err)

		decoded := &LoginResponseMessage{}
		err = decoded.Decode(payload)
		var rejected *RejectedError
		require.ErrorAs(t, err, &rejected)
		assert.Equal(t, TypeLogin, rejected.Type)
		assert.Equal(t, "invalid credentials", rejected.Reason)
		assert.False(t, decoded.Success)
		assert.Equal(t, "invalid credentials", decoded.Error)
	})
}

func TestFetchPostsResponseMessage(t *testing.T) {
	msg := &FetchPostsResponseMessage{
		Success: true,
		Token:   "t2",
		Posts: []Post{
			{ID: 1, AuthorID: 3, Author: "carol", Content: "hi", Score: 5, CreatedAt: 1700000000000},
			{ID: 2, AuthorID: 4, Author: "dave", Content: "yo", Score: -1, CreatedAt: 1700000000500},
		},
	}
	payload, err := msg.Encode()
	require.NoError(t, err)

	decoded := &FetchPostsResponseMessage{}
	require.NoError(t, decoded.Decode(payload))
	assert.Equal(t, *msg, *decoded)
}

func TestAckMessage(t *testing.T) {
	for _, msg := range []AckMessage{{Success: true}, {Success: false, Error: "nope"}} {
		payload, err := msg.Encode()
		require.NoError(t, err)

		decoded := &AckMessage{}
		require.NoError(t, decoded.Decode(payload))
		assert.Equal(t, msg, *decoded)
	}
}

func TestBroadcastMessages(t *testing.T) {
	t.Run("invalid posts", func(t *testing.T) {
		msg := &InvalidPostsMessage{PostIDs: []uint64{4, 8, 15}}
		payload, err := msg.Encode()
		require.NoError(t, err)

		decoded := &InvalidPostsMessage{}
		require.NoError(t, decoded.Decode(payload))
		assert.Equal(t, msg.PostIDs, decoded.PostIDs)
	})

	t.Run("new post", func(t *testing.T) {
		msg := &NewPostMessage{Post: Post{ID: 9, Author: "erin", Content: "pushed"}}
		payload, err := msg.Encode()
		require.NoError(t, err)

		decoded := &NewPostMessage{}
		require.NoError(t, decoded.Decode(payload))
		assert.Equal(t, msg.Post, decoded.Post)
	})

	t.Run("update users", func(t *testing.T) {
		msg := &UpdateUsersMessage{Users: []User{{ID: 1, Username: "a", Karma: 10}, {ID: 2, Username: "b", Karma: 20, Streak: 3}}}
		payload, err := msg.Encode()
		require.NoError(t, err)

		decoded := &UpdateUsersMessage{}
		require.NoError(t, decoded.Decode(payload))
		assert.Equal(t, msg.Users, decoded.Users)
	})

	t.Run("error", func(t *testing.T) {
		msg := &ErrorMessage{ErrorCode: 2000, Message: "session expired"}
		payload, err := msg.Encode()
		require.NoError(t, err)

		decoded := &ErrorMessage{}
		require.NoError(t, decoded.Decode(payload))
		assert.Equal(t, *msg, *decoded)
	})
}

func TestMessageTypeString(t *testing.T) {
	assert.Equal(t, "login", TypeLogin.String())
	assert.Equal(t, "update_users", TypeUpdateUsers.String())
	assert.Equal(t, "unrecognized", MessageType(0x42).String())
	assert.True(t, TypeError.IsResponse())
	assert.False(t, TypeRegistration.IsResponse())
	assert.False(t, TypeUnrecognized.IsResponse())
}
