package protocol

import (
	"encoding/binary"
	"fmt"
)

// peekHeaderSize is the length prefix plus version, type and flags
const peekHeaderSize = 4 + headerSize

// Codec turns typed requests into frames and frames into typed responses.
// It holds no state; the zero value is ready to use.
type Codec struct{}

// ResponseType peeks at the type tag of an encoded frame without decoding the
// payload. It never fails: anything that is not a well-formed frame header for
// a known response tag yields TypeUnrecognized.
func (Codec) ResponseType(data []byte) MessageType {
	t := peekType(data)
	if !t.IsResponse() {
		return TypeUnrecognized
	}
	return t
}

// RequestType peeks at the type tag of an outbound frame. Like ResponseType
// it yields TypeUnrecognized for anything it cannot classify.
func (Codec) RequestType(data []byte) MessageType {
	t := peekType(data)
	if !t.IsResponse() && t != TypeRegistration {
		return TypeUnrecognized
	}
	return t
}

func peekType(data []byte) MessageType {
	if len(data) < peekHeaderSize {
		return TypeUnrecognized
	}
	length := binary.BigEndian.Uint32(data[:4])
	if length < headerSize || length > MaxFrameSize || int(length) != len(data)-4 {
		return TypeUnrecognized
	}
	if data[4] != ProtocolVersion {
		return TypeUnrecognized
	}
	return MessageType(data[5])
}

// WriteLoginCredentials encodes a password login request
func (Codec) WriteLoginCredentials(username, password string) ([]byte, error) {
	return EncodeMessage(TypeLogin, &LoginRequestMessage{
		Kind:     LoginWithCredentials,
		Username: username,
		Password: password,
	})
}

// WriteLoginToken encodes a token refresh login request
func (Codec) WriteLoginToken(token string) ([]byte, error) {
	return EncodeMessage(TypeLogin, &LoginRequestMessage{
		Kind:  LoginWithToken,
		Token: token,
	})
}

// WriteRegistration encodes an account registration request
func (Codec) WriteRegistration(username, password string) ([]byte, error) {
	return EncodeMessage(TypeRegistration, &RegistrationMessage{
		Username: username,
		Password: password,
	})
}

// WriteLogout encodes a logout-by-token request
func (Codec) WriteLogout(token string) ([]byte, error) {
	return EncodeMessage(TypeLogout, &TokenRequestMessage{Token: token})
}

// WriteFetchPosts encodes a request for the full post collection
func (Codec) WriteFetchPosts(token string) ([]byte, error) {
	return EncodeMessage(TypeFetchPosts, &TokenRequestMessage{Token: token})
}

// WriteConnectToChat encodes the request that subscribes this connection to broadcasts
func (Codec) WriteConnectToChat(token string) ([]byte, error) {
	return EncodeMessage(TypeConnectToChat, &TokenRequestMessage{Token: token})
}

// WriteCreatePost encodes a new post
func (Codec) WriteCreatePost(token, content string) ([]byte, error) {
	return EncodeMessage(TypeCreatePost, &CreatePostMessage{Token: token, Content: content})
}

// WriteUserVote encodes a vote on a post
func (Codec) WriteUserVote(token string, postID uint64, vote Vote) ([]byte, error) {
	return EncodeMessage(TypeUserVote, &UserVoteMessage{Token: token, PostID: postID, Vote: vote})
}

// LoginResult is a successful login: the fresh token and the account it belongs to
type LoginResult struct {
	Token string
	User  User
}

// ReadLogin decodes a Login response
func (Codec) ReadLogin(data []byte) (*LoginResult, error) {
	msg := &LoginResponseMessage{}
	if err := decodeAs(data, TypeLogin, msg); err != nil {
		return nil, err
	}
	return &LoginResult{Token: msg.Token, User: msg.User}, nil
}

// ReadLogout decodes a Logout response
func (Codec) ReadLogout(data []byte) error {
	return readAck(data, TypeLogout)
}

// PostsResult is a successful FetchPosts response
type PostsResult struct {
	Token string
	Posts []Post
}

// ReadFetchPosts decodes a FetchPosts response
func (Codec) ReadFetchPosts(data []byte) (*PostsResult, error) {
	msg := &FetchPostsResponseMessage{}
	if err := decodeAs(data, TypeFetchPosts, msg); err != nil {
		return nil, err
	}
	return &PostsResult{Token: msg.Token, Posts: msg.Posts}, nil
}

// PostResult is a successful CreatePost response
type PostResult struct {
	Token string
	Post  Post
}

// ReadCreatePost decodes a CreatePost response
func (Codec) ReadCreatePost(data []byte) (*PostResult, error) {
	msg := &CreatePostResponseMessage{}
	if err := decodeAs(data, TypeCreatePost, msg); err != nil {
		return nil, err
	}
	return &PostResult{Token: msg.Token, Post: msg.Post}, nil
}

// ReadUserVote decodes a UserVote response and returns the rotated token
func (Codec) ReadUserVote(data []byte) (string, error) {
	msg := &UserVoteResponseMessage{}
	if err := decodeAs(data, TypeUserVote, msg); err != nil {
		return "", err
	}
	return msg.Token, nil
}

// ReadInvalidPosts decodes the ids of posts to drop
func (Codec) ReadInvalidPosts(data []byte) ([]uint64, error) {
	msg := &InvalidPostsMessage{}
	if err := decodeAs(data, TypeInvalidPosts, msg); err != nil {
		return nil, err
	}
	return msg.PostIDs, nil
}

// ReadNewPost decodes a pushed post
func (Codec) ReadNewPost(data []byte) (*Post, error) {
	msg := &NewPostMessage{}
	if err := decodeAs(data, TypeNewPost, msg); err != nil {
		return nil, err
	}
	return &msg.Post, nil
}

// ReadUpdateUsers decodes a batch of updated user profiles
func (Codec) ReadUpdateUsers(data []byte) ([]User, error) {
	msg := &UpdateUsersMessage{}
	if err := decodeAs(data, TypeUpdateUsers, msg); err != nil {
		return nil, err
	}
	return msg.Users, nil
}

// ReadConnectToChat decodes a ConnectToChat response
func (Codec) ReadConnectToChat(data []byte) error {
	return readAck(data, TypeConnectToChat)
}

// ReadError decodes a generic error frame
func (Codec) ReadError(data []byte) (*ErrorMessage, error) {
	msg := &ErrorMessage{}
	if err := decodeAs(data, TypeError, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func readAck(data []byte, t MessageType) error {
	msg := &AckMessage{}
	if err := decodeAs(data, t, msg); err != nil {
		return err
	}
	if !msg.Success {
		return &RejectedError{Type: t, Reason: msg.Error}
	}
	return nil
}

func decodeAs(data []byte, want MessageType, msg ProtocolMessage) error {
	frame, err := DecodeMessage(data)
	if err != nil {
		return fmt.Errorf("decode %s frame: %w", want, err)
	}
	if frame.Type != want {
		return fmt.Errorf("%w: got %s, want %s", ErrUnexpectedType, frame.Type, want)
	}
	return msg.Decode(frame.Payload)
}
