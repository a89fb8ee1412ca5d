package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ProtocolMessage interface - all protocol messages must implement this
type ProtocolMessage interface {
	// Encode serializes the message to bytes (convenience wrapper)
	Encode() ([]byte, error)
	// EncodeTo serializes the message directly to a writer (efficient)
	EncodeTo(w io.Writer) error
	// Decode deserializes the message from bytes
	Decode(payload []byte) error
}

// MessageType is the one-byte tag carried in every frame header
type MessageType uint8

// Message type tags. Requests and their responses share a tag; the server
// answers a Registration request with a Login response.
const (
	TypeLogin         MessageType = 0x01
	TypeLogout        MessageType = 0x02
	TypeFetchPosts    MessageType = 0x03
	TypeCreatePost    MessageType = 0x04
	TypeUserVote      MessageType = 0x05
	TypeInvalidPosts  MessageType = 0x06
	TypeNewPost       MessageType = 0x07
	TypeUpdateUsers   MessageType = 0x08
	TypeConnectToChat MessageType = 0x09
	TypeError         MessageType = 0x0A
	TypeRegistration  MessageType = 0x0B

	// TypeUnrecognized is never sent; ResponseType returns it for frames it cannot classify
	TypeUnrecognized MessageType = 0xFF
)

func (t MessageType) String() string {
	switch t {
	case TypeLogin:
		return "login"
	case TypeLogout:
		return "logout"
	case TypeFetchPosts:
		return "fetch_posts"
	case TypeCreatePost:
		return "create_post"
	case TypeUserVote:
		return "user_vote"
	case TypeInvalidPosts:
		return "invalid_posts"
	case TypeNewPost:
		return "new_post"
	case TypeUpdateUsers:
		return "update_users"
	case TypeConnectToChat:
		return "connect_to_chat"
	case TypeError:
		return "error"
	case TypeRegistration:
		return "registration"
	default:
		return "unrecognized"
	}
}

// IsResponse reports whether a server may send frames with this tag
func (t MessageType) IsResponse() bool {
	return t >= TypeLogin && t <= TypeError
}

// Validation limits applied before anything is sent
const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
	MinPasswordLength = 6
	MaxContentLength  = 4096
	MaxListLength     = 100000
)

var (
	ErrNameTooShort     = errors.New("username must be at least 3 characters")
	ErrNameTooLong      = errors.New("username must be at most 20 characters")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrEmptyContent     = errors.New("post content cannot be empty")
	ErrContentTooLong   = errors.New("post content exceeds maximum length (4096 bytes)")
	ErrMissingToken     = errors.New("session token is required")
	ErrInvalidVote      = errors.New("invalid vote value")
	ErrInvalidLoginKind = errors.New("invalid login kind")
	ErrListTooLong      = errors.New("list exceeds maximum length")
	ErrUnexpectedType   = errors.New("unexpected message type")
)

// RejectedError is a well-formed response in which the server reported failure
type RejectedError struct {
	Type   MessageType
	Reason string
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s rejected by server", e.Type)
	}
	return fmt.Sprintf("%s rejected by server: %s", e.Type, e.Reason)
}

// Vote is a user's opinion of a post
type Vote uint8

const (
	VoteNone Vote = 0
	VoteUp   Vote = 1
	VoteDown Vote = 2
)

func (v Vote) valid() bool {
	return v <= VoteDown
}

// User is the public profile of an account
type User struct {
	ID       uint64
	Username string
	Karma    int64
	Streak   uint32
}

// EncodeTo writes the user fields in wire order
func (u *User) EncodeTo(w io.Writer) error {
	if err := WriteUint64(w, u.ID); err != nil {
		return err
	}
	if err := WriteString(w, u.Username); err != nil {
		return err
	}
	if err := WriteInt64(w, u.Karma); err != nil {
		return err
	}
	return WriteUint32(w, u.Streak)
}

func (u *User) decodeFrom(r io.Reader) error {
	id, err := ReadUint64(r)
	if err != nil {
		return err
	}
	username, err := ReadString(r)
	if err != nil {
		return err
	}
	karma, err := ReadInt64(r)
	if err != nil {
		return err
	}
	streak, err := ReadUint32(r)
	if err != nil {
		return err
	}

	u.ID = id
	u.Username = username
	u.Karma = karma
	u.Streak = streak
	return nil
}

// Post is a single feed entry
type Post struct {
	ID        uint64
	AuthorID  uint64
	Author    string
	Content   string
	Score     int64
	CreatedAt int64 // Unix milliseconds
}

// EncodeTo writes the post fields in wire order
func (p *Post) EncodeTo(w io.Writer) error {
	if err := WriteUint64(w, p.ID); err != nil {
		return err
	}
	if err := WriteUint64(w, p.AuthorID); err != nil {
		return err
	}
	if err := WriteString(w, p.Author); err != nil {
		return err
	}
	if err := WriteString(w, p.Content); err != nil {
		return err
	}
	if err := WriteInt64(w, p.Score); err != nil {
		return err
	}
	return WriteInt64(w, p.CreatedAt)
}

func (p *Post) decodeFrom(r io.Reader) error {
	id, err := ReadUint64(r)
	if err != nil {
		return err
	}
	authorID, err := ReadUint64(r)
	if err != nil {
		return err
	}
	author, err := ReadString(r)
	if err != nil {
		return err
	}
	content, err := ReadString(r)
	if err != nil {
		return err
	}
	score, err := ReadInt64(r)
	if err != nil {
		return err
	}
	createdAt, err := ReadInt64(r)
	if err != nil {
		return err
	}

	p.ID = id
	p.AuthorID = authorID
	p.Author = author
	p.Content = content
	p.Score = score
	p.CreatedAt = createdAt
	return nil
}

func encodeToBytes(m interface{ EncodeTo(io.Writer) error }) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// finish rejects trailing bytes after a complete payload
func finish(r *bytes.Reader) error {
	if r.Len() != 0 {
		return fmt.Errorf("%d trailing bytes after payload", r.Len())
	}
	return nil
}

// ValidateCredentials applies the username and password rules for login and registration
func ValidateCredentials(username, password string) error {
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength {
		return ErrNameTooShort
	}
	if n > MaxUsernameLength {
		return ErrNameTooLong
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// ValidateContent checks post content is non-empty and within MaxContentLength bytes
func ValidateContent(content string) error {
	if len(content) == 0 {
		return ErrEmptyContent
	}
	if len(content) > MaxContentLength {
		return ErrContentTooLong
	}
	return nil
}

// ===== Requests (client -> server) =====

// LoginKind selects between password and token login
type LoginKind uint8

const (
	LoginWithCredentials LoginKind = 0
	LoginWithToken       LoginKind = 1
)

// LoginRequestMessage (0x01) - Authenticate with credentials or a session token
type LoginRequestMessage struct {
	Kind     LoginKind
	Username string // credentials only
	Password string // credentials only
	Token    string // token only
}

func (m *LoginRequestMessage) EncodeTo(w io.Writer) error {
	switch m.Kind {
	case LoginWithCredentials:
		if err := ValidateCredentials(m.Username, m.Password); err != nil {
			return err
		}
		if err := WriteUint8(w, uint8(m.Kind)); err != nil {
			return err
		}
		if err := WriteString(w, m.Username); err != nil {
			return err
		}
		return WriteString(w, m.Password)
	case LoginWithToken:
		if m.Token == "" {
			return ErrMissingToken
		}
		if err := WriteUint8(w, uint8(m.Kind)); err != nil {
			return err
		}
		return WriteString(w, m.Token)
	default:
		return ErrInvalidLoginKind
	}
}

func (m *LoginRequestMessage) Encode() ([]byte, error) {
	return encodeToBytes(m)
}

func (m *LoginRequestMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	kind, err := ReadUint8(buf)
	if err != nil {
		return err
	}

	switch LoginKind(kind) {
	case LoginWithCredentials:
		username, err := ReadString(buf)
		if err != nil {
			return err
		}
		password, err := ReadString(buf)
		if err != nil {
			return err
		}
		m.Username = username
		m.Password = password
	case LoginWithToken:
		token, err := ReadString(buf)
		if err != nil {
			return err
		}
		m.Token = token
	default:
		return ErrInvalidLoginKind
	}

	m.Kind = LoginKind(kind)
	return finish(buf)
}

// RegistrationMessage (0x0B) - Create an account and log in
type RegistrationMessage struct {
	Username string
	Password string
}

func (m *RegistrationMessage) EncodeTo(w io.Writer) error {
	if err := ValidateCredentials(m.Username, m.Password); err != nil {
		return err
	}
	if err := WriteString(w, m.Username); err != nil {
		return err
	}
	return WriteString(w, m.Password)
}

func (m *RegistrationMessage) Encode() ([]byte, error) {
	return encodeToBytes(m)
}

func (m *RegistrationMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	username, err := ReadString(buf)
	if err != nil {
		return err
	}
	password, err := ReadString(buf)
	if err != nil {
		return err
	}

	m.Username = username
	m.Password = password
	return finish(buf)
}

// TokenRequestMessage carries only a session token. It is the payload of
// Logout (0x02), FetchPosts (0x03) and ConnectToChat (0x09) requests.
type TokenRequestMessage struct {
	Token string
}

func (m *TokenRequestMessage) EncodeTo(w io.Writer) error {
	if m.Token == "" {
		return ErrMissingToken
	}
	return WriteString(w, m.Token)
}

func (m *TokenRequestMessage) Encode() ([]byte, error) {
	return encodeToBytes(m)
}

func (m *TokenRequestMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	token, err := ReadString(buf)
	if err != nil {
		return err
	}
	m.Token = token
	return finish(buf)
}

// CreatePostMessage (0x04) - Publish a new post
type CreatePostMessage struct {
	Token   string
	Content string
}

func (m *CreatePostMessage) EncodeTo(w io.Writer) error {
	if m.Token == "" {
		return ErrMissingToken
	}
	if err := ValidateContent(m.Content); err != nil {
		return err
	}
	if err := WriteString(w, m.Token); err != nil {
		return err
	}
	return WriteString(w, m.Content)
}

func (m *CreatePostMessage) Encode() ([]byte, error) {
	return encodeToBytes(m)
}

func (m *CreatePostMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	token, err := ReadString(buf)
	if err != nil {
		return err
	}
	content, err := ReadString(buf)
	if err != nil {
		return err
	}

	m.Token = token
	m.Content = content
	return finish(buf)
}

// UserVoteMessage (0x05) - Vote on a post
type UserVoteMessage struct {
	Token  string
	PostID uint64
	Vote   Vote
}

func (m *UserVoteMessage) EncodeTo(w io.Writer) error {
	if m.Token == "" {
		return ErrMissingToken
	}
	if !m.Vote.valid() {
		return ErrInvalidVote
	}
	if err := WriteString(w, m.Token); err != nil {
		return err
	}
	if err := WriteUint64(w, m.PostID); err != nil {
		return err
	}
	return WriteUint8(w, uint8(m.Vote))
}

func (m *UserVoteMessage) Encode() ([]byte, error) {
	return encodeToBytes(m)
}

func (m *UserVoteMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	token, err := ReadString(buf)
	if err != nil {
		return err
	}
	postID, err := ReadUint64(buf)
	if err != nil {
		return err
	}
	vote, err := ReadUint8(buf)
	if err != nil {
		return err
	}
	if !Vote(vote).valid() {
		return ErrInvalidVote
	}

	m.Token = token
	m.PostID = postID
	m.Vote = Vote(vote)
	return finish(buf)
}

// ===== Responses (server -> client) =====

// readOutcome reads the leading success flag. On failure it also reads the
// reason string and returns it as a *RejectedError.
func readOutcome(r *bytes.Reader, t MessageType) error {
	success, err := ReadBool(r)
	if err != nil {
		return err
	}
	if success {
		return nil
	}
	reason, err := ReadString(r)
	if err != nil {
		return err
	}
	return &RejectedError{Type: t, Reason: reason}
}

func writeOutcome(w io.Writer, success bool, reason string) error {
	if err := WriteBool(w, success); err != nil {
		return err
	}
	if success {
		return nil
	}
	return WriteString(w, reason)
}

// LoginResponseMessage (0x01) - Result of a login, token refresh or registration
type LoginResponseMessage struct {
	Success bool
	Token   string // Only present if success=true
	User    User   // Only present if success=true
	Error   string // Only present if success=false
}

func (m *LoginResponseMessage) EncodeTo(w io.Writer) error {
	if err := writeOutcome(w, m.Success, m.Error); err != nil {
		return err
	}
	if !m.Success {
		return nil
	}
	if err := WriteString(w, m.Token); err != nil {
		return err
	}
	return m.User.EncodeTo(w)
}

func (m *LoginResponseMessage) Encode() ([]byte, error) {
	return encodeToBytes(m)
}

// Decode returns a *RejectedError (with the message fields populated) when
// the server reported failure
func (m *LoginResponseMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	if err := readOutcome(buf, TypeLogin); err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			m.Success = false
			m.Error = rejected.Reason
		}
		return err
	}
	token, err := readToken(buf)
	if err != nil {
		return err
	}
	if err := m.User.decodeFrom(buf); err != nil {
		return err
	}

	m.Success = true
	m.Token = token
	return finish(buf)
}

// AckMessage is a bare success/failure response. It is the payload of
// Logout (0x02) and ConnectToChat (0x09) responses.
type AckMessage struct {
	Success bool
	Error   string
}

func (m *AckMessage) EncodeTo(w io.Writer) error {
	return writeOutcome(w, m.Success, m.Error)
}

func (m *AckMessage) Encode() ([]byte, error) {
	return encodeToBytes(m)
}

func (m *AckMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	success, err := ReadBool(buf)
	if err != nil {
		return err
	}
	if !success {
		reason, err := ReadString(buf)
		if err != nil {
			return err
		}
		m.Error = reason
	}
	m.Success = success
	return finish(buf)
}

// FetchPostsResponseMessage (0x03) - The full post collection
type FetchPostsResponseMessage struct {
	Success bool
	Token   string
	Posts   []Post
	Error   string
}

func (m *FetchPostsResponseMessage) EncodeTo(w io.Writer) error {
	if err := writeOutcome(w, m.Success, m.Error); err != nil {
		return err
	}
	if !m.Success {
		return nil
	}
	if err := WriteString(w, m.Token); err != nil {
		return err
	}
	if len(m.Posts) > MaxListLength {
		return ErrListTooLong
	}
	if err := WriteUint32(w, uint32(len(m.Posts))); err != nil {
		return err
	}
	for i := range m.Posts {
		if err := m.Posts[i].EncodeTo(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *FetchPostsResponseMessage) Encode() ([]byte, error) {
	return encodeToBytes(m)
}

func (m *FetchPostsResponseMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	if err := readOutcome(buf, TypeFetchPosts); err != nil {
		return err
	}
	token, err := readToken(buf)
	if err != nil {
		return err
	}
	posts, err := readPosts(buf)
	if err != nil {
		return err
	}

	m.Success = true
	m.Token = token
	m.Posts = posts
	return finish(buf)
}

// readToken reads the rotated token a successful response must carry
func readToken(r *bytes.Reader) (string, error) {
	token, err := ReadString(r)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

func readPosts(r *bytes.Reader) ([]Post, error) {
	count, err := ReadUint32(r)
	if err != nil {
		return nil, err
	}
	if count > MaxListLength {
		return nil, ErrListTooLong
	}
	posts := make([]Post, 0, count)
	for i := uint32(0); i < count; i++ {
		var p Post
		if err := p.decodeFrom(r); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// CreatePostResponseMessage (0x04) - The stored post
type CreatePostResponseMessage struct {
	Success bool
	Token   string
	Post    Post
	Error   string
}

func (m *CreatePostResponseMessage) EncodeTo(w io.Writer) error {
	if err := writeOutcome(w, m.Success, m.Error); err != nil {
		return err
	}
	if !m.Success {
		return nil
	}
	if err := WriteString(w, m.Token); err != nil {
		return err
	}
	return m.Post.EncodeTo(w)
}

func (m *CreatePostResponseMessage) Encode() ([]byte, error) {
	return encodeToBytes(m)
}

func (m *CreatePostResponseMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	if err := readOutcome(buf, TypeCreatePost); err != nil {
		return err
	}
	token, err := readToken(buf)
	if err != nil {
		return err
	}
	if err := m.Post.decodeFrom(buf); err != nil {
		return err
	}

	m.Success = true
	m.Token = token
	return finish(buf)
}

// UserVoteResponseMessage (0x05) - Vote accepted; carries only the rotated token
type UserVoteResponseMessage struct {
	Success bool
	Token   string
	Error   string
}

func (m *UserVoteResponseMessage) EncodeTo(w io.Writer) error {
	if err := writeOutcome(w, m.Success, m.Error); err != nil {
		return err
	}
	if !m.Success {
		return nil
	}
	return WriteString(w, m.Token)
}

func (m *UserVoteResponseMessage) Encode() ([]byte, error) {
	return encodeToBytes(m)
}

func (m *UserVoteResponseMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	if err := readOutcome(buf, TypeUserVote); err != nil {
		return err
	}
	token, err := readToken(buf)
	if err != nil {
		return err
	}

	m.Success = true
	m.Token = token
	return finish(buf)
}

// InvalidPostsMessage (0x06) - Broadcast: posts that are no longer visible
type InvalidPostsMessage struct {
	PostIDs []uint64
}

func (m *InvalidPostsMessage) EncodeTo(w io.Writer) error {
	if len(m.PostIDs) > MaxListLength {
		return ErrListTooLong
	}
	if err := WriteUint32(w, uint32(len(m.PostIDs))); err != nil {
		return err
	}
	for _, id := range m.PostIDs {
		if err := WriteUint64(w, id); err != nil {
			return err
		}
	}
	return nil
}

func (m *InvalidPostsMessage) Encode() ([]byte, error) {
	return encodeToBytes(m)
}

func (m *InvalidPostsMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	count, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	if count > MaxListLength {
		return ErrListTooLong
	}
	ids := make([]uint64, 0, count)
	for i := uint32(0); i < count; i++ {
		id, err := ReadUint64(buf)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	m.PostIDs = ids
	return finish(buf)
}

// NewPostMessage (0x07) - Broadcast: someone published a post
type NewPostMessage struct {
	Post Post
}

func (m *NewPostMessage) EncodeTo(w io.Writer) error {
	return m.Post.EncodeTo(w)
}

func (m *NewPostMessage) Encode() ([]byte, error) {
	return encodeToBytes(m)
}

func (m *NewPostMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	if err := m.Post.decodeFrom(buf); err != nil {
		return err
	}
	return finish(buf)
}

// UpdateUsersMessage (0x08) - Broadcast: users whose karma or streak changed
type UpdateUsersMessage struct {
	Users []User
}

func (m *UpdateUsersMessage) EncodeTo(w io.Writer) error {
	if len(m.Users) > MaxListLength {
		return ErrListTooLong
	}
	if err := WriteUint32(w, uint32(len(m.Users))); err != nil {
		return err
	}
	for i := range m.Users {
		if err := m.Users[i].EncodeTo(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *UpdateUsersMessage) Encode() ([]byte, error) {
	return encodeToBytes(m)
}

func (m *UpdateUsersMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	count, err := ReadUint32(buf)
	if err != nil {
		return err
	}
	if count > MaxListLength {
		return ErrListTooLong
	}
	users := make([]User, 0, count)
	for i := uint32(0); i < count; i++ {
		var u User
		if err := u.decodeFrom(buf); err != nil {
			return err
		}
		users = append(users, u)
	}

	m.Users = users
	return finish(buf)
}

// ErrorMessage (0x0A) - Generic server error not tied to a request type
type ErrorMessage struct {
	ErrorCode uint16
	Message   string
}

func (m *ErrorMessage) EncodeTo(w io.Writer) error {
	if err := WriteUint16(w, m.ErrorCode); err != nil {
		return err
	}
	return WriteString(w, m.Message)
}

func (m *ErrorMessage) Encode() ([]byte, error) {
	return encodeToBytes(m)
}

func (m *ErrorMessage) Decode(payload []byte) error {
	buf := bytes.NewReader(payload)
	code, err := ReadUint16(buf)
	if err != nil {
		return err
	}
	message, err := ReadString(buf)
	if err != nil {
		return err
	}

	m.ErrorCode = code
	m.Message = message
	return finish(buf)
}
