package client

import (
	"sync"

	"github.com/aeolun/votefeed/pkg/protocol"
)

// Snapshot is an immutable view of the application state.
// Slices in a published snapshot are never modified in place.
type Snapshot struct {
	Version       uint64
	Connection    ConnectionState
	Loading       bool
	Authenticated bool
	User          *protocol.User
	Posts         []protocol.Post
}

// HasPost reports whether a post with the given id is present
func (s Snapshot) HasPost(id uint64) bool {
	for i := range s.Posts {
		if s.Posts[i].ID == id {
			return true
		}
	}
	return false
}

// StateStore holds the current snapshot and notifies subscribers of changes
type StateStore struct {
	mu     sync.Mutex
	snap   Snapshot
	subs   map[int]chan Snapshot
	nextID int
}

// NewStateStore creates a store in the startup state: idle connection,
// loading until bootstrap resolves.
func NewStateStore() *StateStore {
	return &StateStore{
		snap: Snapshot{Connection: StateIdle, Loading: true},
		subs: make(map[int]chan Snapshot),
	}
}

// Snapshot returns the current snapshot
func (s *StateStore) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Update applies fn to the current snapshot and publishes the result.
// fn must not call back into the store.
func (s *StateStore) Update(fn func(Snapshot) Snapshot) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := fn(s.snap)
	next.Version = s.snap.Version + 1
	s.snap = next

	for _, ch := range s.subs {
		publish(ch, next)
	}
	return next
}

// Subscribe returns a channel that always holds the most recent snapshot not
// yet received. Intermediate snapshots may be skipped. The returned function
// cancels the subscription and closes the channel.
func (s *StateStore) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Snapshot, 1)
	ch <- s.snap
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

// publish replaces any pending snapshot in ch with snap
func publish(ch chan Snapshot, snap Snapshot) {
	select {
	case <-ch:
	default:
	}
	ch <- snap
}

// withPost returns posts with p appended, or posts unchanged if the id is taken
func withPost(posts []protocol.Post, p protocol.Post) []protocol.Post {
	for i := range posts {
		if posts[i].ID == p.ID {
			return posts
		}
	}
	out := make([]protocol.Post, len(posts), len(posts)+1)
	copy(out, posts)
	return append(out, p)
}

// withoutPosts returns posts minus any whose id is in ids, order preserved
func withoutPosts(posts []protocol.Post, ids []uint64) []protocol.Post {
	drop := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	out := make([]protocol.Post, 0, len(posts))
	for _, p := range posts {
		if _, ok := drop[p.ID]; !ok {
			out = append(out, p)
		}
	}
	return out
}

// uniquePosts copies posts, keeping the first occurrence of each id
func uniquePosts(posts []protocol.Post) []protocol.Post {
	seen := make(map[uint64]struct{}, len(posts))
	out := make([]protocol.Post, 0, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}
