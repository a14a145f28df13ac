package source

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemorySource is an in-memory Source for tests and one-off runs
type MemorySource struct {
	mu      sync.Mutex
	pending []*Message
	replies []*Reply

	// ReplyErr, when set, is consulted before every reply. A non-nil
	// result fails the reply.
	ReplyErr func(msg *Message, attempt int) error
	attempts map[string]int
}

// NewMemorySource creates a source holding the given messages
func NewMemorySource(msgs ...*Message) *MemorySource {
	s := &MemorySource{attempts: make(map[string]int)}
	s.Push(msgs...)
	return s
}

// Push queues messages for the next Fetch
func (s *MemorySource) Push(msgs ...*Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range msgs {
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		s.pending = append(s.pending, m)
	}
}

// Fetch returns and clears the queued messages
func (s *MemorySource) Fetch(ctx context.Context) ([]*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.pending
	s.pending = nil
	return msgs, nil
}

// Reply records a reply
func (s *MemorySource) Reply(ctx context.Context, msg *Message, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts[msg.ID]++
	if s.ReplyErr != nil {
		if err := s.ReplyErr(msg, s.attempts[msg.ID]); err != nil {
			return err
		}
	}

	s.replies = append(s.replies, newReply(uuid.New().String(), msg, subject, body))
	return nil
}

// Replies returns every reply posted so far
func (s *MemorySource) Replies() []*Reply {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*Reply(nil), s.replies...)
}

// Attempts returns how often a reply to the message was tried
func (s *MemorySource) Attempts(messageID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.attempts[messageID]
}

var _ Source = (*MemorySource)(nil)
