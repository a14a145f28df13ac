// Package source provides the message feeds the bot reads commands from
// and posts replies to.
package source

import (
	"context"
	"time"
)

// Kind classifies a platform message
type Kind string

const (
	KindComment Kind = "comment"
	KindMessage Kind = "message"
	KindPost    Kind = "post"
)

// Message is one post, comment or private message
type Message struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"kind"`
	Author       string    `json:"author"`
	ThreadID     string    `json:"thread_id,omitempty"`
	ThreadAuthor string    `json:"thread_author,omitempty"`
	Subject      string    `json:"subject,omitempty"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"created_at"`
}

// Reply is a posted answer to a message
type Reply struct {
	ID        string    `json:"id"`
	InReplyTo string    `json:"in_reply_to"`
	ThreadID  string    `json:"thread_id,omitempty"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Source reads new messages and posts replies
type Source interface {
	// Fetch returns messages that arrived since the previous call
	Fetch(ctx context.Context) ([]*Message, error)
	// Reply answers msg with a subject and body. The subject is only used
	// for private messages.
	Reply(ctx context.Context, msg *Message, subject, body string) error
}

func newReply(id string, msg *Message, subject, body string) *Reply {
	r := &Reply{
		ID:        id,
		InReplyTo: msg.ID,
		ThreadID:  msg.ThreadID,
		Recipient: msg.Author,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if msg.Kind == KindMessage {
		r.Subject = subject
	}
	return r
}
