package source

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	mdwerror "github.com/msto63/lendbot/foundation/core/error"
	"github.com/msto63/lendbot/foundation/utils/filex"
)

func TestMemorySource(t *testing.T) {
	ctx := context.Background()
	src := NewMemorySource(&Message{Author: "alice", Body: "$loan 5"})

	msgs, err := src.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID == "" {
		t.Fatalf("Fetch() = %+v, want one message with an ID", msgs)
	}

	again, _ := src.Fetch(ctx)
	if len(again) != 0 {
		t.Errorf("second Fetch() returned %d messages", len(again))
	}

	if err := src.Reply(ctx, msgs[0], "subject", "done"); err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	replies := src.Replies()
	if len(replies) != 1 || replies[0].Recipient != "alice" || replies[0].InReplyTo != msgs[0].ID {
		t.Errorf("Replies() = %+v", replies)
	}
	if replies[0].Subject != "" {
		t.Errorf("comment reply subject = %q, want empty", replies[0].Subject)
	}
}

func TestMemorySourceReplyErr(t *testing.T) {
	ctx := context.Background()
	src := NewMemorySource()
	src.ReplyErr = func(msg *Message, attempt int) error {
		if attempt < 3 {
			return errors.New("rate limited")
		}
		return nil
	}

	msg := &Message{ID: "m1", Kind: KindMessage, Author: "bob"}
	for i := 0; i < 2; i++ {
		if err := src.Reply(ctx, msg, "s", "b"); err == nil {
			t.Fatalf("attempt %d should fail", i+1)
		}
	}
	if err := src.Reply(ctx, msg, "s", "b"); err != nil {
		t.Fatalf("third attempt error = %v", err)
	}
	if src.Attempts("m1") != 3 {
		t.Errorf("Attempts() = %d, want 3", src.Attempts("m1"))
	}
	if r := src.Replies(); len(r) != 1 || r[0].Subject != "s" {
		t.Errorf("private message reply = %+v", r)
	}
}

func TestMemorySourceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewMemorySource().Fetch(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch() error = %v, want context.Canceled", err)
	}
}

func TestNewFileSourceValidation(t *testing.T) {
	_, err := NewFileSource(FileConfig{Inbox: "in.jsonl"})
	if !mdwerror.HasCode(err, mdwerror.CodeConfigError) {
		t.Errorf("NewFileSource() error = %v, want CONFIG_ERROR", err)
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	inbox := filepath.Join(dir, "in", "inbox.jsonl")
	outbox := filepath.Join(dir, "out", "outbox.jsonl")
	ctx := context.Background()

	src, err := NewFileSource(FileConfig{Inbox: inbox, Outbox: outbox})
	if err != nil {
		t.Fatalf("NewFileSource() error = %v", err)
	}

	msgs, err := src.Fetch(ctx)
	if err != nil || len(msgs) != 0 {
		t.Fatalf("Fetch() on empty inbox = %v, %v", msgs, err)
	}

	lines := []string{
		`{"id":"t1_a","kind":"comment","author":"alice","thread_id":"t3_x","thread_author":"bob","body":"$loan 10"}`,
		`not json`,
		`{"author":"carol","body":"$check u/alice"}`,
	}
	for _, l := range lines {
		if err := filex.AppendLine(inbox, l, 0644); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err = src.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("Fetch() returned %d messages, want 2", len(msgs))
	}
	if msgs[0].ID != "t1_a" || msgs[0].ThreadAuthor != "bob" {
		t.Errorf("first message = %+v", msgs[0])
	}
	if msgs[1].ID == "" || msgs[1].Kind != KindComment || msgs[1].CreatedAt.IsZero() {
		t.Errorf("defaults not applied: %+v", msgs[1])
	}

	if again, _ := src.Fetch(ctx); len(again) != 0 {
		t.Errorf("second Fetch() returned %d messages", len(again))
	}

	if err := src.Reply(ctx, msgs[0], "", "Noted."); err != nil {
		t.Fatalf("Reply() error = %v", err)
	}

	data, err := os.ReadFile(outbox)
	if err != nil {
		t.Fatalf("read outbox: %v", err)
	}
	var reply Reply
	if err := json.Unmarshal(data[:len(data)-1], &reply); err != nil {
		t.Fatalf("outbox line is not a reply: %v", err)
	}
	if reply.InReplyTo != "t1_a" || reply.Body != "Noted." || reply.Recipient != "alice" || reply.ID == "" {
		t.Errorf("reply = %+v", reply)
	}
}

func TestFileSourceSeek(t *testing.T) {
	dir := t.TempDir()
	inbox := filepath.Join(dir, "inbox.jsonl")
	src, err := NewFileSource(FileConfig{Inbox: inbox, Outbox: filepath.Join(dir, "outbox.jsonl")})
	if err != nil {
		t.Fatal(err)
	}

	filex.AppendLine(inbox, `{"id":"1","body":"a"}`, 0644)
	if _, err := src.Fetch(context.Background()); err != nil {
		t.Fatal(err)
	}
	if src.Offset() == 0 {
		t.Fatal("Offset() did not advance")
	}

	src.Seek(0)
	msgs, _ := src.Fetch(context.Background())
	if len(msgs) != 1 || msgs[0].ID != "1" {
		t.Errorf("Fetch() after Seek(0) = %+v", msgs)
	}
}
