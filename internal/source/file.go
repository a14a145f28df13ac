package source

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	mdwerror "github.com/msto63/lendbot/foundation/core/error"
	"github.com/msto63/lendbot/foundation/utils/filex"
	"github.com/msto63/lendbot/pkg/core/logging"
)

// FileSource reads messages from a JSON-lines inbox and appends replies
// to a JSON-lines outbox. Another process feeds the inbox; the source
// remembers how far it has read.
type FileSource struct {
	inbox  string
	outbox string
	logger *logging.Logger

	mu     sync.Mutex
	offset int64
}

// FileConfig holds the paths of a file source
type FileConfig struct {
	Inbox  string
	Outbox string
	Logger *logging.Logger
}

// NewFileSource creates a file source and makes sure both directories exist
func NewFileSource(cfg FileConfig) (*FileSource, error) {
	if cfg.Inbox == "" || cfg.Outbox == "" {
		return nil, mdwerror.New("inbox and outbox paths are required").
			WithCode(mdwerror.CodeConfigError).
			WithOperation("source.NewFileSource")
	}

	for _, path := range []string{cfg.Inbox, cfg.Outbox} {
		if err := filex.EnsureDir(path); err != nil {
			return nil, mdwerror.Wrap(err, "prepare source directory").
				WithCode(mdwerror.CodeSourceError).
				WithOperation("source.NewFileSource")
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("source")
	}

	return &FileSource{
		inbox:  cfg.Inbox,
		outbox: cfg.Outbox,
		logger: logger,
	}, nil
}

// Fetch reads the lines appended to the inbox since the last call.
// Lines that are not valid messages are logged and skipped.
func (s *FileSource) Fetch(ctx context.Context) ([]*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines, next, err := filex.ReadLinesFrom(s.inbox, s.offset)
	if err != nil {
		return nil, mdwerror.Wrap(err, "read inbox").
			WithCode(mdwerror.CodeSourceError).
			WithOperation("source.Fetch").
			WithDetail("path", s.inbox)
	}
	s.offset = next

	msgs := make([]*Message, 0, len(lines))
	for _, line := range lines {
		var m Message
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			s.logger.Warn("Skipping malformed inbox line", "path", s.inbox, "error", err)
			continue
		}
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		if m.Kind == "" {
			m.Kind = KindComment
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}
		msgs = append(msgs, &m)
	}

	if len(msgs) > 0 {
		s.logger.Debug("Fetched messages", "count", len(msgs))
	}
	return msgs, nil
}

// Reply appends the reply to the outbox
func (s *FileSource) Reply(ctx context.Context, msg *Message, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	reply := newReply(uuid.New().String(), msg, subject, body)
	data, err := json.Marshal(reply)
	if err != nil {
		return mdwerror.Wrap(err, "encode reply").
			WithCode(mdwerror.CodeInternal).
			WithOperation("source.Reply")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := filex.AppendLine(s.outbox, string(data), 0644); err != nil {
		return mdwerror.Wrap(err, "write outbox").
			WithCode(mdwerror.CodeSourceError).
			WithOperation("source.Reply").
			WithDetail("path", s.outbox)
	}
	return nil
}

// Offset returns how many bytes of the inbox have been consumed
func (s *FileSource) Offset() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

// Seek sets the inbox read position, e.g. to resume after a restart
func (s *FileSource) Seek(offset int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = offset
}

var _ Source = (*FileSource)(nil)
