// ============================================================================
// lendbot - Community Lending Bot
// ============================================================================
//
// Package:     runner
// Description: Polling loop that feeds messages through the dispatcher
// Author:      Mike Stoffels
// Created:     2025-12-14
// License:     MIT
// ============================================================================

package runner

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/tevino/abool/v2"

	mdwerror "github.com/msto63/lendbot/foundation/core/error"
	"github.com/msto63/lendbot/internal/commands"
	"github.com/msto63/lendbot/internal/responses"
	"github.com/msto63/lendbot/internal/source"
	"github.com/msto63/lendbot/pkg/core/health"
	"github.com/msto63/lendbot/pkg/core/logging"
)

// replySeparator joins several command replies into one post
const replySeparator = "\n\n---\n\n"

// Ledger remembers which messages were handled
type Ledger interface {
	IsProcessed(ctx context.Context, messageID string) (bool, error)
	MarkProcessed(ctx context.Context, messageID string) error
}

// Renderer turns a command reply into text
type Renderer interface {
	Render(key string, data interface{}) (*responses.Rendered, error)
}

// Config holds runner configuration
type Config struct {
	Source        source.Source
	Dispatcher    *commands.Dispatcher
	Renderer      Renderer
	Ledger        Ledger
	Interval      time.Duration
	ReplyAttempts int
	ReplyBackoff  time.Duration
	Logger        *logging.Logger
}

// TickResult counts what one polling round did
type TickResult struct {
	Fetched    int
	Duplicates int
	Handled    int
	Replied    int
	Failed     int
	// Busy is set when another round was still running
	Busy bool
}

type outgoing struct {
	msg     *source.Message
	subject string
	body    string
}

// Runner polls a source and answers the commands it finds
type Runner struct {
	cfg    Config
	logger *logging.Logger

	running     *abool.AtomicBool
	lastSuccess atomic.Int64

	mu        sync.Mutex
	inbox     []*source.Message // messages to dispatch again
	outbox    []outgoing        // replies to post again
	scheduler gocron.Scheduler
}

// New creates a runner
func New(cfg Config) (*Runner, error) {
	if cfg.Source == nil || cfg.Dispatcher == nil || cfg.Renderer == nil || cfg.Ledger == nil {
		return nil, mdwerror.New("runner needs a source, a dispatcher, a renderer and a ledger").
			WithCode(mdwerror.CodeConfigError).
			WithOperation("runner.New")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.ReplyAttempts < 1 {
		cfg.ReplyAttempts = 1
	}
	if cfg.ReplyBackoff <= 0 {
		cfg.ReplyBackoff = time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("runner")
	}

	return &Runner{
		cfg:     cfg,
		logger:  logger,
		running: abool.NewBool(false),
	}, nil
}

// Start schedules Tick every interval, beginning immediately
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.scheduler != nil {
		return nil
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return mdwerror.Wrap(err, "create scheduler").
			WithCode(mdwerror.CodeInternal).
			WithOperation("runner.Start")
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(r.cfg.Interval),
		gocron.NewTask(func() {
			if _, err := r.Tick(ctx); err != nil {
				r.logger.ErrorWithErr("Polling round failed", err)
			}
		}),
		gocron.WithName("poll"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		scheduler.Shutdown()
		return mdwerror.Wrap(err, "schedule polling").
			WithCode(mdwerror.CodeInternal).
			WithOperation("runner.Start")
	}

	scheduler.Start()
	r.scheduler = scheduler
	r.logger.Info("Runner started", "interval", r.cfg.Interval.String())
	return nil
}

// Stop stops the schedule and waits for a running round to finish
func (r *Runner) Stop() error {
	r.mu.Lock()
	scheduler := r.scheduler
	r.scheduler = nil
	r.mu.Unlock()

	if scheduler == nil {
		return nil
	}
	if err := scheduler.Shutdown(); err != nil {
		return mdwerror.Wrap(err, "stop scheduler").
			WithCode(mdwerror.CodeInternal).
			WithOperation("runner.Stop")
	}
	r.logger.Info("Runner stopped")
	return nil
}

// LastSuccess returns when a polling round last completed without a
// source error
func (r *Runner) LastSuccess() time.Time {
	n := r.lastSuccess.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// HealthCheck reports degraded when no round succeeded for three intervals
func (r *Runner) HealthCheck() health.Checker {
	return health.FreshnessCheck("runner", 3*r.cfg.Interval, r.LastSuccess)
}

// Pending returns how many messages and replies wait for the next round
func (r *Runner) Pending() (messages, replies int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inbox), len(r.outbox)
}

// Tick runs one polling round. Only one round runs at a time; a call
// while another round is active returns immediately with Busy set.
func (r *Runner) Tick(ctx context.Context) (*TickResult, error) {
	result := &TickResult{}
	if !r.running.SetToIf(false, true) {
		result.Busy = true
		return result, nil
	}
	defer r.running.UnSet()

	timer := r.logger.StartTimer("poll")
	defer func() {
		timer.WithField("fetched", result.Fetched).
			WithField("handled", result.Handled).
			WithField("replied", result.Replied).
			WithField("failed", result.Failed).
			Stop()
	}()

	r.mu.Lock()
	retryMsgs, retryReplies := r.inbox, r.outbox
	r.inbox, r.outbox = nil, nil
	r.mu.Unlock()

	for _, out := range retryReplies {
		r.post(ctx, out, result)
	}

	fetched, err := r.cfg.Source.Fetch(ctx)
	if err != nil {
		r.requeue(retryMsgs...)
		return result, mdwerror.Wrap(err, "fetch messages").
			WithCode(mdwerror.CodeSourceError).
			WithOperation("runner.Tick")
	}
	result.Fetched = len(fetched)

	for _, msg := range append(retryMsgs, fetched...) {
		if ctx.Err() != nil {
			r.requeue(msg)
			continue
		}
		r.handle(ctx, msg, result)
	}

	r.lastSuccess.Store(time.Now().UnixNano())
	return result, nil
}

func (r *Runner) handle(ctx context.Context, msg *source.Message, result *TickResult) {
	log := r.logger.ForMessage(msg.ID, msg.ThreadID)

	done, err := r.cfg.Ledger.IsProcessed(ctx, msg.ID)
	if err != nil {
		log.ErrorWithErr("Failed to check message", err)
		r.requeue(msg)
		result.Failed++
		return
	}
	if done {
		result.Duplicates++
		return
	}

	replies, err := r.cfg.Dispatcher.Dispatch(ctx, msg)
	if err != nil {
		log.ErrorWithErr("Failed to dispatch message", err)
		r.requeue(msg)
		result.Failed++
		return
	}

	if err := r.cfg.Ledger.MarkProcessed(ctx, msg.ID); err != nil {
		log.ErrorWithErr("Failed to mark message processed", err)
	}
	result.Handled++

	if len(replies) == 0 {
		return
	}

	out, ok := r.render(log, msg, replies)
	if !ok {
		result.Failed++
		return
	}
	r.post(ctx, out, result)
}

// render renders every reply and joins them into one post
func (r *Runner) render(log *logging.Logger, msg *source.Message, replies []*commands.Reply) (outgoing, bool) {
	out := outgoing{msg: msg}
	var bodies []string

	for _, reply := range replies {
		rendered, err := r.cfg.Renderer.Render(reply.Key, reply.Data)
		if err != nil {
			log.ErrorWithErr("Failed to render reply", err, "key", reply.Key, "command", reply.Command)
			continue
		}
		if out.subject == "" {
			out.subject = rendered.Subject
		}
		bodies = append(bodies, rendered.Body)
	}

	if len(bodies) == 0 {
		return out, false
	}
	out.body = strings.Join(bodies, replySeparator)
	return out, true
}

// post sends a reply with retry and exponential backoff. A reply that
// still fails is kept for the next round.
func (r *Runner) post(ctx context.Context, out outgoing, result *TickResult) {
	log := r.logger.ForMessage(out.msg.ID, out.msg.ThreadID)
	backoff := r.cfg.ReplyBackoff

	var err error
retry:
	for attempt := 1; attempt <= r.cfg.ReplyAttempts; attempt++ {
		if err = r.cfg.Source.Reply(ctx, out.msg, out.subject, out.body); err == nil {
			result.Replied++
			return
		}

		log.Warn("Reply failed", "attempt", attempt, "of", r.cfg.ReplyAttempts, "error", err)
		if attempt == r.cfg.ReplyAttempts {
			break
		}

		select {
		case <-ctx.Done():
			err = ctx.Err()
			break retry
		case <-time.After(backoff):
			backoff *= 2
		}
	}

	log.ErrorWithErr("Giving up on reply until next round", err)
	result.Failed++

	r.mu.Lock()
	r.outbox = append(r.outbox, out)
	r.mu.Unlock()
}

func (r *Runner) requeue(msgs ...*source.Message) {
	if len(msgs) == 0 {
		return
	}
	r.mu.Lock()
	r.inbox = append(r.inbox, msgs...)
	r.mu.Unlock()
}
