package commands

import (
	"context"
	"errors"
	"sort"
	"strings"

	mdwerror "github.com/msto63/lendbot/foundation/core/error"
	"github.com/msto63/lendbot/internal/source"
	"github.com/msto63/lendbot/pkg/core/logging"
)

// Dispatcher runs the commands of a registry against messages
type Dispatcher struct {
	registry *Registry
	botName  string
	logger   *logging.Logger
}

// DispatcherConfig holds dispatcher configuration
type DispatcherConfig struct {
	Registry *Registry
	// BotName is the bot's own account. Its messages are never dispatched.
	BotName string
	Logger  *logging.Logger
}

// NewDispatcher creates a dispatcher
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("commands")
	}
	return &Dispatcher{
		registry: cfg.Registry,
		botName:  cfg.BotName,
		logger:   logger,
	}
}

// Dispatch finds every command occurrence in the message body and runs it.
// Replies are ordered by where the command appears in the body. Rule
// violations become error replies; only infrastructure failures are
// returned as error, in which case no reply is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *source.Message) ([]*Reply, error) {
	if msg == nil || msg.Body == "" {
		return nil, nil
	}
	if d.botName != "" && strings.EqualFold(msg.Author, d.botName) {
		return nil, nil
	}

	log := d.logger.ForMessage(msg.ID, msg.ThreadID)
	var replies []*Reply

	for _, cmd := range d.registry.Commands() {
		if !cmd.Accepts(msg.Kind) {
			continue
		}

		m := cmd.Pattern.Matcher(msg.Body)
		for m.Find() {
			groups, err := m.Group()
			if err != nil {
				return nil, mdwerror.Wrap(err, "extract command parameters").
					WithOperation("commands.Dispatch").
					WithDetail("command", cmd.Name)
			}

			inv := &Invocation{Message: msg, Groups: groups, Text: m.Text()}
			reply, err := cmd.Handler(ctx, inv)
			if err != nil {
				if !isRuleViolation(err) {
					return nil, err
				}
				log.Info("Command rejected", "command", cmd.Name, "error", err)
				reply = errorReply(cmd, err)
			} else {
				log.Info("Command executed", "command", cmd.Name)
			}

			reply.Command = cmd.Name
			reply.Offset = m.Start()
			if reply.Data == nil {
				reply.Data = make(map[string]interface{})
			}
			reply.Data["Author"] = msg.Author
			reply.Data["Command"] = cmd.Name
			replies = append(replies, reply)
		}
	}

	sort.SliceStable(replies, func(i, j int) bool {
		return replies[i].Offset < replies[j].Offset
	})
	return replies, nil
}

// isRuleViolation reports whether err is the user's fault rather than
// the system's
func isRuleViolation(err error) bool {
	switch mdwerror.GetCode(err) {
	case mdwerror.CodeInvalidInput,
		mdwerror.CodeInvalidOperation,
		mdwerror.CodeBusinessRule,
		mdwerror.CodeNotFound:
		return true
	default:
		return false
	}
}

func errorReply(cmd *Command, err error) *Reply {
	data := map[string]interface{}{
		"Error": err.Error(),
		"Code":  mdwerror.GetCode(err).String(),
		"Usage": cmd.Usage(),
	}

	var e *mdwerror.Error
	if errors.As(err, &e) {
		data["Error"] = e.Message()
		data["Details"] = e.Details()
	}
	return &Reply{Key: KeyError, Data: data}
}
