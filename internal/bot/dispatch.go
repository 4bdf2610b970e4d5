package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// argPattern splits on whitespace, keeping "double quoted" runs together.
var argPattern = regexp.MustCompile(`"([^"]*)"|(\S+)`)

// Reply texts for failures.
const (
	replyGuildOnly = "That command only works in a server."
	replyForbidden = "You need the Manage Server permission to do that."
	replyFailed    = "Something went wrong running that command."
)

// CommandEvent is published after every command run.
type CommandEvent struct {
	ID         string    `json:"id"`
	Command    string    `json:"command"`
	GuildID    string    `json:"guild_id,omitempty"`
	ChannelID  string    `json:"channel_id"`
	AuthorID   string    `json:"author_id"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	DurationMS float64   `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// HandleMessage parses msg and runs the command it names.
//
// Messages from bots, messages without the prefix, and unknown commands
// are ignored. User mistakes (bad arguments, wrong place, missing
// permission) are answered in the channel and return nil. Any other
// command failure is answered with a generic reply, logged, and
// returned.
func (b *Bot) HandleMessage(ctx context.Context, msg Message) error {
	if msg.Bot {
		return nil
	}

	prefix, err := b.prefixes.Resolve(ctx, msg.GuildID)
	if err != nil {
		b.logger.Warn("prefix lookup failed, using default",
			"guild_id", msg.GuildID,
			"error", err,
		)
	}

	body, ok := b.prefixes.Strip(msg.Content, prefix)
	if !ok {
		return nil
	}

	args := splitArgs(body)
	if len(args) == 0 {
		return nil
	}

	cmd, ok := b.registry.Lookup(args[0])
	if !ok {
		return nil
	}

	inv := &Invocation{
		ID:      uuid.NewString(),
		Message: msg,
		Name:    args[0],
		Args:    args[1:],
		Prefix:  prefix,
	}

	start := time.Now()
	reply, runErr := b.run(ctx, cmd, inv)
	duration := time.Since(start)

	if runErr != nil {
		reply = failureReply(cmd, inv, runErr)
		if isUserError(runErr) {
			b.logger.Debug("command refused", "command", cmd.Name, "invocation_id", inv.ID, "reason", runErr)
		} else {
			b.logger.Error("command failed",
				"command", cmd.Name,
				"invocation_id", inv.ID,
				"guild_id", msg.GuildID,
				"error", runErr,
			)
		}
	} else {
		b.logger.Debug("command completed", "command", cmd.Name, "invocation_id", inv.ID, "duration", duration)
	}

	var sendErr error
	if reply != "" {
		if sendErr = b.session.Send(ctx, msg.ChannelID, reply); sendErr != nil {
			b.logger.Error("sending reply failed",
				"command", cmd.Name,
				"channel_id", msg.ChannelID,
				"error", sendErr,
			)
		}
	}

	b.report(cmd, inv, duration, runErr)

	switch {
	case runErr != nil && !isUserError(runErr):
		return fmt.Errorf("command %s: %w", cmd.Name, runErr)
	case sendErr != nil:
		return fmt.Errorf("replying to %s: %w", cmd.Name, sendErr)
	default:
		return nil
	}
}

// run executes cmd with guild checks and panic recovery.
func (b *Bot) run(ctx context.Context, cmd Command, inv *Invocation) (reply string, err error) {
	if cmd.GuildOnly && inv.Message.GuildID == "" {
		return "", ErrGuildOnly
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCommandPanic, r)
		}
	}()

	return cmd.Run(ctx, b, inv)
}

// report forwards the outcome to the event publisher and metrics recorder.
func (b *Bot) report(cmd Command, inv *Invocation, duration time.Duration, runErr error) {
	ok := runErr == nil || isUserError(runErr)

	if b.metrics != nil {
		b.metrics.RecordCommand(cmd.Name, inv.Message.GuildID, duration, ok)
	}

	if b.events != nil {
		event := CommandEvent{
			ID:         inv.ID,
			Command:    cmd.Name,
			GuildID:    inv.Message.GuildID,
			ChannelID:  inv.Message.ChannelID,
			AuthorID:   inv.Message.AuthorID,
			OK:         ok,
			DurationMS: float64(duration) / float64(time.Millisecond),
			Timestamp:  time.Now().UTC(),
		}
		if runErr != nil {
			event.Error = runErr.Error()
		}
		if err := b.events.PublishCommandEvent(event); err != nil {
			b.logger.Warn("publishing command event failed", "command", cmd.Name, "error", err)
		}
	}
}

func failureReply(cmd Command, inv *Invocation, err error) string {
	switch {
	case errors.Is(err, ErrUsage):
		if cmd.Usage == "" {
			return "Usage: `" + inv.Prefix + cmd.Name + "`"
		}
		return "Usage: `" + inv.Prefix + cmd.Usage + "`"
	case errors.Is(err, ErrGuildOnly):
		return replyGuildOnly
	case errors.Is(err, ErrForbidden):
		return replyForbidden
	default:
		return replyFailed
	}
}

// splitArgs splits s into arguments; "quoted text" becomes one argument
// without the quotes.
func splitArgs(s string) []string {
	var out []string
	for _, m := range argPattern.FindAllStringSubmatch(s, -1) {
		if m[2] == "" {
			out = append(out, m[1])
		} else {
			out = append(out, m[2])
		}
	}
	return out
}
