package bot

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/writerbot/internal/infrastructure/database"
)

// DefaultPrefix is used when Options.Prefix is empty.
const DefaultPrefix = "!"

// Logger defines the logging interface used by the bot.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store is the database access the bot needs. *database.DB satisfies it.
type Store interface {
	Get(ctx context.Context, q database.Query) (database.Row, error)
	GetAll(ctx context.Context, q database.Query) ([]database.Row, error)
	GetSQL(ctx context.Context, query string, args ...any) (database.Row, error)
	GetAllSQL(ctx context.Context, query string, args ...any) ([]database.Row, error)
	Insert(ctx context.Context, table string, values database.Params) (int64, error)
	Update(ctx context.Context, table string, values, where database.Params) (int64, error)
	Delete(ctx context.Context, table string, where database.Params) (int64, error)
	Execute(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Session is the outbound side of the chat platform.
type Session interface {
	// Send posts content to a channel.
	Send(ctx context.Context, channelID, content string) error

	// CanManage reports whether the user may change guild settings
	// from the given channel.
	CanManage(ctx context.Context, channelID, userID string) (bool, error)
}

// EventPublisher receives one event per command run. Optional.
type EventPublisher interface {
	PublishCommandEvent(event CommandEvent) error
}

// MetricsRecorder receives command latency and outcome. Optional.
// *influxdb.Client satisfies it.
type MetricsRecorder interface {
	RecordCommand(command, guildID string, duration time.Duration, ok bool)
}

// Message is an incoming chat message, independent of the platform.
type Message struct {
	ID         string
	GuildID    string // empty for direct messages
	ChannelID  string
	AuthorID   string
	AuthorName string
	Content    string
	Bot        bool // author is a bot account
}

// Options configures New.
type Options struct {
	Session Session
	Store   Store
	Logger  Logger

	// Prefix is the command prefix for direct messages and guilds
	// without their own.
	Prefix string

	Events  EventPublisher
	Metrics MetricsRecorder
}

// Bot routes chat messages to registered commands.
type Bot struct {
	session  Session
	store    Store
	logger   Logger
	registry *Registry
	prefixes *PrefixResolver
	events   EventPublisher
	metrics  MetricsRecorder
	started  time.Time
}

// New creates a bot with an empty command registry. Call LoadCommands
// to register the built-in commands.
func New(opts Options) (*Bot, error) {
	if opts.Session == nil {
		return nil, fmt.Errorf("%w: session is required", ErrInvalidOptions)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidOptions)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	var logger Logger = noopLogger{}
	if opts.Logger != nil {
		logger = opts.Logger
	}

	return &Bot{
		session:  opts.Session,
		store:    opts.Store,
		logger:   logger,
		registry: NewRegistry(),
		prefixes: NewPrefixResolver(opts.Store, prefix),
		events:   opts.Events,
		metrics:  opts.Metrics,
		started:  time.Now(),
	}, nil
}

// LoadCommands registers the built-in commands.
func (b *Bot) LoadCommands() error {
	for _, cmd := range builtinCommands() {
		if err := b.registry.Register(cmd); err != nil {
			return fmt.Errorf("loading command %s: %w", cmd.Name, err)
		}
	}
	b.logger.Info("commands loaded", "count", b.registry.Len())
	return nil
}

// Registry returns the command registry.
func (b *Bot) Registry() *Registry {
	return b.registry
}

// Prefixes returns the per-guild prefix resolver.
func (b *Bot) Prefixes() *PrefixResolver {
	return b.prefixes
}

// Store returns the database the bot was built with.
func (b *Bot) Store() Store {
	return b.store
}

// Uptime returns how long ago the bot was created.
func (b *Bot) Uptime() time.Duration {
	return time.Since(b.started)
}
