package bot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

const (
	// maxMessageLength is Discord's limit for a message body, in characters.
	maxMessageLength = 2000

	// handleTimeout bounds the work done for one incoming message.
	handleTimeout = 30 * time.Second

	truncationMarker = "..."

	// Permission bits, see https://discord.com/developers/docs/topics/permissions
	permissionAdministrator int64 = 1 << 3
	permissionManageGuild   int64 = 1 << 5
)

// Discord connects a Bot to the Discord gateway and implements Session.
//
// Construction order breaks the Session/Bot cycle:
//
//	chat, _ := bot.NewDiscord(cfg.Token, cfg.Status, logger)
//	b, _ := bot.New(bot.Options{Session: chat, ...})
//	chat.Attach(b)
//	chat.Open(ctx)
type Discord struct {
	session *discordgo.Session
	status  string
	logger  Logger

	mu  sync.RWMutex
	bot *Bot
	ctx context.Context

	connected atomic.Bool
}

// NewDiscord creates a gateway session for token. status is shown as the
// bot's activity once it is ready. Nothing connects until Open.
func NewDiscord(token, status string, logger Logger) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuildMessages |
		discordgo.IntentDirectMessages |
		discordgo.IntentMessageContent

	if logger == nil {
		logger = noopLogger{}
	}

	d := &Discord{
		session: session,
		status:  status,
		logger:  logger,
		ctx:     context.Background(),
	}

	session.AddHandler(d.onReady)
	session.AddHandler(d.onResumed)
	session.AddHandler(d.onDisconnect)
	session.AddHandler(d.onMessageCreate)

	return d, nil
}

// Attach sets the bot that receives messages.
func (d *Discord) Attach(b *Bot) {
	d.mu.Lock()
	d.bot = b
	d.mu.Unlock()
}

// Open connects to the gateway. ctx is the parent of every per-message
// context and should live until Close.
func (d *Discord) Open(ctx context.Context) error {
	d.mu.Lock()
	d.ctx = ctx
	d.mu.Unlock()

	if err := d.session.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (d *Discord) Close() error {
	d.connected.Store(false)
	if err := d.session.Close(); err != nil {
		return fmt.Errorf("closing discord gateway: %w", err)
	}
	return nil
}

// HealthCheck reports whether the gateway connection is ready.
func (d *Discord) HealthCheck(_ context.Context) error {
	if !d.connected.Load() {
		return ErrNotConnected
	}
	return nil
}

// Send posts content to channelID, truncated to Discord's length limit.
func (d *Discord) Send(ctx context.Context, channelID, content string) error {
	_, err := d.session.ChannelMessageSend(channelID, truncate(content, maxMessageLength), discordgo.WithContext(ctx))
	return err
}

// CanManage reports whether userID has Manage Server (or Administrator)
// in channelID.
func (d *Discord) CanManage(ctx context.Context, channelID, userID string) (bool, error) {
	perms, err := d.session.UserChannelPermissions(userID, channelID, discordgo.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("reading permissions: %w", err)
	}
	return hasManage(perms), nil
}

func (d *Discord) onReady(s *discordgo.Session, r *discordgo.Ready) {
	d.connected.Store(true)

	if err := s.UpdateGameStatus(0, d.status); err != nil {
		d.logger.Warn("setting status failed", "error", err)
	}

	if b := d.attached(); b != nil && r.User != nil {
		b.Prefixes().SetSelfID(r.User.ID)
	}

	d.logger.Info("discord session ready", "guilds", len(r.Guilds))
}

func (d *Discord) onResumed(_ *discordgo.Session, _ *discordgo.Resumed) {
	d.connected.Store(true)
	d.logger.Info("discord session resumed")
}

func (d *Discord) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	d.connected.Store(false)
	d.logger.Warn("discord session disconnected")
}

func (d *Discord) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	b := d.attached()
	if b == nil || m.Message == nil || m.Author == nil {
		return
	}

	d.mu.RLock()
	parent := d.ctx
	d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(parent, handleTimeout)
	defer cancel()

	if err := b.HandleMessage(ctx, messageFromDiscord(m.Message)); err != nil {
		d.logger.Debug("message handling failed", "message_id", m.ID, "error", err)
	}
}

func (d *Discord) attached() *Bot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.bot
}

// messageFromDiscord converts a gateway message. m.Author must be set.
func messageFromDiscord(m *discordgo.Message) Message {
	return Message{
		ID:         m.ID,
		GuildID:    m.GuildID,
		ChannelID:  m.ChannelID,
		AuthorID:   m.Author.ID,
		AuthorName: m.Author.Username,
		Content:    m.Content,
		Bot:        m.Author.Bot,
	}
}

func hasManage(perms int64) bool {
	return perms&(permissionAdministrator|permissionManageGuild) != 0
}

// truncate shortens s to at most limit characters, marking the cut.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-len(truncationMarker)]) + truncationMarker
}
