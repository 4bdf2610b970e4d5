package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/writerbot/internal/infrastructure/config"
	"github.com/nerrad567/writerbot/internal/infrastructure/database"
)

const (
	tableUserStats = "user_stats"

	// maxWordsPerEntry is the most words a single "wrote" can add.
	maxWordsPerEntry = 1_000_000

	defaultTopLimit = 10
	maxTopLimit     = 25
)

// builtinCommands returns the commands registered by LoadCommands.
func builtinCommands() []Command {
	return []Command{
		{
			Name:        "help",
			Aliases:     []string{"commands"},
			Usage:       "help [command]",
			Description: "List commands, or show how to use one.",
			Run:         runHelp,
		},
		{
			Name:        "ping",
			Usage:       "ping",
			Description: "Check that the bot is alive.",
			Run:         runPing,
		},
		{
			Name:        "prefix",
			Usage:       "prefix [new prefix]",
			Description: "Show or change the command prefix for this server.",
			Run:         runPrefix,
		},
		{
			Name:        "wrote",
			Aliases:     []string{"wc"},
			Usage:       "wrote <words>",
			Description: "Add words to your total for this server.",
			GuildOnly:   true,
			Run:         runWrote,
		},
		{
			Name:        "stats",
			Aliases:     []string{"total"},
			Usage:       "stats",
			Description: "Show your word count and the server total.",
			GuildOnly:   true,
			Run:         runStats,
		},
		{
			Name:        "top",
			Aliases:     []string{"leaderboard"},
			Usage:       "top [count]",
			Description: "Show the writers with the most words in this server.",
			GuildOnly:   true,
			Run:         runTop,
		},
		{
			Name:        "reset",
			Usage:       "reset",
			Description: "Reset your word count for this server.",
			GuildOnly:   true,
			Run:         runReset,
		},
	}
}

func runHelp(_ context.Context, b *Bot, inv *Invocation) (string, error) {
	if len(inv.Args) > 0 {
		cmd, ok := b.registry.Lookup(inv.Args[0])
		if !ok {
			return fmt.Sprintf("No command called `%s`.", inv.Args[0]), nil
		}
		reply := fmt.Sprintf("`%s%s`\n%s", inv.Prefix, cmd.Usage, cmd.Description)
		if len(cmd.Aliases) > 0 {
			reply += "\nAliases: " + strings.Join(cmd.Aliases, ", ")
		}
		return reply, nil
	}

	var sb strings.Builder
	sb.WriteString("Commands:\n")
	for _, cmd := range b.registry.Commands() {
		fmt.Fprintf(&sb, "`%s%s` - %s\n", inv.Prefix, cmd.Name, cmd.Description)
	}
	fmt.Fprintf(&sb, "Use `%shelp <command>` for details.", inv.Prefix)
	return sb.String(), nil
}

func runPing(_ context.Context, b *Bot, _ *Invocation) (string, error) {
	return fmt.Sprintf("Pong! Up for %s.", b.Uptime().Truncate(time.Second)), nil
}

func runPrefix(ctx context.Context, b *Bot, inv *Invocation) (string, error) {
	if len(inv.Args) == 0 {
		return fmt.Sprintf("The prefix here is `%s`.", inv.Prefix), nil
	}
	if inv.Message.GuildID == "" {
		return "", ErrGuildOnly
	}
	if len(inv.Args) > 1 {
		return "", ErrUsage
	}

	allowed, err := b.session.CanManage(ctx, inv.Message.ChannelID, inv.Message.AuthorID)
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", ErrForbidden
	}

	next := inv.Args[0]
	if err := b.prefixes.Set(ctx, inv.Message.GuildID, next); err != nil {
		if errors.Is(err, config.ErrInvalidPrefix) {
			return fmt.Sprintf("That prefix can't be used (%v).", err), nil
		}
		return "", err
	}
	return fmt.Sprintf("Prefix changed to `%s`.", next), nil
}

func runWrote(ctx context.Context, b *Bot, inv *Invocation) (string, error) {
	if len(inv.Args) != 1 {
		return "", ErrUsage
	}
	words, err := strconv.ParseInt(strings.ReplaceAll(inv.Args[0], ",", ""), 10, 64)
	if err != nil || words <= 0 || words > maxWordsPerEntry {
		return "", ErrUsage
	}

	msg := inv.Message
	if err := addWords(ctx, b.store, msg.GuildID, msg.AuthorID, words); err != nil {
		return "", err
	}

	total, err := userWords(ctx, b.store, msg.GuildID, msg.AuthorID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Added %d words. Your total is now %d.", words, total), nil
}

// addWords adds words to the user's total, creating the row on first use.
//
// Two first entries from the same user can both find no row to update.
// The one whose insert loses the race retries the update instead.
func addWords(ctx context.Context, store Store, guildID, userID string, words int64) error {
	updated, err := incrementWords(ctx, store, guildID, userID, words)
	if err != nil || updated > 0 {
		return err
	}

	_, err = store.Insert(ctx, tableUserStats, database.Params{
		database.P("user_id", userID),
		database.P("guild_id", guildID),
		database.P("words", words),
	})
	if err == nil {
		return nil
	}
	if updated, retryErr := incrementWords(ctx, store, guildID, userID, words); retryErr == nil && updated > 0 {
		return nil
	}
	return err
}

func incrementWords(ctx context.Context, store Store, guildID, userID string, words int64) (int64, error) {
	res, err := store.Execute(ctx,
		"UPDATE user_stats SET words = words + ? WHERE user_id = ? AND guild_id = ?",
		words, userID, guildID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func runStats(ctx context.Context, b *Bot, inv *Invocation) (string, error) {
	msg := inv.Message

	mine, err := userWords(ctx, b.store, msg.GuildID, msg.AuthorID)
	if err != nil {
		return "", err
	}

	row, err := b.store.GetSQL(ctx,
		"SELECT COUNT(*) AS writers, SUM(words) AS total FROM user_stats WHERE guild_id = ?",
		msg.GuildID,
	)
	if err != nil {
		return "", err
	}
	writers, _ := row.Int64("writers")
	total, _ := row.Int64("total")

	return fmt.Sprintf("You have written %d words. %d writers here have written %d words in total.",
		mine, writers, total), nil
}

func runTop(ctx context.Context, b *Bot, inv *Invocation) (string, error) {
	limit := defaultTopLimit
	if len(inv.Args) > 0 {
		n, err := strconv.Atoi(inv.Args[0])
		if err != nil || n <= 0 {
			return "", ErrUsage
		}
		limit = min(n, maxTopLimit)
	}

	rows, err := b.store.GetAll(ctx, database.Query{
		Table:  tableUserStats,
		Fields: []string{"user_id", "words"},
		Where:  database.Params{database.P("guild_id", inv.Message.GuildID)},
		Sort:   []string{"words DESC", "user_id"},
		Limit:  limit,
	})
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "Nobody here has written anything yet.", nil
	}

	var sb strings.Builder
	sb.WriteString("Top writers:")
	for i, row := range rows {
		words, _ := row.Int64("words")
		fmt.Fprintf(&sb, "\n%d. <@%s> - %d words", i+1, row.String("user_id"), words)
	}
	return sb.String(), nil
}

func runReset(ctx context.Context, b *Bot, inv *Invocation) (string, error) {
	n, err := b.store.Delete(ctx, tableUserStats, database.Params{
		database.P("user_id", inv.Message.AuthorID),
		database.P("guild_id", inv.Message.GuildID),
	})
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "You had nothing to reset.", nil
	}
	return "Your word count has been reset.", nil
}

// userWords returns the author's total, 0 when they have no row.
func userWords(ctx context.Context, store Store, guildID, userID string) (int64, error) {
	row, err := store.Get(ctx, database.Query{
		Table:  tableUserStats,
		Fields: []string{"words"},
		Where: database.Params{
			database.P("user_id", userID),
			database.P("guild_id", guildID),
		},
	})
	if err != nil {
		return 0, err
	}
	words, _ := row.Int64("words")
	return words, nil
}
