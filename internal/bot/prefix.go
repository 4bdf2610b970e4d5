package bot

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"github.com/nerrad567/writerbot/internal/infrastructure/config"
	"github.com/nerrad567/writerbot/internal/infrastructure/database"
)

// Guild settings storage.
const (
	tableGuildSettings = "guild_settings"
	settingPrefix      = "prefix"
)

// PrefixResolver decides which command prefix applies to a message.
//
// Guilds may store their own prefix in guild_settings. Lookups are cached
// in memory until Flush. Direct messages and guilds without a stored
// prefix use the fallback. Mentioning the bot always works as a prefix
// once the bot's own user ID is known.
//
// All methods are thread-safe.
type PrefixResolver struct {
	store    Store
	fallback string

	mu     sync.RWMutex
	cache  map[string]string // guild ID -> prefix
	selfID string
}

// NewPrefixResolver creates a resolver backed by store.
func NewPrefixResolver(store Store, fallback string) *PrefixResolver {
	return &PrefixResolver{
		store:    store,
		fallback: fallback,
		cache:    make(map[string]string),
	}
}

// Default returns the fallback prefix.
func (p *PrefixResolver) Default() string {
	return p.fallback
}

// Resolve returns the prefix for guildID. On a database error the
// fallback is returned together with the error and nothing is cached.
func (p *PrefixResolver) Resolve(ctx context.Context, guildID string) (string, error) {
	if guildID == "" {
		return p.fallback, nil
	}

	p.mu.RLock()
	prefix, ok := p.cache[guildID]
	p.mu.RUnlock()
	if ok {
		return prefix, nil
	}

	row, err := p.store.Get(ctx, database.Query{
		Table:  tableGuildSettings,
		Fields: []string{"value"},
		Where: database.Params{
			database.P("guild_id", guildID),
			database.P("setting", settingPrefix),
		},
	})
	if err != nil {
		return p.fallback, err
	}

	prefix = p.fallback
	if stored := row.String("value"); stored != "" {
		prefix = stored
	}

	p.mu.Lock()
	p.cache[guildID] = prefix
	p.mu.Unlock()

	return prefix, nil
}

// Set stores prefix for guildID. Setting the fallback prefix removes the
// guild's row instead.
func (p *PrefixResolver) Set(ctx context.Context, guildID, prefix string) error {
	if err := config.ValidatePrefix(prefix); err != nil {
		return err
	}

	where := database.Params{
		database.P("guild_id", guildID),
		database.P("setting", settingPrefix),
	}

	if prefix == p.fallback {
		if _, err := p.store.Delete(ctx, tableGuildSettings, where); err != nil {
			return err
		}
	} else {
		existing, err := p.store.Get(ctx, database.Query{Table: tableGuildSettings, Where: where})
		if err != nil {
			return err
		}
		set := database.Params{database.P("value", prefix)}
		if existing == nil {
			if _, err := p.store.Insert(ctx, tableGuildSettings, append(where, set...)); err != nil {
				// Another Set for this guild may have inserted the row
				// since the Get above.
				updated, updateErr := p.store.Update(ctx, tableGuildSettings, set, where)
				if updateErr != nil || updated == 0 {
					return err
				}
			}
		} else if _, err := p.store.Update(ctx, tableGuildSettings, set, where); err != nil {
			return err
		}
	}

	p.mu.Lock()
	p.cache[guildID] = prefix
	p.mu.Unlock()
	return nil
}

// Warm loads every stored prefix into the cache and returns how many
// were found.
func (p *PrefixResolver) Warm(ctx context.Context) (int, error) {
	rows, err := p.store.GetAllSQL(ctx,
		"SELECT guild_id, value FROM guild_settings WHERE setting = ?",
		settingPrefix,
	)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, row := range rows {
		if guildID := row.String("guild_id"); guildID != "" {
			p.cache[guildID] = row.String("value")
		}
	}
	return len(rows), nil
}

// Flush drops every cached prefix.
func (p *PrefixResolver) Flush() {
	p.mu.Lock()
	p.cache = make(map[string]string)
	p.mu.Unlock()
}

// Cached returns the number of cached guild prefixes.
func (p *PrefixResolver) Cached() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.cache)
}

// SetSelfID records the bot's own user ID, enabling mention prefixes.
func (p *PrefixResolver) SetSelfID(id string) {
	p.mu.Lock()
	p.selfID = id
	p.mu.Unlock()
}

// Strip removes a mention of the bot or prefix from the start of content.
// It reports false when content is not addressed to the bot.
func (p *PrefixResolver) Strip(content, prefix string) (string, bool) {
	p.mu.RLock()
	selfID := p.selfID
	p.mu.RUnlock()

	if selfID != "" {
		for _, mention := range []string{"<@" + selfID + ">", "<@!" + selfID + ">"} {
			if rest, ok := strings.CutPrefix(content, mention); ok {
				return strings.TrimLeftFunc(rest, unicode.IsSpace), true
			}
		}
	}

	if prefix == "" {
		return "", false
	}
	rest, ok := strings.CutPrefix(content, prefix)
	if !ok {
		return "", false
	}
	return rest, true
}
