package bot

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/writerbot/internal/infrastructure/config"
)

func TestPrefixResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	p := NewPrefixResolver(openTestStore(t), "!")

	t.Run("direct message uses fallback", func(t *testing.T) {
		got, err := p.Resolve(ctx, "")
		if err != nil || got != "!" {
			t.Errorf("Resolve(\"\") = %q, %v, want \"!\", nil", got, err)
		}
	})

	t.Run("guild without setting uses fallback", func(t *testing.T) {
		got, err := p.Resolve(ctx, "g-none")
		if err != nil || got != "!" {
			t.Errorf("Resolve() = %q, %v, want \"!\", nil", got, err)
		}
	})

	t.Run("stored prefix", func(t *testing.T) {
		if err := p.Set(ctx, "g-custom", "?"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		p.Flush()

		got, err := p.Resolve(ctx, "g-custom")
		if err != nil || got != "?" {
			t.Errorf("Resolve() = %q, %v, want \"?\", nil", got, err)
		}
	})
}

func TestPrefixResolver_Set(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	p := NewPrefixResolver(store, "!")

	if err := p.Set(ctx, testGuild, "$"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := p.Set(ctx, testGuild, "%%"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	rows, err := store.GetAllSQL(ctx, "SELECT value FROM guild_settings WHERE guild_id = ?", testGuild)
	if err != nil {
		t.Fatalf("GetAllSQL() error = %v", err)
	}
	if len(rows) != 1 || rows[0].String("value") != "%%" {
		t.Errorf("stored rows = %v, want one row with %q", rows, "%%")
	}

	if err := p.Set(ctx, testGuild, "!"); err != nil {
		t.Fatalf("Set(fallback) error = %v", err)
	}
	rows, err = store.GetAllSQL(ctx, "SELECT value FROM guild_settings WHERE guild_id = ?", testGuild)
	if err != nil {
		t.Fatalf("GetAllSQL() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("setting the fallback left %d rows, want 0", len(rows))
	}
	if got, _ := p.Resolve(ctx, testGuild); got != "!" {
		t.Errorf("Resolve() after reset = %q, want \"!\"", got)
	}

	for _, bad := range []string{"", "has space", "waytoolongprefix"} {
		if err := p.Set(ctx, testGuild, bad); !errors.Is(err, config.ErrInvalidPrefix) {
			t.Errorf("Set(%q) error = %v, want ErrInvalidPrefix", bad, err)
		}
	}
}

func TestPrefixResolver_SetConcurrent(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	p := NewPrefixResolver(newRacingStore(store, "Get", 2), "!")

	var wg sync.WaitGroup
	prefixes := []string{"?", "$"}
	errs := make([]error, len(prefixes))
	for i, prefix := range prefixes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = p.Set(ctx, testGuild, prefix)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Set(%q) error = %v", prefixes[i], err)
		}
	}

	rows, err := store.GetAllSQL(ctx, "SELECT value FROM guild_settings WHERE guild_id = ?", testGuild)
	if err != nil {
		t.Fatalf("GetAllSQL() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("stored rows = %d, want 1", len(rows))
	}
	if v := rows[0].String("value"); v != "?" && v != "$" {
		t.Errorf("stored prefix = %q, want one of the two", v)
	}
}

func TestPrefixResolver_WarmAndFlush(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	writer := NewPrefixResolver(store, "!")
	for guild, prefix := range map[string]string{"g1": "?", "g2": ">>"} {
		if err := writer.Set(ctx, guild, prefix); err != nil {
			t.Fatalf("Set(%s) error = %v", guild, err)
		}
	}

	p := NewPrefixResolver(store, "!")
	n, err := p.Warm(ctx)
	if err != nil {
		t.Fatalf("Warm() error = %v", err)
	}
	if n != 2 || p.Cached() != 2 {
		t.Errorf("Warm() = %d, Cached() = %d, want 2 and 2", n, p.Cached())
	}

	p.Flush()
	if p.Cached() != 0 {
		t.Errorf("Cached() after Flush = %d, want 0", p.Cached())
	}
}

func TestPrefixResolver_Strip(t *testing.T) {
	p := NewPrefixResolver(nil, "!")

	tests := []struct {
		name    string
		content string
		prefix  string
		want    string
		wantOK  bool
	}{
		{"prefix", "!wrote 500", "!", "wrote 500", true},
		{"multi char prefix", "wb.top", "wb.", "top", true},
		{"no prefix", "wrote 500", "!", "", false},
		{"other prefix", "?wrote", "!", "", false},
		{"empty prefix", "wrote", "", "", false},
		{"bare prefix", "!", "!", "", true},
		{"mention before self id", "<@42> ping", "!", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.Strip(tt.content, tt.prefix)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Strip(%q, %q) = %q, %v, want %q, %v", tt.content, tt.prefix, got, ok, tt.want, tt.wantOK)
			}
		})
	}

	p.SetSelfID("42")
	for _, content := range []string{"<@42> ping", "<@!42>   ping", "<@42>ping"} {
		got, ok := p.Strip(content, "!")
		if !ok || got != "ping" {
			t.Errorf("Strip(%q) = %q, %v, want \"ping\", true", content, got, ok)
		}
	}
	if _, ok := p.Strip("<@43> ping", "!"); ok {
		t.Error("Strip() accepted a mention of another user")
	}
}
