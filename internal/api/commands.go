package api

import (
	"net/http"
)

// CommandInfo describes one chat command.
type CommandInfo struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases"`
	Usage       string   `json:"usage"`
	Description string   `json:"description"`
	GuildOnly   bool     `json:"guild_only"`
}

// handleListCommands returns every registered command sorted by name.
func (s *Server) handleListCommands(w http.ResponseWriter, _ *http.Request) {
	if s.commands == nil {
		writeUnavailable(w, "commands not available")
		return
	}

	cmds := s.commands.Commands()
	out := make([]CommandInfo, 0, len(cmds))
	for _, cmd := range cmds {
		aliases := cmd.Aliases
		if aliases == nil {
			aliases = []string{}
		}
		out = append(out, CommandInfo{
			Name:        cmd.Name,
			Aliases:     aliases,
			Usage:       cmd.Usage,
			Description: cmd.Description,
			GuildOnly:   cmd.GuildOnly,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"commands": out,
		"count":    len(out),
	})
}

// handleFlushPrefixes drops the guild prefix cache so the next message in
// each guild re-reads guild_settings.
func (s *Server) handleFlushPrefixes(w http.ResponseWriter, _ *http.Request) {
	if s.prefixes == nil {
		writeUnavailable(w, "prefix cache not available")
		return
	}

	flushed := s.prefixes.Cached()
	s.prefixes.Flush()
	s.logger.Info("prefix cache flushed", "entries", flushed)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"flushed": flushed,
	})
}
