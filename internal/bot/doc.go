// Package bot implements WriterBot's command handling.
//
// A Bot owns a command Registry and a PrefixResolver. Incoming messages
// are matched against the guild's prefix (or a mention of the bot), split
// into arguments, and routed to a Command. The command's reply is sent
// back through the Session.
//
// Built-in commands:
//
//	help [command]     list commands or show one
//	ping               liveness check
//	prefix [new]       show or change the guild prefix (Manage Server)
//	wrote <words>      add to your word count
//	stats              your count and the guild total
//	top [count]        guild leaderboard
//	reset              clear your count
//
// Word counts and guild prefixes live in the user_stats and
// guild_settings tables created by the install files.
//
// Discord is the production Session. Tests use any type with Send and
// CanManage.
package bot
