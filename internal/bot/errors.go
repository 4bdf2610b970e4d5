package bot

import "errors"

// Sentinel errors for the bot package.
//
// Commands return ErrUsage, ErrGuildOnly, and ErrForbidden for mistakes the
// user can fix; the dispatcher turns those into a reply and does not log
// them as failures.
var (
	// ErrDuplicateCommand is returned by Register when a name or alias is taken.
	ErrDuplicateCommand = errors.New("bot: command already registered")

	// ErrInvalidCommand is returned by Register for a command without a
	// usable name or handler.
	ErrInvalidCommand = errors.New("bot: invalid command")

	// ErrInvalidOptions is returned by New when a required option is missing.
	ErrInvalidOptions = errors.New("bot: invalid options")

	// ErrUsage means the arguments did not match the command's usage.
	ErrUsage = errors.New("bot: invalid arguments")

	// ErrGuildOnly means the command was used outside a guild.
	ErrGuildOnly = errors.New("bot: command only available in a guild")

	// ErrForbidden means the author lacks the permission the command needs.
	ErrForbidden = errors.New("bot: permission denied")

	// ErrCommandPanic is returned when a command handler panics.
	ErrCommandPanic = errors.New("bot: command panicked")

	// ErrNotConnected is returned by the chat adapter before it is open.
	ErrNotConnected = errors.New("bot: chat session not connected")
)

// isUserError reports whether err is a mistake by the person invoking the
// command rather than a fault in the bot.
func isUserError(err error) bool {
	return errors.Is(err, ErrUsage) || errors.Is(err, ErrGuildOnly) || errors.Is(err, ErrForbidden)
}
