package mqtt

import "fmt"

// Topic prefixes. Everything the bot publishes or listens to lives
// under TopicPrefix.
const (
	TopicPrefix        = "writerbot"
	TopicPrefixSystem  = TopicPrefix + "/system"
	TopicPrefixEvent   = TopicPrefix + "/event"
	TopicPrefixControl = TopicPrefix + "/control"
)

// Topics provides builders for the bot's MQTT topics.
//
//	topic := mqtt.Topics{}.CommandEvent("ping")
//	// Returns: "writerbot/event/command/ping"
type Topics struct{}

// SystemStatus returns the retained online/offline status topic.
//
// Example: writerbot/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// CommandEvent returns the topic a command invocation is reported on.
//
// Example: writerbot/event/command/wrote
func (Topics) CommandEvent(command string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefixEvent, command)
}

// ControlPrefixFlush returns the topic that asks the bot to drop its
// cached guild prefixes.
//
// Example: writerbot/control/prefix/flush
func (Topics) ControlPrefixFlush() string {
	return TopicPrefixControl + "/prefix/flush"
}
