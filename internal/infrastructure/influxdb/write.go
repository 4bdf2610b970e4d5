package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementCommands = "bot_commands"
	MeasurementInstall  = "bot_install"
)

// directMessageTag replaces the empty guild ID of direct messages.
const directMessageTag = "dm"

// RecordCommand writes one command invocation: its latency and whether
// it succeeded.
//
//	client.RecordCommand("wrote", guildID, time.Since(start), err == nil)
func (c *Client) RecordCommand(command, guildID string, duration time.Duration, ok bool) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(commandPoint(command, guildID, duration, ok, time.Now()))
}

// RecordInstall writes the number of install files applied at startup.
func (c *Client) RecordInstall(applied int, duration time.Duration) {
	c.writePoint(MeasurementInstall, nil, map[string]interface{}{
		"files":       applied,
		"duration_ms": durationMillis(duration),
	})
}

// writePoint queues a point stamped with the current time. Points are
// dropped once the client is closed.
func (c *Client) writePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

func commandPoint(command, guildID string, duration time.Duration, ok bool, ts time.Time) *write.Point {
	if guildID == "" {
		guildID = directMessageTag
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}

	return write.NewPoint(
		MeasurementCommands,
		map[string]string{
			"command":  command,
			"guild_id": guildID,
			"outcome":  outcome,
		},
		map[string]interface{}{
			"duration_ms": durationMillis(duration),
		},
		ts,
	)
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
