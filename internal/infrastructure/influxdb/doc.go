// Package influxdb records bot telemetry in InfluxDB.
//
// Every command invocation becomes a bot_commands point tagged with the
// command name, guild, and outcome, carrying its latency in milliseconds.
// The install routine reports how many files it applied.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.RecordCommand("ping", guildID, 12*time.Millisecond, true)
//
// Writes are non-blocking and batched (batch_size, flush_interval).
// Asynchronous write failures go to the SetOnError callback.
package influxdb
