// Package mqtt provides the optional MQTT event bus for WriterBot.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - A retained online/offline status, with Last Will for crashes
//   - Publishing command events as JSON
//   - Control subscriptions (flushing the prefix cache)
//
// # Topics
//
//	writerbot/system/status            retained Status payload
//	writerbot/event/command/{name}     one message per command run
//	writerbot/control/prefix/flush     any payload flushes cached prefixes
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(mqtt.Topics{}.CommandEvent("ping"), event)
package mqtt
