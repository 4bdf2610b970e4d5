//go:build integration

package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// Integration tests need a broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func connectTest(t *testing.T, clientID string) *Client {
	t.Helper()

	cfg := testConfig()
	cfg.Broker.ClientID = clientID

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

func TestIntegration_Connect(t *testing.T) {
	client := connectTest(t, "writerbot-int-connect")

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(t.Context()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestIntegration_ConnectRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19999

	_, err := Connect(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestIntegration_CommandEventRoundtrip(t *testing.T) {
	sub := connectTest(t, "writerbot-int-sub")
	pub := connectTest(t, "writerbot-int-pub")

	allCommands := TopicPrefixEvent + "/command/+"
	received := make(chan map[string]any, 1)
	err := sub.Subscribe(allCommands, 1, func(_ string, payload []byte) error {
		var event map[string]any
		if err := json.Unmarshal(payload, &event); err != nil {
			return err
		}
		received <- event
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !sub.HasSubscription(allCommands) {
		t.Error("subscription not tracked")
	}

	if err := pub.PublishJSON(Topics{}.CommandEvent("ping"), map[string]any{"command": "ping"}); err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}

	select {
	case event := <-received:
		if event["command"] != "ping" {
			t.Errorf("event = %v, want command ping", event)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for command event")
	}
}

func TestIntegration_Close(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "writerbot-int-close"

	watcher := connectTest(t, "writerbot-int-close-watch")
	offline := make(chan Status, 1)
	err := watcher.Subscribe(Topics{}.SystemStatus(), 1, func(_ string, payload []byte) error {
		var status Status
		if err := json.Unmarshal(payload, &status); err != nil {
			return err
		}
		if status.ClientID == cfg.Broker.ClientID && status.Status == statusOffline {
			select {
			case offline <- status:
			default:
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}

	select {
	case status := <-offline:
		if status.Reason != reasonShutdown {
			t.Errorf("offline reason = %q, want %q", status.Reason, reasonShutdown)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the offline status")
	}
}
