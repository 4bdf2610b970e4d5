package mqtt

import (
	"fmt"
)

// Subscribe registers handler for topic. Wildcards (+ and #) are allowed.
//
// The subscription is tracked and restored after a reconnect.
//
// Parameters:
//   - topic: Topic or wildcard pattern to subscribe to
//   - qos: Maximum QoS the broker should deliver with (0, 1, or 2)
//   - handler: Called for each matching message; must not be nil
//
// Returns:
//   - error: ErrNotConnected when offline, or ErrSubscribeFailed if the
//     broker rejects the subscription
//
//	err := client.Subscribe(mqtt.Topics{}.ControlPrefixFlush(), 1,
//	    func(topic string, payload []byte) error {
//	        resolver.Flush()
//	        return nil
//	    })
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	c.subscriptions[topic] = subscription{topic: topic, qos: qos, handler: handler}
	c.subMu.Unlock()

	if err := waitToken(c.client.Subscribe(topic, qos, c.wrapHandler(handler)), ErrSubscribeFailed); err != nil {
		c.forget(topic)
		return err
	}
	return nil
}

// SubscriptionCount returns the number of tracked subscriptions.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}

// HasSubscription reports whether topic (exact string) is tracked.
func (c *Client) HasSubscription(topic string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, exists := c.subscriptions[topic]
	return exists
}

func (c *Client) forget(topic string) {
	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()
}
