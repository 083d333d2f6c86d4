// Package messaging wraps kafka-go with trace propagation. The order.paid
// topic carries the fulfillment signal from the webhook path to the
// invitation worker.
package messaging

import "github.com/segmentio/kafka-go"

// TopicOrderPaid carries one event per order, published on the first
// arrival of a paid callback.
const TopicOrderPaid = "order.paid"

// headerCarrier adapts kafka message headers to the OTel TextMapCarrier
// interface so consumer spans join the webhook trace.
type headerCarrier struct {
	msg *kafka.Message
}

func (c headerCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, len(c.msg.Headers))
	for i, h := range c.msg.Headers {
		keys[i] = h.Key
	}
	return keys
}
