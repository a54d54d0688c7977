// Package mqtttest provides an in-memory paho.Client for tests.
package mqtttest

import (
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Published is a published message.
type Published struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// Client is a paho.Client delivering published messages to local
// subscriptions. Methods not needed by the tests panic.
type Client struct {
	paho.Client

	lock      sync.Mutex
	connected bool
	published []Published
	routes    map[string]paho.MessageHandler
	// OnConnect is invoked by Connect.
	OnConnect paho.OnConnectHandler
}

// NewClient creates a Client.
func NewClient() *Client {
	return &Client{routes: make(map[string]paho.MessageHandler)}
}

// IsConnected implements paho.Client.
func (c *Client) IsConnected() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.connected
}

// Connect implements paho.Client.
func (c *Client) Connect() paho.Token {
	c.lock.Lock()
	c.connected = true
	c.lock.Unlock()
	if c.OnConnect != nil {
		c.OnConnect(c)
	}
	return &paho.DummyToken{}
}

// Disconnect implements paho.Client.
func (c *Client) Disconnect(uint) {
	c.lock.Lock()
	c.connected = false
	c.lock.Unlock()
}

// Publish implements paho.Client.
func (c *Client) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	var data []byte
	switch p := payload.(type) {
	case []byte:
		data = p
	case string:
		data = []byte(p)
	}
	c.lock.Lock()
	c.published = append(c.published, Published{Topic: topic, QoS: qos, Retained: retained, Payload: data})
	c.lock.Unlock()
	return &paho.DummyToken{}
}

// Subscribe implements paho.Client.
func (c *Client) Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token {
	c.lock.Lock()
	c.routes[topic] = callback
	c.lock.Unlock()
	return &paho.DummyToken{}
}

// SubscribeMultiple implements paho.Client.
func (c *Client) SubscribeMultiple(filters map[string]byte, callback paho.MessageHandler) paho.Token {
	for topic := range filters {
		c.Subscribe(topic, 0, callback)
	}
	return &paho.DummyToken{}
}

// Unsubscribe implements paho.Client.
func (c *Client) Unsubscribe(topics ...string) paho.Token {
	c.lock.Lock()
	for _, topic := range topics {
		delete(c.routes, topic)
	}
	c.lock.Unlock()
	return &paho.DummyToken{}
}

// Subscribed returns whether the filter is subscribed.
func (c *Client) Subscribed(filter string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	_, ok := c.routes[filter]
	return ok
}

// Deliver sends a message to the handler subscribed with filter.
func (c *Client) Deliver(filter, topic string, payload []byte) bool {
	c.lock.Lock()
	handler := c.routes[filter]
	c.lock.Unlock()
	if handler == nil {
		return false
	}
	handler(c, &Message{TopicName: topic, Data: payload})
	return true
}

// Published returns published messages.
func (c *Client) Published() []Published {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]Published(nil), c.published...)
}

// Message implements paho.Message.
type Message struct {
	TopicName string
	Data      []byte
}

// Duplicate implements paho.Message.
func (m *Message) Duplicate() bool { return false }

// Qos implements paho.Message.
func (m *Message) Qos() byte { return 0 }

// Retained implements paho.Message.
func (m *Message) Retained() bool { return false }

// Topic implements paho.Message.
func (m *Message) Topic() string { return m.TopicName }

// MessageID implements paho.Message.
func (m *Message) MessageID() uint16 { return 0 }

// Payload implements paho.Message.
func (m *Message) Payload() []byte { return m.Data }

// Ack implements paho.Message.
func (m *Message) Ack() {}
