package mqtt

import (
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MockToken implements mqtt.Token for testing
type MockToken struct {
	err  error
	done chan struct{}
}

// NewMockToken returns a completed token carrying err
func NewMockToken(err error) *MockToken {
	t := &MockToken{
		err:  err,
		done: make(chan struct{}),
	}
	close(t.done)
	return t
}

// newPendingToken returns a token that never completes
func newPendingToken() *MockToken {
	return &MockToken{done: make(chan struct{})}
}

func (t *MockToken) Wait() bool                       { return true }
func (t *MockToken) WaitTimeout(d time.Duration) bool { return true }
func (t *MockToken) Error() error                     { return t.err }
func (t *MockToken) Done() <-chan struct{}            { return t.done }

// MockMessage implements mqtt.Message for testing
type MockMessage struct {
	topic   string
	payload []byte
}

func (m *MockMessage) Duplicate() bool   { return false }
func (m *MockMessage) Qos() byte         { return 0 }
func (m *MockMessage) Retained() bool    { return false }
func (m *MockMessage) Topic() string     { return m.topic }
func (m *MockMessage) MessageID() uint16 { return 0 }
func (m *MockMessage) Payload() []byte   { return m.payload }
func (m *MockMessage) Ack()              {}

// MockClient implements mqtt.Client for testing
type MockClient struct {
	connected     atomic.Bool
	disconnected  atomic.Bool
	connectErr    error
	publishFunc   func(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	subscribeFunc func(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	handlers      map[string]mqtt.MessageHandler
	subscribes    int
	mu            sync.RWMutex
}

func NewMockClient() *MockClient {
	return &MockClient{
		handlers: make(map[string]mqtt.MessageHandler),
		publishFunc: func(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
			return NewMockToken(nil)
		},
		subscribeFunc: func(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
			return NewMockToken(nil)
		},
	}
}

func (m *MockClient) Connect() mqtt.Token { return NewMockToken(m.connectErr) }
func (m *MockClient) Disconnect(quiesce uint) {
	m.disconnected.Store(true)
}
func (m *MockClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	return m.publishFunc(topic, qos, retained, payload)
}
func (m *MockClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	token := m.subscribeFunc(topic, qos, callback)
	if token.Error() == nil {
		m.mu.Lock()
		m.handlers[topic] = callback
		m.subscribes++
		m.mu.Unlock()
	}
	return token
}
func (m *MockClient) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	return NewMockToken(nil)
}
func (m *MockClient) Unsubscribe(topics ...string) mqtt.Token         { return NewMockToken(nil) }
func (m *MockClient) AddRoute(topic string, callback mqtt.MessageHandler) {}
func (m *MockClient) IsConnected() bool                                 { return m.connected.Load() }
func (m *MockClient) IsConnectionOpen() bool                            { return true }
func (m *MockClient) OptionsReader() mqtt.ClientOptionsReader           { return mqtt.ClientOptionsReader{} }

// deliver invokes the handler registered for topic
func (m *MockClient) deliver(topic string, payload []byte) {
	m.mu.RLock()
	h := m.handlers[topic]
	m.mu.RUnlock()
	if h != nil {
		h(m, &MockMessage{topic: topic, payload: payload})
	}
}

func (m *MockClient) subscribeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.subscribes
}
