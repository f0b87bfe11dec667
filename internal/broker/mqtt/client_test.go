package mqtt

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-rules/config"
	"notification-rules/internal/broker"
	"notification-rules/internal/logger"
	"notification-rules/internal/metrics"
)

func setupTestClient(t *testing.T) (*Client, *MockClient, *metrics.Metrics) {
	t.Helper()
	m, err := metrics.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	mock := NewMockClient()
	cfg := config.MQTTConfig{Broker: "tcp://localhost:1883", ClientID: "test", QoS: 1}
	return NewClientWithPaho(cfg, mock, logger.NewNop(), m), mock, m
}

func TestPublish(t *testing.T) {
	tests := []struct {
		name      string
		connected bool
		tokenErr  error
		wantErr   error
		wantStats ClientStats
	}{
		{
			name:      "success",
			connected: true,
			wantStats: ClientStats{MessagesPublished: 1},
		},
		{
			name:      "not connected",
			connected: false,
			wantErr:   broker.ErrNotConnected,
		},
		{
			name:      "token error",
			connected: true,
			tokenErr:  errors.New("publish refused"),
			wantStats: ClientStats{Errors: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mock, _ := setupTestClient(t)
			c.connected.Store(tt.connected)

			var gotTopic string
			var gotQoS byte
			mock.publishFunc = func(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
				gotTopic = topic
				gotQoS = qos
				return NewMockToken(tt.tokenErr)
			}

			err := c.Publish(context.Background(), "alerts/motion", []byte(`{}`))
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				return
			case tt.tokenErr != nil:
				assert.ErrorIs(t, err, tt.tokenErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, "alerts/motion", gotTopic)
				assert.Equal(t, byte(1), gotQoS)
			}

			stats := c.GetStats()
			assert.Equal(t, tt.wantStats.MessagesPublished, stats.MessagesPublished)
			assert.Equal(t, tt.wantStats.Errors, stats.Errors)
		})
	}
}

func TestPublishContextCancelled(t *testing.T) {
	c, mock, _ := setupTestClient(t)
	mock.publishFunc = func(string, byte, bool, interface{}) mqtt.Token {
		return newPendingToken()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := c.Publish(ctx, "alerts", []byte(`{}`))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, uint64(1), c.GetStats().Errors)
}

func TestSubscribe(t *testing.T) {
	c, mock, _ := setupTestClient(t)

	var got []string
	require.NoError(t, c.Subscribe("notifications", func(topic string, payload []byte) {
		got = append(got, topic+":"+string(payload))
	}))

	mock.deliver("notifications", []byte("one"))
	mock.deliver("notifications", []byte("two"))

	assert.Equal(t, []string{"notifications:one", "notifications:two"}, got)
	assert.Equal(t, uint64(2), c.GetStats().MessagesReceived)
	assert.Equal(t, []string{"notifications"}, c.GetSubscribedTopics())
}

func TestSubscribeErrors(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		c, _, _ := setupTestClient(t)
		c.connected.Store(false)
		assert.ErrorIs(t, c.Subscribe("notifications", func(string, []byte) {}), broker.ErrNotConnected)
	})

	t.Run("token error", func(t *testing.T) {
		c, mock, _ := setupTestClient(t)
		mock.subscribeFunc = func(string, byte, mqtt.MessageHandler) mqtt.Token {
			return NewMockToken(errors.New("not authorized"))
		}
		assert.Error(t, c.Subscribe("notifications", func(string, []byte) {}))
		assert.Empty(t, c.GetSubscribedTopics())
	})
}

func TestReconnectRestoresSubscriptions(t *testing.T) {
	c, mock, _ := setupTestClient(t)
	require.NoError(t, c.Subscribe("notifications", func(string, []byte) {}))
	require.Equal(t, 1, mock.subscribeCount())

	c.handleDisconnect(mock, errors.New("connection reset"))
	assert.False(t, c.IsConnected())

	c.handleReconnecting(mock, mqtt.NewClientOptions().AddBroker("tcp://localhost:1883"))
	c.handleConnect(mock)

	assert.True(t, c.IsConnected())
	assert.Equal(t, 2, mock.subscribeCount())
}

func TestSubscribeRightAfterConnect(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewMetrics(reg)
	require.NoError(t, err)

	mock := NewMockClient()
	c := newClient(config.MQTTConfig{ClientID: "test", QoS: 1}, logger.NewNop(), m)
	c.client = mock

	// OnConnect has not run yet
	require.NoError(t, c.connect())
	assert.True(t, c.IsConnected())
	require.NoError(t, c.Subscribe("notifications", func(string, []byte) {}))
	assert.Equal(t, 1, mock.subscribeCount())

	expected := `
# HELP notification_rules_broker_connected 1 when the broker connection is up
# TYPE notification_rules_broker_connected gauge
notification_rules_broker_connected 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "notification_rules_broker_connected"))
}

func TestConnectError(t *testing.T) {
	mock := NewMockClient()
	mock.connectErr = errors.New("connection refused")

	c := newClient(config.MQTTConfig{ClientID: "test"}, logger.NewNop(), nil)
	c.client = mock

	assert.Error(t, c.connect())
	assert.False(t, c.IsConnected())
	assert.ErrorIs(t, c.Subscribe("notifications", func(string, []byte) {}), broker.ErrNotConnected)
}

func TestConnectionMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewMetrics(reg)
	require.NoError(t, err)

	mock := NewMockClient()
	c := NewClientWithPaho(config.MQTTConfig{ClientID: "test"}, mock, logger.NewNop(), m)

	c.handleConnect(mock)
	expected := `
# HELP notification_rules_broker_connected 1 when the broker connection is up
# TYPE notification_rules_broker_connected gauge
notification_rules_broker_connected 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "notification_rules_broker_connected"))

	require.NoError(t, c.Close())
	assert.True(t, mock.disconnected.Load())
	assert.False(t, c.IsConnected())
}

func TestClientOptions(t *testing.T) {
	c, _, _ := setupTestClient(t)

	opts, err := c.clientOptions()
	require.NoError(t, err)
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "localhost:1883", opts.Servers[0].Host)
	assert.Equal(t, "test", opts.ClientID)
	assert.True(t, opts.AutoReconnect)
}

func TestClientOptionsBadTLS(t *testing.T) {
	c, _, _ := setupTestClient(t)
	c.cfg.TLS = config.TLSConfig{
		Enable:   true,
		CertFile: "/nonexistent/cert.pem",
		KeyFile:  "/nonexistent/key.pem",
		CAFile:   "/nonexistent/ca.pem",
	}

	_, err := c.clientOptions()
	assert.Error(t, err)
}

func TestPublishRejectsWildcardTopic(t *testing.T) {
	c, mock, _ := setupTestClient(t)
	called := false
	mock.publishFunc = func(string, byte, bool, interface{}) mqtt.Token {
		called = true
		return NewMockToken(nil)
	}

	err := c.Publish(context.Background(), "alerts/+/motion", []byte(`{}`))
	assert.ErrorIs(t, err, broker.ErrInvalidTopic)
	assert.False(t, called)
}
