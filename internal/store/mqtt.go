package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTMirror republishes hub changes as retained messages on
// <prefix>/<CODE>, so displays on other hosts can follow a session without
// polling this server.
type MQTTMirror struct {
	broker   string
	clientID string
	prefix   string
	qos      byte

	client mqtt.Client

	mu        sync.Mutex
	published uint64
	errors    uint64
}

func NewMQTTMirror(broker, clientID, prefix string) *MQTTMirror {
	if prefix == "" {
		prefix = "hairvision/sessions"
	}
	return &MQTTMirror{
		broker:   broker,
		clientID: clientID,
		prefix:   strings.TrimRight(prefix, "/"),
		qos:      1,
	}
}

// Connect establishes connection to MQTT broker. On failure the client is
// disconnected so it stops retrying in the background.
func (m *MQTTMirror) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	broker := m.broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	opts.AddBroker(broker)
	opts.SetClientID(m.clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		slog.Info("mqtt connection established", "broker", broker, "client_id", m.clientID)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		slog.Warn("mqtt connection lost, will auto-reconnect", "err", err, "broker", broker)
	}

	m.client = mqtt.NewClient(opts)
	token := m.client.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		m.Close()
		return ctx.Err()
	case <-time.After(5 * time.Second):
		m.Close()
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		m.Close()
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	return nil
}

// Attach publishes every change seen by h.
func (m *MQTTMirror) Attach(h *Hub) {
	h.Tap(func(c Change) {
		if err := m.Publish(c); err != nil {
			slog.Warn("mqtt mirror publish failed", "session_code", c.Session.SessionCode, "err", err)
		}
	})
}

// Publish sends c without waiting for the broker; delivery failures are
// logged when the token completes.
func (m *MQTTMirror) Publish(c Change) error {
	if m.client == nil || !m.client.IsConnected() {
		m.countError()
		return fmt.Errorf("mqtt not connected")
	}
	topic, payload, err := mirrorMessage(m.prefix, c)
	if err != nil {
		m.countError()
		return err
	}

	token := m.client.Publish(topic, m.qos, true, payload)
	go func() {
		if !token.WaitTimeout(2 * time.Second) {
			m.countError()
			slog.Warn("mqtt publish timeout", "topic", topic)
			return
		}
		if err := token.Error(); err != nil {
			m.countError()
			slog.Warn("mqtt publish failed", "topic", topic, "err", err)
			return
		}
		m.mu.Lock()
		m.published++
		m.mu.Unlock()
	}()
	return nil
}

// Stats returns published and failed message counts.
func (m *MQTTMirror) Stats() (published, errors uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.published, m.errors
}

func (m *MQTTMirror) countError() {
	m.mu.Lock()
	m.errors++
	m.mu.Unlock()
}

func (m *MQTTMirror) Close() {
	if m.client != nil {
		m.client.Disconnect(250)
	}
}

func mirrorMessage(prefix string, c Change) (string, []byte, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal change: %w", err)
	}
	return prefix + "/" + strings.ToUpper(c.Session.SessionCode), payload, nil
}
