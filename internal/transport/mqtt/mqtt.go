// Package mqtt implements the MQTT transport for earshot.
//
// MQTT is well-suited for satellites and lightweight pub/sub messaging.
// Clients publish WAV audio to <prefix>/transcribe/<request_id>; the
// transcript is published back to <prefix>/result/<request_id>. Streaming
// is not offered over MQTT — use the WebSocket or gRPC transports.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/earshot/earshot/internal/message"
	"github.com/earshot/earshot/internal/transport"
)

const (
	connectTimeout = 10 * time.Second
	requestQoS     = 1
)

// Transport implements transport.Transport over MQTT.
type Transport struct {
	broker      string
	topicPrefix string
	clientID    string
	client      pahomqtt.Client
}

// New creates a new MQTT transport.
func New(broker, topicPrefix, clientID string) *Transport {
	return &Transport{broker: broker, topicPrefix: topicPrefix, clientID: clientID}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "mqtt" }

// Listen connects to the MQTT broker and subscribes to the request topic.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	opts := pahomqtt.NewClientOptions().
		AddBroker(t.broker).
		SetClientID(t.clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)

	t.client = pahomqtt.NewClient(opts)

	if token := t.client.Connect(); !token.WaitTimeout(connectTimeout) || token.Error() != nil {
		return fmt.Errorf("mqtt connect to %s: %w", t.broker, token.Error())
	}

	requestTopic := t.topicPrefix + "/transcribe/+"

	token := t.client.Subscribe(requestTopic, requestQoS, func(_ pahomqtt.Client, m pahomqtt.Message) {
		// Handlers must not block the client's message loop.
		go t.handleRequest(ctx, svc, m)
	})
	if !token.WaitTimeout(connectTimeout) || token.Error() != nil {
		return fmt.Errorf("mqtt subscribe to %s: %w", requestTopic, token.Error())
	}

	slog.Info("mqtt transport listening", "broker", t.broker, "topic", requestTopic)

	<-ctx.Done()
	slog.Info("mqtt transport shutting down")
	t.client.Disconnect(250)
	return nil
}

// handleRequest transcribes one request message and publishes the result.
func (t *Transport) handleRequest(ctx context.Context, svc transport.Service, m pahomqtt.Message) {
	segments := strings.Split(m.Topic(), "/")
	requestID := segments[len(segments)-1]

	req := &message.Request{
		ID:          requestID,
		Source:      "mqtt",
		Audio:       m.Payload(),
		ContentType: "audio/wav",
		Timestamp:   time.Now(),
	}

	result := svc.Transcribe(ctx, req)

	payload, err := json.Marshal(result)
	if err != nil {
		slog.Error("mqtt result marshal failed", "request_id", requestID, "error", err)
		return
	}

	resultTopic := t.topicPrefix + "/result/" + requestID
	token := t.client.Publish(resultTopic, requestQoS, false, payload)
	if !token.WaitTimeout(connectTimeout) || token.Error() != nil {
		slog.Error("mqtt publish failed", "topic", resultTopic, "error", token.Error())
	}
}

// Close disconnects from the MQTT broker.
func (t *Transport) Close() error {
	if t.client != nil && t.client.IsConnected() {
		t.client.Disconnect(250)
	}
	return nil
}
