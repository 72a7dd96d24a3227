package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	qosAtLeastOnce = 1
	connectTimeout = 5 * time.Second
	publishTimeout = 3 * time.Second
)

// MQTTPublisher sends events as JSON to <topic>/<event suffix>, e.g.
// registry/patients/created.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
	logger zerolog.Logger
}

// NewMQTTPublisher connects to broker and returns a publisher for topic.
func NewMQTTPublisher(broker, clientID, topic string, logger zerolog.Logger) (*MQTTPublisher, error) {
	logger = logger.With().Str("component", "mqtt").Logger()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	// Unique client ID so several instances can share a broker
	opts.SetClientID(fmt.Sprintf("%s-%s", clientID, uuid.NewString()[:8]))
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn().Err(err).Msg("connection lost")
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info().Str("broker", broker).Msg("connected")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connect to %s: timed out after %s", broker, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", broker, err)
	}
	return newMQTTPublisher(client, topic, logger), nil
}

func newMQTTPublisher(client mqtt.Client, topic string, logger zerolog.Logger) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: strings.TrimSuffix(topic, "/"), logger: logger}
}

func (p *MQTTPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.Type, err)
	}

	token := p.client.Publish(p.Topic(e.Type), qosAtLeastOnce, false, payload)
	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("publish %s: timed out after %s", e.Type, publishTimeout)
	}
}

// Topic maps an event type such as patient.created to its topic.
func (p *MQTTPublisher) Topic(eventType string) string {
	suffix := eventType
	if i := strings.LastIndex(eventType, "."); i >= 0 {
		suffix = eventType[i+1:]
	}
	return p.topic + "/" + suffix
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
