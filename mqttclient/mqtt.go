// Package mqttclient subscribes to an MQTT control topic so operators can
// stop the service through their broker.
package mqttclient

import (
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"constserv/metrics"
)

// Trigger is fired when a shutdown command arrives.
type Trigger interface {
	Fire() bool
}

// ControlClient listens for shutdown commands on a single topic.
type ControlClient struct {
	client  mqtt.Client
	topic   string
	trigger Trigger
	log     *zap.Logger
}

// NewControlClient connects to broker. Call Subscribe to start receiving commands.
func NewControlClient(broker, clientID, topic string, trigger Trigger, log *zap.Logger) (*ControlClient, error) {
	c := &ControlClient{
		topic:   topic,
		trigger: trigger,
		log:     log,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(mqtt.Client) {
		log.Info("Connected to MQTT broker", zap.String("broker", broker))
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn("MQTT connection lost", zap.Error(err))
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	c.client = client

	return c, nil
}

// Subscribe starts listening on the control topic.
func (c *ControlClient) Subscribe() error {
	token := c.client.Subscribe(c.topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		metrics.RecordMQTTMessage(msg.Topic())
		c.handleCommand(string(msg.Payload()))
	})
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}

	c.log.Info("Subscribed to control topic", zap.String("topic", c.topic))
	return nil
}

// handleCommand fires the trigger for "quit" or "shutdown" and ignores anything else.
func (c *ControlClient) handleCommand(payload string) {
	switch strings.ToLower(strings.TrimSpace(payload)) {
	case "quit", "shutdown":
		c.log.Info("Shutdown requested over MQTT", zap.String("topic", c.topic))
		if !c.trigger.Fire() {
			c.log.Debug("Shutdown already in progress")
		}
	default:
		c.log.Debug("Ignoring control message", zap.String("payload", payload))
	}
}

// Disconnect gracefully disconnects from the MQTT broker
func (c *ControlClient) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
		c.log.Info("Disconnected from MQTT broker")
	}
}
