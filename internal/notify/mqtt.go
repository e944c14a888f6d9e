// Package notify publishes reflector lifecycle events (endpoint join/leave,
// transmission start/end) to MQTT, grounded on the teacher's MQTTPublisher
// in mqtt_publisher.go: eclipse/paho.mqtt.golang client, auto-reconnect, a
// small JSON payload per message, a randomly generated client ID.
package notify

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Event is the JSON payload published for every lifecycle event. TxID
// correlates a transmission's tx_start with its eventual tx_end across log
// noise and dashboard updates (empty for join/leave events).
type Event struct {
	Type      string `json:"type"` // "join", "leave", "tx_start", "tx_end"
	TxID      string `json:"tx_id,omitempty"`
	Callsign  string `json:"callsign,omitempty"`
	Address   string `json:"address,omitempty"`
	Tag       string `json:"tag,omitempty"`
	Src       string `json:"src,omitempty"`
	Dst       string `json:"dst,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Publisher publishes Events to a fixed topic prefix. A nil *Publisher is
// valid and treats Publish as a no-op, so the reflector loop can hold one
// unconditionally whether or not MQTT is configured.
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
}

func generateClientID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return "ysfreflector_" + hex.EncodeToString(b)
}

// New connects to broker and returns a Publisher that writes to
// topicPrefix + "/" + event type.
func New(broker, username, password, topicPrefix string) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(generateClientID())
	if username != "" {
		opts.SetUsername(username)
	}
	if password != "" {
		opts.SetPassword(password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("notify: connect to %s: %w", broker, token.Error())
	}
	return &Publisher{client: client, topicPrefix: topicPrefix}, nil
}

// Publish sends ev to the topic derived from its Type. Errors are logged,
// not returned — a lost MQTT notification must never affect reflector
// behavior, matching spec.md §7's transport-error-is-logged-and-ignored
// policy.
func (p *Publisher) Publish(ev Event) {
	if p == nil || p.client == nil {
		return
	}
	ev.Timestamp = time.Now().Unix()
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("notify: marshal event: %v", err)
		return
	}
	topic := p.topicPrefix + "/" + ev.Type
	token := p.client.Publish(topic, 0, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.Printf("notify: publish to %s: %v", topic, token.Error())
		}
	}()
}

// Close disconnects from the broker, if connected.
func (p *Publisher) Close() {
	if p == nil || p.client == nil {
		return
	}
	p.client.Disconnect(250)
}
