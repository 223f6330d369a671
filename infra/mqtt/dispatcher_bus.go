package mqtt

import (
	"encoding/json"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/wastefleet/core/model"
	"github.com/kilianp07/wastefleet/infra/logger"
)

// DispatcherBus is the dispatcher's side of the message bus: it publishes
// assignment events to per-vehicle topics and delivers inbound position
// reports to the given handler. The handler runs on the Paho delivery
// goroutine and must not block.
type DispatcherBus struct {
	cli paho.Client
	cfg Config
	log logger.Logger
}

// NewDispatcherBus connects to the broker and subscribes to the position
// topic. The subscription is re-established on every reconnect.
func NewDispatcherBus(cfg Config, onPosition func(model.VehiclePosition)) (*DispatcherBus, error) {
	log := logger.New("dispatcher_bus")
	b := &DispatcherBus{cfg: cfg, log: log}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "wastefleet-dispatcher"
	}
	opts, err := NewClientOptions(cfg, clientID, log, func(c paho.Client) {
		log.Infof("MQTT connected, subscribing to %s", PositionTopic)
		token := c.Subscribe(PositionTopic, cfg.QoSFor("position"), b.onPosition(onPosition))
		if token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	})
	if err != nil {
		return nil, err
	}
	cli, err := connect(opts)
	if err != nil {
		return nil, err
	}
	b.cli = cli
	return b, nil
}

func (b *DispatcherBus) onPosition(handler func(model.VehiclePosition)) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		var p model.VehiclePosition
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			b.log.Warnf("discarding undecodable position report: %v", err)
			return
		}
		handler(p)
	}
}

// PublishAssignment sends the event to the addressed vehicle's topic.
func (b *DispatcherBus) PublishAssignment(ev model.AssignmentEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	topic := AssignmentTopic(ev.VehicleID)
	token := b.cli.Publish(topic, b.cfg.QoSFor("assignment"), false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	b.log.Debugf("published assignment %s to %s", ev.ID, topic)
	return nil
}

// Close gracefully disconnects from the broker.
func (b *DispatcherBus) Close() {
	if b.cli != nil && b.cli.IsConnected() {
		b.cli.Disconnect(250)
	}
}
