package mqtt

import (
	"encoding/json"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/wastefleet/core/model"
	"github.com/kilianp07/wastefleet/infra/logger"
)

// VehicleBus is the fleet's side of the message bus: it delivers assignment
// events to the handler and publishes position reports. One bus serves every
// agent in the process; the handler dispatches on the target vehicle id and
// must not block (queue appends only).
type VehicleBus struct {
	cli       paho.Client
	cfg       Config
	fleetSize int
	log       logger.Logger
}

// NewVehicleBus connects to the broker and subscribes to the assignment
// topics of all vehicles. Events addressed outside [0, fleetSize) are
// discarded with a warning.
func NewVehicleBus(cfg Config, fleetSize int, onAssignment func(model.AssignmentEvent)) (*VehicleBus, error) {
	log := logger.New("vehicle_bus")
	b := &VehicleBus{cfg: cfg, fleetSize: fleetSize, log: log}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "wastefleet-fleet"
	}
	opts, err := NewClientOptions(cfg, clientID+"-fleet", log, func(c paho.Client) {
		log.Infof("MQTT connected, subscribing to %s", assignmentTopicPattern)
		token := c.Subscribe(assignmentTopicPattern, cfg.QoSFor("assignment"), b.onAssignment(onAssignment))
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

func (b *VehicleBus) onAssignment(handler func(model.AssignmentEvent)) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		var ev model.AssignmentEvent
		if err := json.Unmarshal(msg.Payload(), &ev); err != nil {
			b.log.Warnf("discarding undecodable assignment: %v", err)
			return
		}
		if ev.VehicleID < 0 || ev.VehicleID >= b.fleetSize {
			b.log.Warnf("discarding assignment %s for unknown vehicle %d", ev.ID, ev.VehicleID)
			return
		}
		handler(ev)
	}
}

// PublishPosition reports a vehicle position to the dispatcher.
func (b *VehicleBus) PublishPosition(p model.VehiclePosition) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	token := b.cli.Publish(PositionTopic, b.cfg.QoSFor("position"), false, payload)
	token.Wait()
	return token.Error()
}

// Close gracefully disconnects from the broker.
func (b *VehicleBus) Close() {
	if b.cli != nil && b.cli.IsConnected() {
		b.cli.Disconnect(250)
	}
}
