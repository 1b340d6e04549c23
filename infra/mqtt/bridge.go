// Package mqtt mirrors dispatch status events to MQTT topics. Branch displays
// and driver apps subscribe to the broker instead of polling the HTTP API.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fleetops/tripdispatch/core/events"
	"github.com/fleetops/tripdispatch/core/model"
	coremqtt "github.com/fleetops/tripdispatch/core/mqtt"
	"github.com/fleetops/tripdispatch/infra/logger"
	"github.com/fleetops/tripdispatch/internal/eventbus"
)

// Bridge forwards bus events to broker topics.
type Bridge struct {
	pub    coremqtt.Publisher
	prefix string
	log    logger.Logger
}

// NewBridge builds a bridge publishing under the given topic prefix.
func NewBridge(pub coremqtt.Publisher, prefix string) *Bridge {
	if prefix == "" {
		prefix = "fleet"
	}
	return &Bridge{pub: pub, prefix: prefix, log: logger.New("mqtt_bridge")}
}

// Start subscribes to the bus and republishes events until the context is
// canceled.
func (b *Bridge) Start(ctx context.Context, bus eventbus.EventBus) {
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				b.forward(ev)
			}
		}
	}()
}

func (b *Bridge) forward(ev eventbus.Event) {
	var (
		topic   string
		payload any
	)
	switch e := ev.(type) {
	case events.TripStatusEvent:
		topic = fmt.Sprintf("%s/trips/%d/status", b.prefix, e.TripID)
		payload = tripStatusMessage{
			TripID: e.TripID, BookingID: e.BookingID,
			From: e.From, To: e.To, Time: e.Time.Unix(),
		}
	case events.AssignmentEvent:
		topic = fmt.Sprintf("%s/trips/%d/assignments", b.prefix, e.Record.TripID)
		payload = assignmentMessage{
			ID: e.Record.ID, TripID: e.Record.TripID,
			Action: e.Record.Action, Actor: e.Record.Actor,
			DriverID: e.Record.DriverAfter, VehicleID: e.Record.VehicleAfter,
			Note: e.Record.Note, Time: e.Record.CreatedAt.Unix(),
		}
	case events.DriverStatusEvent:
		topic = fmt.Sprintf("%s/drivers/%d/status", b.prefix, e.DriverID)
		payload = resourceStatusMessage{ID: e.DriverID, Status: string(e.To), Time: e.Time.Unix()}
	case events.VehicleStatusEvent:
		topic = fmt.Sprintf("%s/vehicles/%d/status", b.prefix, e.VehicleID)
		payload = resourceStatusMessage{ID: e.VehicleID, Status: string(e.To), Time: e.Time.Unix()}
	default:
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		b.log.Errorf("marshal %s: %v", topic, err)
		return
	}
	if err := b.pub.Publish(topic, body); err != nil {
		b.log.Errorf("publish %s: %v", topic, err)
	}
}

type tripStatusMessage struct {
	TripID    int64            `json:"trip_id"`
	BookingID int64            `json:"booking_id"`
	From      model.TripStatus `json:"from"`
	To        model.TripStatus `json:"to"`
	Time      int64            `json:"time"`
}

type assignmentMessage struct {
	ID        string                 `json:"id"`
	TripID    int64                  `json:"trip_id"`
	Action    model.AssignmentAction `json:"action"`
	Actor     string                 `json:"actor"`
	DriverID  *int64                 `json:"driver_id,omitempty"`
	VehicleID *int64                 `json:"vehicle_id,omitempty"`
	Note      string                 `json:"note,omitempty"`
	Time      int64                  `json:"time"`
}

type resourceStatusMessage struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
	Time   int64  `json:"time"`
}
