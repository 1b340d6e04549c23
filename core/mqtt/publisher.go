// Package mqtt defines the broker-facing publisher abstraction. Dispatch
// status changes are mirrored to MQTT topics so branch displays and driver
// apps can follow assignments without polling the API.
package mqtt

import "errors"

// ErrNotConnected is returned when a publish is attempted on a closed or
// never-established broker connection.
var ErrNotConnected = errors.New("mqtt client not connected")

// Publisher sends payloads to broker topics.
type Publisher interface {
	// Publish sends the payload to the given topic.
	Publish(topic string, payload []byte) error

	// Disconnect gracefully closes the broker connection.
	Disconnect()
}
