// Package events defines the typed payloads published on the internal event
// bus after a dispatch mutation commits. Subscribers (MQTT bridge, metrics
// collector) receive them asynchronously; publishing never blocks dispatch.
package events
