package service

import "zonelight-agent/internal/model"

// Broadcaster is the change-notification side of ws.Hub.
type Broadcaster interface {
	BroadcastEvent(evt model.Event)
}

// DeviceLink is the device-apply boundary, satisfied by ws.HardwareHub.
type DeviceLink interface {
	PushEnvelope(env model.DeviceEnvelope)
}
