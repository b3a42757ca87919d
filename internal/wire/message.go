package wire

import (
	"github.com/nerrad567/intravision-core/internal/entity"
	"github.com/nerrad567/intravision-core/internal/system"
)

// Event kinds carried in Message.Event.
const (
	// EventInitialisation is a full system snapshot pushed to a client.
	EventInitialisation = "Initialisation"

	// EventDeviceUpdate carries one device snapshot.
	EventDeviceUpdate = "DeviceUpdate"

	// EventServiceUpdate carries one service snapshot.
	EventServiceUpdate = "ServiceUpdate"

	// EventInitialise is sent by a client to subscribe to a system.
	EventInitialise = "Initialise"
)

// Message is the envelope exchanged with websocket clients.
//
// Outbound, Data holds an entity or system and is encoded by the Codec.
// Inbound, Data holds whatever Decode produced (an entity when the payload
// carried a registered Type, otherwise a map), or nil when absent.
type Message struct {
	Event    string
	Data     any
	SystemID string
}

// NewInitialisation builds the snapshot message for a system.
func NewInitialisation(sys *system.System) Message {
	return Message{Event: EventInitialisation, Data: sys, SystemID: sys.ID()}
}

// NewEntityUpdate builds a DeviceUpdate or ServiceUpdate message for an
// entity, addressed to the given system.
func NewEntityUpdate(e entity.Entity, systemID string) Message {
	return Message{Event: UpdateEvent(e.Kind()), Data: e, SystemID: systemID}
}

// UpdateEvent returns the update event kind for an entity kind.
func UpdateEvent(kind entity.Kind) string {
	if kind == entity.KindService {
		return EventServiceUpdate
	}
	return EventDeviceUpdate
}
