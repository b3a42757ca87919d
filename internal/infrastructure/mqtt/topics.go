package mqtt

import "strings"

// Topic prefixes.
const (
	TopicPrefix       = "intravision"
	TopicPrefixState  = TopicPrefix + "/state"
	TopicPrefixAck    = TopicPrefix + "/ack"
	TopicPrefixSystem = TopicPrefix + "/system"
)

// Topics builds topic strings. It is a zero-size namespace:
//
//	topic := mqtt.Topics{}.EntityState(id)
type Topics struct{}

// EntityState is the inbound property-update topic for one entity.
// Example: intravision/state/53699ccd-60de-5632-86ec-fd76b9b5ab81
func (Topics) EntityState(entityID string) string {
	return TopicPrefixState + "/" + entityID
}

// AllEntityStates matches every entity state topic.
func (Topics) AllEntityStates() string {
	return TopicPrefixState + "/+"
}

// EntityAck carries the result of applying one state message.
// Example: intravision/ack/53699ccd-60de-5632-86ec-fd76b9b5ab81
func (Topics) EntityAck(entityID string) string {
	return TopicPrefixAck + "/" + entityID
}

// SystemStatus carries the core's retained online/offline presence.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// EntityIDFromState extracts the entity ID from a state topic.
// It returns false for topics outside the state namespace.
func (Topics) EntityIDFromState(topic string) (string, bool) {
	id, ok := strings.CutPrefix(topic, TopicPrefixState+"/")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
