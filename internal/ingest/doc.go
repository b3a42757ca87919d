// Package ingest applies entity state published on MQTT.
//
// A message on intravision/state/{entityID} carries a JSON object of wire
// property names to values:
//
//	{"PropA": "On"}
//
// Each pair is converted to the internal field name, coerced to the
// property's current numeric type, and applied through the entity's
// guarded setter, so the entity debounces and notifies as for any other
// change. The outcome is acknowledged on intravision/ack/{entityID}.
package ingest
