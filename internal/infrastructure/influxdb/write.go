package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementEntity = "entity_metrics"
	MeasurementBroker = "broker_stats"
)

// WriteEntityMetric queues one numeric entity property.
//
// Parameters:
//   - entityID: Entity identifier
//   - entityType: Variant type tag (e.g. "Heartbeat")
//   - field: Property name in its internal snake_case form
//   - value: Numeric value; booleans are passed as 0 or 1
func (c *Client) WriteEntityMetric(entityID, entityType, field string, value float64) {
	c.queue(newEntityPoint(entityID, entityType, field, value, time.Now()))
}

// WriteBrokerStats queues the broker's connection and subscription counts.
func (c *Client) WriteBrokerStats(clients, systems, entities int) {
	c.queue(newBrokerPoint(clients, systems, entities, time.Now()))
}

// queue drops the point once the client is closed.
func (c *Client) queue(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(p)
}

func newEntityPoint(entityID, entityType, field string, value float64, ts time.Time) *write.Point {
	p := write.NewPointWithMeasurement(MeasurementEntity).
		AddTag("entity_id", entityID).
		AddTag("entity_type", entityType).
		AddTag("field", field).
		AddField("value", value)
	return p.SetTime(ts)
}

func newBrokerPoint(clients, systems, entities int, ts time.Time) *write.Point {
	p := write.NewPointWithMeasurement(MeasurementBroker).
		AddField("clients", clients).
		AddField("systems", systems).
		AddField("entities", entities)
	return p.SetTime(ts)
}
