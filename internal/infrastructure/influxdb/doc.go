// Package influxdb writes entity telemetry to InfluxDB v2.
//
// Every numeric or boolean property carried by an entity update becomes a
// point in the entity_metrics measurement, tagged with the entity ID, its
// type, and the property name. The broker's client and subscription counts
// are sampled into broker_stats.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteEntityMetric(id, "Heartbeat", "beats", 42)
//
// Writes are non-blocking and batched according to batch_size and
// flush_interval. Connection and health check errors are returned directly.
package influxdb
