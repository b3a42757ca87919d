// Package mqtt provides the MQTT client used by the state bus.
//
// The client connects to a broker with auto-reconnect, restores tracked
// subscriptions after every reconnect, and keeps a retained presence
// message on intravision/system/status. The broker publishes an offline
// message from the Last Will if the core dies without calling Close.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllEntityStates(), client.QoS(),
//	    func(topic string, payload []byte) error {
//	        id, _ := mqtt.Topics{}.EntityIDFromState(topic)
//	        return apply(id, payload)
//	    })
package mqtt
