// Package broker is the websocket subscription broker.
//
// The broker owns a set of registered systems and the live websocket
// connections. It subscribes to every system's aggregate channel and every
// member entity's update channel; when one fires, it encodes the system or
// entity with the wire codec and forwards it to the connections subscribed
// to the affected systems.
//
// A connection starts unsubscribed and picks a system by sending
//
//	{"Event":"Initialise","SystemID":"<system id>"}
//
// after which it receives an Initialisation snapshot followed by
// DeviceUpdate and ServiceUpdate messages.
//
// Plain HTTP requests on the same listener are answered directly:
// GET /Systems returns every registered system, GET /History/{entityID}
// returns journal rows when a journal is configured, and anything else is
// a 404.
//
// Lifecycle:
//
//	b, err := broker.New(deps)
//	b.RegisterSystem(room)
//	b.Start(ctx)
//	defer b.Shutdown(context.Background())
//
// Thread Safety: All methods are safe for concurrent use.
package broker
