// Package devices contains the concrete device variants shipped with
// Intravision Core.
//
// Every variant registers a constructor with an entity.Registry through
// Register so wire payloads carrying its type tag can be rebuilt.
package devices
