// Package wire converts entities, systems, and broker messages to and from
// the JSON wire format.
//
// Field names on the wire are PascalCase versions of the internal
// snake_case names (prop_a becomes PropA). Entity payloads always carry
// Id, Name, and Type; Type selects the constructor from an entity.Registry
// when a payload is decoded.
package wire
