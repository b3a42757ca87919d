// Package journal keeps a local SQLite record of the messages the broker
// publishes, so recent activity for an entity can be read back through
// GET /History/{entityID}.
//
// The journal is an event log. Entities are not restored from it.
package journal
