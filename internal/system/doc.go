// Package system provides the System aggregate: a named group of devices and
// services with its own observer channel.
//
// Membership changes never fire automatically. Whoever changes membership
// calls RequestUpdate to announce the new snapshot; the subscription broker
// uses that announcement to pick up newly added members.
package system
