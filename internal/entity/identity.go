package entity

import "github.com/google/uuid"

// NewID derives the deterministic identifier for a name.
//
// The identifier is a version 5 UUID in the X.500 namespace, so the same
// name always yields the same identifier across restarts and processes.
func NewID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceX500, []byte(name)).String()
}
