package event

import "errors"

// ErrSubscriptionNotFound is returned by Unsubscribe when the subscription
// ID is not attached to the channel.
var ErrSubscriptionNotFound = errors.New("event: subscription not found")
