package session

import "github.com/rs/xid"

// NewOrderID returns a globally unique, sortable order id
func NewOrderID() string {
	return xid.New().String()
}
