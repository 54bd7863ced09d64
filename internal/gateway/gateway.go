package gateway

import (
	"errors"
	"strconv"
)

// Messenger defines the interface for chat control gateways.
type Messenger interface {
	// Start begins the message listening loop
	Start() error
	// Send sends a message to a specific chat
	Send(chatID string, text string) error
	// Stop gracefully shuts down the gateway
	Stop() error
}

// Broadcast sends text to every chat through m and joins the failures.
func Broadcast(m Messenger, chatIDs []int64, text string) error {
	var errs []error
	for _, id := range chatIDs {
		if err := m.Send(strconv.FormatInt(id, 10), text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
