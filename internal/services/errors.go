package services

import "fmt"

// DeliveryError is returned when an email could not be handed to the provider
type DeliveryError struct {
	Kind      string
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to send %s email to %s: %v", e.Kind, e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
