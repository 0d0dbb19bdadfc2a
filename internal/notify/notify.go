// Package notify renders and dispatches the portal's outbound messages.
package notify

import (
	"context"
	"fmt"
)

type Kind string

const (
	KindApplicationReceived Kind = "application_received"
	KindApplicationApproved Kind = "application_approved"
	KindApplicationRejected Kind = "application_rejected"
	KindPasswordReset       Kind = "password_reset"
)

// Message is what services hand to a Notifier. TemporaryPassword is the only
// place a plaintext credential leaves the admission workflow.
type Message struct {
	Kind              Kind   `json:"kind"`
	To                string `json:"to"`
	Name              string `json:"name"`
	AdmissionNumber   string `json:"admissionNumber,omitempty"`
	TemporaryPassword string `json:"temporaryPassword,omitempty"`
}

func (m Message) Validate() error {
	switch m.Kind {
	case KindApplicationReceived, KindApplicationApproved, KindApplicationRejected, KindPasswordReset:
	default:
		return fmt.Errorf("unknown message kind %q", m.Kind)
	}
	if m.To == "" {
		return fmt.Errorf("%s: missing recipient", m.Kind)
	}
	return nil
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}
