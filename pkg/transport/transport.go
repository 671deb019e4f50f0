// Package transport defines the contract between the campaign core and the
// direct-message channel it is delivered over.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InboundKind identifies the event type delivered by a transport.
type InboundKind string

const (
	// KindText is a plain text message.
	KindText InboundKind = "text"
	// KindPaymentReference is a structured payment confirmation.
	KindPaymentReference InboundKind = "payment_reference"
	// KindAgentStarted is emitted once the transport is connected.
	KindAgentStarted InboundKind = "agent_started"
	// KindUnsupported is any other payload (attachments, reactions, ...).
	KindUnsupported InboundKind = "unsupported"
)

// ErrInvalidPaymentReference is returned for payment payloads missing a network or reference.
var ErrInvalidPaymentReference = errors.New("invalid payment reference")

// PaymentReference is the confirmation a participant sends after paying.
type PaymentReference struct {
	NetworkID string `json:"networkId"`
	Reference string `json:"reference"`
}

// Validate checks both fields are present.
func (p *PaymentReference) Validate() error {
	if p == nil || strings.TrimSpace(p.NetworkID) == "" || strings.TrimSpace(p.Reference) == "" {
		return ErrInvalidPaymentReference
	}
	return nil
}

// ParsePaymentReference decodes a JSON payment confirmation sent as text.
// It returns ok=false when text is not a JSON object at all, and an error
// when it is JSON but does not carry a usable reference.
func ParsePaymentReference(text string) (ref *PaymentReference, ok bool, err error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false, nil
	}
	var p PaymentReference
	if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
		return nil, false, nil
	}
	if err := p.Validate(); err != nil {
		return nil, true, err
	}
	return &p, true, nil
}

// Inbound is one event received from the transport.
type Inbound struct {
	ID         string
	Address    string
	Kind       InboundKind
	Text       string
	Payment    *PaymentReference
	ReceivedAt time.Time
}

// PaymentRequest asks the participant to transfer the entry fee.
type PaymentRequest struct {
	Asset     string
	Token     string
	Recipient string
	Amount    decimal.Decimal
	Decimals  int32
	ChainID   int64
	Network   string
}

// Outbound is one message to deliver to a participant.
type Outbound struct {
	Text    string
	Payment *PaymentRequest
}

// Text builds a plain text outbound message.
func Text(s string) Outbound {
	return Outbound{Text: s}
}

// Sender delivers messages to a participant.
type Sender interface {
	Send(ctx context.Context, address string, msg Outbound) error
}

// Listener produces inbound events until ctx is cancelled.
type Listener interface {
	Listen(ctx context.Context) (<-chan Inbound, error)
}

// Transport is a bidirectional channel.
type Transport interface {
	Sender
	Listener
}
