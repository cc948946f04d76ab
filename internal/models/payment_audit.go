package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventSessionCreated         PaymentEventType = "session_created"
	PaymentEventSessionCreateFailed    PaymentEventType = "session_create_failed"
	PaymentEventWebhookReceived        PaymentEventType = "webhook_received"
	PaymentEventWebhookRejected        PaymentEventType = "webhook_rejected"
	PaymentEventStatusCheck            PaymentEventType = "status_check"
	PaymentEventPaymentConfirmed       PaymentEventType = "payment_confirmed"
	PaymentEventPaymentFailed          PaymentEventType = "payment_failed"
	PaymentEventReconciliationMismatch PaymentEventType = "reconciliation_mismatch"
	PaymentEventTotalPatched           PaymentEventType = "total_patched"
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceWebhook  PaymentEventSource = "gateway_webhook"
	PaymentSourceFallback PaymentEventSource = "client_fallback"
	PaymentSourceBackend  PaymentEventSource = "backend"
	PaymentSourceSweep    PaymentEventSource = "expiry_sweep"
)

// JSONB stores an arbitrary JSON document in a jsonb column
type JSONB map[string]interface{}

// Value implements driver.Valuer
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner
func (j *JSONB) Scan(src interface{}) error {
	if src == nil {
		*j = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported type for JSONB: %T", src)
	}
	return json.Unmarshal(b, j)
}

// PaymentAudit represents an immutable audit log entry for payment events.
// Every gateway interaction writes one, including rejected webhooks and
// amount mismatches.
type PaymentAudit struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	BookingID *uuid.UUID `json:"booking_id,omitempty" db:"booking_id"`
	SessionID *string    `json:"session_id,omitempty" db:"session_id"`

	EventType   PaymentEventType   `json:"event_type" db:"event_type"`
	EventSource PaymentEventSource `json:"event_source" db:"event_source"`

	// Amount tracking for reconciliation verification
	ExpectedAmount *float64 `json:"expected_amount,omitempty" db:"expected_amount"`
	ReceivedAmount *float64 `json:"received_amount,omitempty" db:"received_amount"`
	Currency       *string  `json:"currency,omitempty" db:"currency"`
	AmountsMatch   *bool    `json:"amounts_match,omitempty" db:"amounts_match"`

	PaymentStatus    *string `json:"payment_status,omitempty" db:"payment_status"`
	GatewayPaymentID *string `json:"gateway_payment_id,omitempty" db:"gateway_payment_id"`

	Payload      JSONB   `json:"payload,omitempty" db:"payload"`
	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
