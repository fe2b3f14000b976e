package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionSubmitClaim AuditAction = "SUBMIT_CLAIM"
	AuditActionDecideClaim AuditAction = "DECIDE_CLAIM"
	AuditActionPlaceOrder  AuditAction = "PLACE_ORDER"
	AuditActionCancelOrder AuditAction = "CANCEL_ORDER"
)

// AuditLog records a single audited API action.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	AccountID    *uuid.UUID  `json:"account_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
