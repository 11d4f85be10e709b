package models

import "time"

// PaymentProposal is a pending sensitive payment transition awaiting operator
// confirmation. It lives in the proposal store with a TTL, never in the database.
type PaymentProposal struct {
	Token      string        `json:"token"`
	OrderID    uint          `json:"order_id"`
	From       PaymentStatus `json:"from"`
	To         PaymentStatus `json:"to"`
	ProposedBy uint          `json:"proposed_by"`
	ExpiresAt  time.Time     `json:"expires_at"`
}
