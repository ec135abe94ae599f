package dto

import "github.com/settlehq/settle/internal/types"

// WebhookResponse acknowledges an inbound notification
type WebhookResponse struct {
	EventID   string                 `json:"event_id"`
	EventType types.WebhookEventType `json:"event_type"`
	Processed bool                   `json:"processed"`
	// Error is set when dispatch failed, the event is kept for replay
	Error string `json:"error,omitempty"`
}

// ReplayResponse summarises one replay pass over stored unprocessed events
type ReplayResponse struct {
	Attempted int `json:"attempted"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// SyncResponse reports what a chain sync changed
type SyncResponse struct {
	InvoiceID     string              `json:"invoice_id"`
	InvoiceStatus types.InvoiceStatus `json:"invoice_status"`
	Changed       bool                `json:"changed"`
}
