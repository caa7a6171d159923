package api

import "order_cache/internal/domain"

// ErrorResponse is the body of every 4xx/5xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// OrdersResponse lists resident orders in cache order.
type OrdersResponse struct {
	Orders []domain.Order `json:"orders"`
	Count  int            `json:"count"`
}

// MatchResponse is returned by the matching endpoint.
type MatchResponse struct {
	SecurityID string `json:"security_id"`
	Policy     string `json:"policy"`
	MatchedQty uint64 `json:"matched_qty"`
	Resident   int    `json:"resident"`
}

// PurgeResponse reports how many filled orders were removed.
type PurgeResponse struct {
	Purged int `json:"purged"`
}

// WSMessage is the envelope for every websocket push.
type WSMessage struct {
	Type string `json:"type"` // "match", "subscribed", "unsubscribed"
	Data any    `json:"data"`
}

// WSSubscribeRequest is sent by clients to manage subscriptions.
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // "matches" or "matches:<securityId>"
}

const matchesChannel = "matches"
