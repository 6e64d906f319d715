package protocol

import (
	"fmt"

	"github.com/HaydenEquityAi/stockmarket/pkg/models"
)

// Inbound message types.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
)

// Outbound message types.
const (
	TypeSubscribed  = "subscribed"
	TypePriceUpdate = "price_update"
	TypeHeartbeat   = "heartbeat"
)

// ClientMessage is any frame a client sends. Symbol is only meaningful for
// subscribe; unsubscribe ignores it.
type ClientMessage struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol,omitempty"`
}

// SubscribeAck acknowledges a successful subscribe on the same connection.
type SubscribeAck struct {
	Type    string `json:"type"`
	Symbol  string `json:"symbol"`
	Message string `json:"message"`
}

func NewSubscribeAck(symbol string) SubscribeAck {
	return SubscribeAck{
		Type:    TypeSubscribed,
		Symbol:  symbol,
		Message: fmt.Sprintf("Subscribed to %s", symbol),
	}
}

// PriceUpdate is pushed only to connections subscribed to the exact symbol.
// Optional deltas are omitted when the provider did not supply them.
type PriceUpdate struct {
	Type          string   `json:"type"`
	Symbol        string   `json:"symbol"`
	Price         float64  `json:"price"`
	Change        *float64 `json:"change,omitempty"`
	ChangePercent *float64 `json:"changePercent,omitempty"`
	Volume        *float64 `json:"volume,omitempty"`
	Timestamp     int64    `json:"timestamp"`
}

func NewPriceUpdate(q models.Quote) PriceUpdate {
	return PriceUpdate{
		Type:          TypePriceUpdate,
		Symbol:        q.Symbol,
		Price:         q.Price,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		Volume:        q.Volume,
		Timestamp:     q.Timestamp,
	}
}

// Heartbeat is sent to every open connection on a fixed interval regardless
// of subscription state. SubscribedTo is null when the connection holds no
// subscription, so the field is always present on the wire.
type Heartbeat struct {
	Type         string  `json:"type"`
	Timestamp    int64   `json:"timestamp"`
	SubscribedTo *string `json:"subscribedTo"`
}

func NewHeartbeat(ts int64, subscribedTo string) Heartbeat {
	hb := Heartbeat{Type: TypeHeartbeat, Timestamp: ts}
	if subscribedTo != "" {
		hb.SubscribedTo = &subscribedTo
	}
	return hb
}
