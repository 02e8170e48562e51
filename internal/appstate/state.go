// Package appstate is the single container for client-visible state. Every
// change goes through a typed Action and the pure Reduce function.
package appstate

import (
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/partnest/sparesync/pkg/errors"
	"github.com/partnest/sparesync/pkg/types"
)

// Notice is a user-visible message produced by the failure policy.
type Notice struct {
	ID        uuid.UUID
	Code      pkgerrors.Code
	Message   string
	Retryable bool
	Details   any
	At        time.Time
}

// State is an immutable snapshot. Callers get deep copies from Store.
type State struct {
	Cart       types.Cart
	CartLoaded bool

	Catalog       []types.Product
	CatalogLoaded bool

	Wallet        *types.Wallet
	Conversations []types.Conversation
	Orders        []types.Order

	Notices        []Notice
	SessionExpired bool
}

// Product returns the catalog snapshot for id.
func (s State) Product(id uuid.UUID) (types.Product, bool) {
	for _, p := range s.Catalog {
		if p.ID == id {
			return p, true
		}
	}
	return types.Product{}, false
}

// Order returns the stored order with id.
func (s State) Order(id uuid.UUID) (types.Order, bool) {
	for _, o := range s.Orders {
		if o.ID == id {
			return o, true
		}
	}
	return types.Order{}, false
}

func (s State) clone() State {
	out := s
	out.Cart = s.Cart.Clone()
	if s.Catalog != nil {
		out.Catalog = append([]types.Product(nil), s.Catalog...)
	}
	if s.Wallet != nil {
		w := *s.Wallet
		out.Wallet = &w
	}
	if s.Conversations != nil {
		out.Conversations = make([]types.Conversation, len(s.Conversations))
		for i, c := range s.Conversations {
			c.Participants = append([]uuid.UUID(nil), c.Participants...)
			out.Conversations[i] = c
		}
	}
	if s.Orders != nil {
		out.Orders = make([]types.Order, len(s.Orders))
		for i, o := range s.Orders {
			out.Orders[i] = cloneOrder(o)
		}
	}
	if s.Notices != nil {
		out.Notices = append([]Notice(nil), s.Notices...)
	}
	return out
}

func cloneOrder(o types.Order) types.Order {
	if o.Items != nil {
		o.Items = append([]types.OrderLine(nil), o.Items...)
	}
	return o
}
