package appstate

import (
	"github.com/shopspring/decimal"

	"github.com/partnest/sparesync/pkg/types"
)

// maxNotices bounds the notice list; the oldest entries fall off first.
const maxNotices = 20

// Reduce returns the state after applying action. It never mutates s.
func Reduce(s State, action Action) State {
	next := s.clone()
	switch a := action.(type) {
	case CartReplaced:
		next.Cart = a.Cart.Clone()
		next.CartLoaded = true
	case CartCleared:
		next.Cart = types.Cart{Items: []types.CartLine{}, TotalAmount: decimal.Zero, DiscountAmount: decimal.Zero}
		next.CartLoaded = true
	case CatalogReplaced:
		next.Catalog = append([]types.Product{}, a.Products...)
		next.CatalogLoaded = true
	case WalletReplaced:
		w := a.Wallet
		next.Wallet = &w
	case ConversationsReplaced:
		next.Conversations = State{Conversations: a.Conversations}.clone().Conversations
		if next.Conversations == nil {
			next.Conversations = []types.Conversation{}
		}
	case OrdersReplaced:
		next.Orders = make([]types.Order, 0, len(a.Orders))
		for _, o := range a.Orders {
			next.Orders = append(next.Orders, cloneOrder(o))
		}
	case OrderUpserted:
		next.Orders = upsertOrder(next.Orders, cloneOrder(a.Order))
	case NoticeRecorded:
		next.Notices = append(next.Notices, a.Notice)
		if len(next.Notices) > maxNotices {
			next.Notices = next.Notices[len(next.Notices)-maxNotices:]
		}
	case NoticeDismissed:
		kept := next.Notices[:0]
		for _, n := range next.Notices {
			if n.ID != a.ID {
				kept = append(kept, n)
			}
		}
		next.Notices = kept
	case SessionExpired:
		next = State{
			Catalog:        next.Catalog,
			CatalogLoaded:  next.CatalogLoaded,
			Notices:        next.Notices,
			SessionExpired: true,
		}
	}
	return next
}

func upsertOrder(orders []types.Order, order types.Order) []types.Order {
	for i, existing := range orders {
		if existing.ID == order.ID {
			orders[i] = order
			return orders
		}
	}
	return append([]types.Order{order}, orders...)
}
