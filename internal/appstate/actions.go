package appstate

import (
	"github.com/google/uuid"

	"github.com/partnest/sparesync/pkg/types"
)

// Action is a state transition request. The set is closed to this package.
type Action interface {
	actionName() string
}

type (
	// CartReplaced stores a canonical server cart wholesale.
	CartReplaced struct{ Cart types.Cart }
	// CartCleared empties the cart after a successful order.
	CartCleared struct{}
	// CatalogReplaced stores a full catalog snapshot.
	CatalogReplaced struct{ Products []types.Product }
	// WalletReplaced stores the latest wallet balance.
	WalletReplaced struct{ Wallet types.Wallet }
	// ConversationsReplaced stores the full conversation list.
	ConversationsReplaced struct{ Conversations []types.Conversation }
	// OrdersReplaced stores the full order list.
	OrdersReplaced struct{ Orders []types.Order }
	// OrderUpserted replaces an order by id or prepends it when new.
	OrderUpserted struct{ Order types.Order }
	// NoticeRecorded appends a notice.
	NoticeRecorded struct{ Notice Notice }
	// NoticeDismissed removes a notice by id.
	NoticeDismissed struct{ ID uuid.UUID }
	// SessionExpired marks the user as logged out and drops private state.
	SessionExpired struct{}
)

func (CartReplaced) actionName() string          { return "cart.replaced" }
func (CartCleared) actionName() string           { return "cart.cleared" }
func (CatalogReplaced) actionName() string       { return "catalog.replaced" }
func (WalletReplaced) actionName() string        { return "wallet.replaced" }
func (ConversationsReplaced) actionName() string { return "conversations.replaced" }
func (OrdersReplaced) actionName() string        { return "orders.replaced" }
func (OrderUpserted) actionName() string         { return "order.upserted" }
func (NoticeRecorded) actionName() string        { return "notice.recorded" }
func (NoticeDismissed) actionName() string       { return "notice.dismissed" }
func (SessionExpired) actionName() string        { return "session.expired" }

// Name returns the dotted event name of a, for logging.
func Name(a Action) string {
	if a == nil {
		return ""
	}
	return a.actionName()
}
