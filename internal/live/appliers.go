package live

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/partnest/sparesync/internal/appstate"
	"github.com/partnest/sparesync/pkg/enums"
	"github.com/partnest/sparesync/pkg/types"
)

// CatalogApplier replaces the catalog with each pushed product list.
func CatalogApplier(sink appstate.Sink) Applier {
	return func(_ context.Context, snap Snapshot) error {
		var products []types.Product
		if err := json.Unmarshal(snap.Data, &products); err != nil {
			return fmt.Errorf("decode catalog snapshot: %w", err)
		}
		sink.Dispatch(appstate.CatalogReplaced{Products: products})
		return nil
	}
}

// WalletApplier replaces the wallet with each pushed balance.
func WalletApplier(sink appstate.Sink) Applier {
	return func(_ context.Context, snap Snapshot) error {
		var wallet types.Wallet
		if err := json.Unmarshal(snap.Data, &wallet); err != nil {
			return fmt.Errorf("decode wallet snapshot: %w", err)
		}
		sink.Dispatch(appstate.WalletReplaced{Wallet: wallet})
		return nil
	}
}

// ConversationApplier replaces the conversation list with each pushed snapshot.
func ConversationApplier(sink appstate.Sink) Applier {
	return func(_ context.Context, snap Snapshot) error {
		var conversations []types.Conversation
		if err := json.Unmarshal(snap.Data, &conversations); err != nil {
			return fmt.Errorf("decode conversation snapshot: %w", err)
		}
		sink.Dispatch(appstate.ConversationsReplaced{Conversations: conversations})
		return nil
	}
}

// ApplierFor returns the applier matching class.
func ApplierFor(class enums.ResourceClass, sink appstate.Sink) (Applier, error) {
	switch class {
	case enums.ResourceClassCatalog:
		return CatalogApplier(sink), nil
	case enums.ResourceClassWallet:
		return WalletApplier(sink), nil
	case enums.ResourceClassConversation:
		return ConversationApplier(sink), nil
	}
	return nil, fmt.Errorf("no applier for resource class %q", class)
}
