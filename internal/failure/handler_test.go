package failure

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/multierr"

	"github.com/partnest/sparesync/internal/appstate"
	pkgerrors "github.com/partnest/sparesync/pkg/errors"
)

type stubSession struct{ cleared int }

func (s *stubSession) Clear(context.Context) error {
	s.cleared++
	return nil
}

func newHandler(t *testing.T, opts Options) (*Handler, *appstate.Store) {
	t.Helper()
	store := appstate.NewStore(appstate.State{})
	h, err := NewHandler(store, opts)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return h, store
}

func TestValidationIsInlineWithoutRetry(t *testing.T) {
	h, store := newHandler(t, Options{})
	out := h.Handle(context.Background(), pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete"))
	if out.Kind != KindInline || out.Notice.Retryable {
		t.Fatalf("unexpected outcome %+v", out)
	}
	notices := store.State().Notices
	if len(notices) != 1 || notices[0].Message != "shipping address is incomplete" {
		t.Fatalf("expected inline notice, got %+v", notices)
	}
}

func TestStockConflictForcesRefresh(t *testing.T) {
	var cartCalls, catalogCalls int
	h, store := newHandler(t, Options{
		RefreshCart:    func(context.Context) error { cartCalls++; return nil },
		RefreshCatalog: func(context.Context) error { catalogCalls++; return nil },
	})

	out := h.Handle(context.Background(), pkgerrors.New(pkgerrors.CodeStockConflict, "server said so"))
	if out.Kind != KindRefresh || !out.ResubmitAllowed {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if cartCalls != 1 || catalogCalls != 1 {
		t.Fatalf("expected both refreshes, got cart=%d catalog=%d", cartCalls, catalogCalls)
	}
	if msg := store.State().Notices[0].Message; msg != "one or more products out of stock" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestRefreshFailureBlocksResubmit(t *testing.T) {
	h, _ := newHandler(t, Options{
		RefreshCart:    func(context.Context) error { return errors.New("cart down") },
		RefreshCatalog: func(context.Context) error { return errors.New("catalog down") },
	})
	out := h.Handle(context.Background(), pkgerrors.New(pkgerrors.CodeConflict, "product is out of stock"))
	if out.ResubmitAllowed {
		t.Fatalf("resubmit must wait for a successful refresh")
	}
	if got := len(multierr.Errors(out.RefreshErr)); got != 2 {
		t.Fatalf("expected both refresh errors, got %d", got)
	}
	if out.Notice.Message != "product is out of stock" {
		t.Fatalf("conflict should keep server message, got %q", out.Notice.Message)
	}
}

func TestNetworkErrorIsRetryable(t *testing.T) {
	h, _ := newHandler(t, Options{})
	err := pkgerrors.Wrap(pkgerrors.CodeNetwork, context.DeadlineExceeded, "request timed out")
	out := h.Handle(context.Background(), err)
	if out.Kind != KindRetry || !out.Notice.Retryable || out.Notice.Message != "network error" {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestUnauthorizedForcesLogout(t *testing.T) {
	session := &stubSession{}
	h, store := newHandler(t, Options{Session: session})
	store.Dispatch(appstate.CartCleared{})

	out := h.Handle(context.Background(), fmt.Errorf("load cart: %w", pkgerrors.New(pkgerrors.CodeUnauthorized, "token expired")))
	if out.Kind != KindLogout {
		t.Fatalf("expected logout, got %+v", out)
	}
	if session.cleared != 1 {
		t.Fatalf("session should be cleared")
	}
	state := store.State()
	if !state.SessionExpired || state.CartLoaded {
		t.Fatalf("expected session expired state, got %+v", state)
	}
	if len(state.Notices) != 1 {
		t.Fatalf("logout should still leave a notice")
	}
}

func TestUntypedErrorIsGeneric(t *testing.T) {
	h, store := newHandler(t, Options{})
	out := h.Handle(context.Background(), errors.New("boom"))
	if out.Kind != KindGeneric || out.Notice.Code != pkgerrors.CodeInternal {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(store.State().Notices) != 1 {
		t.Fatalf("generic failures must be surfaced")
	}
}

func TestCancelledScreenIsDropped(t *testing.T) {
	h, store := newHandler(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := h.Handle(ctx, pkgerrors.Wrap(pkgerrors.CodeNetwork, context.Canceled, "request cancelled"))
	if out.Kind != KindDropped {
		t.Fatalf("expected dropped, got %+v", out)
	}
	if len(store.State().Notices) != 0 {
		t.Fatalf("dropped failures must not produce notices")
	}
}

func TestNilErrorIsNoop(t *testing.T) {
	h, store := newHandler(t, Options{})
	if out := h.Handle(context.Background(), nil); out.Kind != KindNone {
		t.Fatalf("expected no outcome")
	}
	if len(store.State().Notices) != 0 {
		t.Fatalf("no notice expected")
	}
}
