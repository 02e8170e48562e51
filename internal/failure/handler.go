// Package failure turns operation errors into user-visible state: notices,
// forced refreshes and forced logout.
package failure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/partnest/sparesync/internal/appstate"
	pkgerrors "github.com/partnest/sparesync/pkg/errors"
	"github.com/partnest/sparesync/pkg/logger"
)

// Kind classifies how a failure was surfaced.
type Kind string

const (
	KindNone    Kind = ""
	KindInline  Kind = "inline"
	KindRefresh Kind = "refresh"
	KindRetry   Kind = "retry"
	KindLogout  Kind = "logout"
	KindGeneric Kind = "generic"
	KindDropped Kind = "dropped"
)

// Outcome describes what Handle did.
type Outcome struct {
	Kind   Kind
	Notice appstate.Notice
	// ResubmitAllowed is set after a conflict once the forced refresh succeeded.
	ResubmitAllowed bool
	RefreshErr      error
}

type sessionClearer interface {
	Clear(ctx context.Context) error
}

// RefreshFunc reloads one piece of canonical state.
type RefreshFunc func(ctx context.Context) error

// Options wires the collaborators used by Handler.
type Options struct {
	Session        sessionClearer
	RefreshCart    RefreshFunc
	RefreshCatalog RefreshFunc
	Logger         *logger.Logger
	Now            func() time.Time
}

// Handler applies the failure policy.
type Handler struct {
	sink           appstate.Sink
	session        sessionClearer
	refreshCart    RefreshFunc
	refreshCatalog RefreshFunc
	logg           *logger.Logger
	now            func() time.Time
}

// NewHandler builds a handler recording notices into sink.
func NewHandler(sink appstate.Sink, opts Options) (*Handler, error) {
	if sink == nil {
		return nil, fmt.Errorf("state sink required")
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		sink:           sink,
		session:        opts.Session,
		refreshCart:    opts.RefreshCart,
		refreshCatalog: opts.RefreshCatalog,
		logg:           logg,
		now:            now,
	}, nil
}

// Handle surfaces err. A nil error yields a zero Outcome. Errors caused by
// the caller's own context being cancelled (screen left) are dropped.
func (h *Handler) Handle(ctx context.Context, err error) Outcome {
	if err == nil {
		return Outcome{}
	}
	if ctx != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		h.logg.Debug(ctx, "failure.dropped")
		return Outcome{Kind: KindDropped}
	}

	code := pkgerrors.CodeOf(err)
	meta := pkgerrors.MetadataFor(code)
	notice := appstate.Notice{
		ID:        uuid.New(),
		Code:      code,
		Message:   meta.PublicMessage,
		Retryable: meta.Retryable,
		At:        h.now(),
	}
	if typed := pkgerrors.As(err); typed != nil && meta.DetailsAllowed {
		notice.Details = typed.Details()
	}

	out := Outcome{}
	switch code {
	case pkgerrors.CodeValidation:
		out.Kind = KindInline
		notice.Message = messageOf(err, meta)
		notice.Retryable = false
	case pkgerrors.CodeConflict, pkgerrors.CodeStockConflict:
		out.Kind = KindRefresh
		if code == pkgerrors.CodeConflict {
			notice.Message = messageOf(err, meta)
		}
		out.RefreshErr = h.refresh(ctx)
		out.ResubmitAllowed = out.RefreshErr == nil
		notice.Retryable = out.ResubmitAllowed
	case pkgerrors.CodeNetwork:
		out.Kind = KindRetry
		notice.Retryable = true
	case pkgerrors.CodeUnauthorized:
		out.Kind = KindLogout
		notice.Retryable = false
		if h.session != nil {
			if clearErr := h.session.Clear(ctx); clearErr != nil {
				h.logg.Error(ctx, "failure.session.clear", clearErr)
			}
		}
		h.sink.Dispatch(appstate.SessionExpired{})
	default:
		out.Kind = KindGeneric
	}

	out.Notice = notice
	h.sink.Dispatch(appstate.NoticeRecorded{Notice: notice})

	logCtx := h.logg.WithFields(ctx, map[string]any{
		"error_code": string(code),
		"kind":       string(out.Kind),
	})
	if out.Kind == KindGeneric {
		h.logg.Error(logCtx, "failure.handled", err)
	} else {
		h.logg.Warn(logCtx, "failure.handled")
	}
	return out
}

func (h *Handler) refresh(ctx context.Context) error {
	var err error
	if h.refreshCart != nil {
		err = multierr.Append(err, h.refreshCart(ctx))
	}
	if h.refreshCatalog != nil {
		err = multierr.Append(err, h.refreshCatalog(ctx))
	}
	if err != nil {
		h.logg.Error(ctx, "failure.refresh", err)
	}
	return err
}

func messageOf(err error, meta pkgerrors.Metadata) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		return typed.Message()
	}
	return meta.PublicMessage
}
