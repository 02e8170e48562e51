// Package catalog loads the product catalog and wallet balance on demand.
// Live pushes keep them current afterwards; these loads are used on screen
// entry and after a conflict.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/partnest/sparesync/internal/appstate"
	pkgerrors "github.com/partnest/sparesync/pkg/errors"
	"github.com/partnest/sparesync/pkg/logger"
	"github.com/partnest/sparesync/pkg/metrics"
	"github.com/partnest/sparesync/pkg/types"
)

// Remote is the read side of the storefront backend. *storefront.Client satisfies it.
type Remote interface {
	ListProducts(ctx context.Context) ([]types.Product, error)
	GetWallet(ctx context.Context) (types.Wallet, error)
}

// Service refreshes the catalog and wallet into the screen's state store.
type Service struct {
	remote  Remote
	sink    appstate.Sink
	logg    *logger.Logger
	metrics *metrics.OperationMetrics
}

// NewService binds a Service to remote and sink. A nil logger logs nowhere and
// nil metrics record nothing.
func NewService(remote Remote, sink appstate.Sink, logg *logger.Logger, m *metrics.OperationMetrics) (*Service, error) {
	if remote == nil {
		return nil, fmt.Errorf("catalog remote required")
	}
	if sink == nil {
		return nil, fmt.Errorf("state sink required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{remote: remote, sink: sink, logg: logg, metrics: m}, nil
}

// Refresh replaces the catalog with the server's listing.
func (s *Service) Refresh(ctx context.Context) error {
	started := time.Now()
	products, err := s.remote.ListProducts(ctx)
	if err != nil {
		s.fail(ctx, "catalog.refresh", started, err)
		return err
	}
	s.sink.Dispatch(appstate.CatalogReplaced{Products: products})
	s.metrics.Track("catalog.refresh", started, "")
	return nil
}

// RefreshWallet replaces the wallet balance.
func (s *Service) RefreshWallet(ctx context.Context) error {
	started := time.Now()
	wallet, err := s.remote.GetWallet(ctx)
	if err != nil {
		s.fail(ctx, "wallet.refresh", started, err)
		return err
	}
	s.sink.Dispatch(appstate.WalletReplaced{Wallet: wallet})
	s.metrics.Track("wallet.refresh", started, "")
	return nil
}

func (s *Service) fail(ctx context.Context, op string, started time.Time, err error) {
	code := pkgerrors.CodeOf(err)
	s.metrics.Track(op, started, string(code))
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"operation": op, "error_code": code}), "catalog.load.failed")
}
