package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/partnest/sparesync/internal/appstate"
	"github.com/partnest/sparesync/internal/cart"
	"github.com/partnest/sparesync/internal/catalog"
	"github.com/partnest/sparesync/internal/failure"
	"github.com/partnest/sparesync/internal/live"
	"github.com/partnest/sparesync/internal/orders"
	"github.com/partnest/sparesync/internal/screen"
	"github.com/partnest/sparesync/pkg/auth/session"
	"github.com/partnest/sparesync/pkg/config"
	"github.com/partnest/sparesync/pkg/logger"
	"github.com/partnest/sparesync/pkg/metrics"
	"github.com/partnest/sparesync/pkg/redis"
	"github.com/partnest/sparesync/pkg/storefront"
)

// app holds the process-wide client collaborators. Screens are entered per
// command and get their own services bound to the screen as state sink.
type app struct {
	cfg      *config.Config
	logg     *logger.Logger
	redis    *redis.Client
	sessions *session.Store
	remote   *storefront.Client
	store    *appstate.Store
	screens  *screen.Registry
	ops      *metrics.OperationMetrics
}

// view is one mounted screen with services writing through it.
type view struct {
	screen  *screen.Screen
	catalog *catalog.Service
	cart    *cart.Service
	orders  *orders.Service
	failure *failure.Handler
}

func newApp(ctx context.Context, cfg *config.Config, logg *logger.Logger, deviceID string) (*app, error) {
	redisClient, err := redis.New(ctx, cfg.Redis, cfg.Live.Namespace, logg)
	if err != nil {
		return nil, fmt.Errorf("connecting redis: %w", err)
	}

	sessions, err := session.NewStore(redisClient, redisClient, deviceID, cfg.JWT.SessionTTL())
	if err != nil {
		_ = redisClient.Close()
		return nil, err
	}

	remote, err := storefront.NewFromConfig(cfg.Client,
		storefront.WithLogger(logg),
		storefront.WithTokenSource(func(ctx context.Context) (string, error) {
			sess, err := sessions.Load(ctx)
			if err != nil {
				if errors.Is(err, session.ErrNoSession) {
					return "", nil
				}
				return "", err
			}
			return sess.Token, nil
		}),
	)
	if err != nil {
		_ = redisClient.Close()
		return nil, err
	}

	channel, err := live.NewRedisChannel(redisClient, cfg.Live.BufferSize, logg)
	if err != nil {
		_ = redisClient.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	store := appstate.NewStore(appstate.State{})
	screens, err := screen.NewRegistry(store, channel, screen.Options{
		Logger:      logg,
		LiveMetrics: metrics.NewLiveMetrics(reg),
	})
	if err != nil {
		_ = redisClient.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logg:     logg,
		redis:    redisClient,
		sessions: sessions,
		remote:   remote,
		store:    store,
		screens:  screens,
		ops:      metrics.NewOperationMetrics(reg),
	}, nil
}

func (a *app) enter(ctx context.Context, name string) (*view, error) {
	scr, err := a.screens.Enter(ctx, name)
	if err != nil {
		return nil, err
	}

	catalogSvc, err := catalog.NewService(a.remote, scr, a.logg, a.ops)
	if err != nil {
		return nil, err
	}
	cartSvc, err := cart.NewService(a.remote, scr, cart.Options{
		MaxItemQuantity: a.cfg.Client.MaxItemQuantity,
		Logger:          a.logg,
		Metrics:         a.ops,
	})
	if err != nil {
		return nil, err
	}
	orderSvc, err := orders.NewService(a.remote, scr, orders.Options{
		WalletPayments: a.cfg.FeatureFlags.WalletPayments,
		Logger:         a.logg,
		Metrics:        a.ops,
	})
	if err != nil {
		return nil, err
	}
	handler, err := failure.NewHandler(scr, failure.Options{
		Session: a.sessions,
		RefreshCart: func(ctx context.Context) error {
			_, err := cartSvc.Load(ctx)
			return err
		},
		RefreshCatalog: catalogSvc.Refresh,
		Logger:         a.logg,
	})
	if err != nil {
		return nil, err
	}

	return &view{screen: scr, catalog: catalogSvc, cart: cartSvc, orders: orderSvc, failure: handler}, nil
}

func (a *app) close() error {
	err := a.screens.LeaveAll()
	if cerr := a.redis.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
