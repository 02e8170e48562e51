package backend

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/partnest/sparesync/internal/live"
	"github.com/partnest/sparesync/pkg/enums"
	"github.com/partnest/sparesync/pkg/logger"
	"github.com/partnest/sparesync/pkg/types"
)

type channelPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	ActiveChannels(ctx context.Context, pattern string) ([]string, error)
	LiveChannel(class, userID string, qualifiers ...string) string
	LiveChannelPattern(class string) string
	ParseLiveChannel(channel string) (class, userID string, qualifiers []string, ok bool)
}

// RedisPublisher pushes catalog and wallet snapshots on the live channels.
// Catalog snapshots are only sent to channels that currently have subscribers,
// each filtered for the subscriber's role.
type RedisPublisher struct {
	client channelPublisher
	repo   *Repository
	logg   *logger.Logger
}

func NewRedisPublisher(client channelPublisher, repo *Repository, logg *logger.Logger) (*RedisPublisher, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &RedisPublisher{client: client, repo: repo, logg: logg}, nil
}

func (p *RedisPublisher) PublishCatalog(ctx context.Context) error {
	class := enums.ResourceClassCatalog.String()
	channels, err := p.client.ActiveChannels(ctx, p.client.LiveChannelPattern(class))
	if err != nil {
		return fmt.Errorf("list catalog channels: %w", err)
	}
	if len(channels) == 0 {
		return nil
	}

	records, err := p.repo.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	products := toProducts(records)

	var errs error
	for _, channel := range channels {
		_, rawUser, qualifiers, ok := p.client.ParseLiveChannel(channel)
		if !ok || len(qualifiers) == 0 {
			continue
		}
		userID, err := uuid.Parse(rawUser)
		if err != nil {
			continue
		}
		role, err := enums.ParseMemberRole(qualifiers[0])
		if err != nil {
			continue
		}
		payload, err := live.Encode(enums.ResourceClassCatalog, CatalogFor(products, userID, role))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if err := p.client.Publish(ctx, channel, payload); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("publish %s: %w", channel, err))
		}
	}
	p.logg.Debug(p.logg.WithField(ctx, "channels", len(channels)), "backend.catalog.published")
	return errs
}

func (p *RedisPublisher) PublishWallet(ctx context.Context, userID uuid.UUID) error {
	wallet := types.Wallet{UserID: userID}
	record, err := p.repo.FindWallet(ctx, userID)
	if err != nil {
		return fmt.Errorf("load wallet: %w", err)
	}
	if record != nil {
		wallet = toWallet(*record)
	}
	payload, err := live.Encode(enums.ResourceClassWallet, wallet)
	if err != nil {
		return err
	}
	channel := p.client.LiveChannel(enums.ResourceClassWallet.String(), userID.String())
	if err := p.client.Publish(ctx, channel, payload); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// CatalogFor filters the catalog for a subscriber: sellers see their own
// listings, buyers and admins see everything.
func CatalogFor(products []types.Product, userID uuid.UUID, role enums.MemberRole) []types.Product {
	if role != enums.MemberRoleSeller {
		return products
	}
	out := make([]types.Product, 0, len(products))
	for _, p := range products {
		if p.SellerID == userID {
			out = append(out, p)
		}
	}
	return out
}
