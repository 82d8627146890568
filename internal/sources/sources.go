package sources

import (
	"errors"
	"fmt"
	"time"

	"github.com/citizenwallet/feed/internal/config"
	"github.com/citizenwallet/feed/internal/ratelimit"
	"github.com/citizenwallet/feed/internal/services/giveth"
	"github.com/citizenwallet/feed/internal/services/opencollective"
	"github.com/citizenwallet/feed/internal/services/sponsors"
	"github.com/citizenwallet/feed/pkg/feed"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrMissingEndpoint = errors.New("missing endpoint")

// Builder turns the sources config into routes, clients are shared by every account
type Builder struct {
	cfg    *config.Config
	logger *zap.Logger

	oc     *opencollective.Client
	giveth *giveth.Client
}

func NewBuilder(cfg *config.Config, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Builder{
		cfg:    cfg,
		logger: logger,
	}
}

func (b *Builder) Build() (feed.Routes, error) {
	m := map[string][]feed.Descriptor{}

	for account, scs := range b.cfg.Sources {
		for i, sc := range scs {
			src, err := b.source(account, sc)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", account, i, err)
			}

			m[account] = append(m[account], feed.Descriptor{
				Source:        src,
				Tail:          sc.Tail,
				Interval:      time.Duration(sc.Interval),
				Backfill:      sc.Backfill,
				FirstPageOnly: sc.FirstPageOnly,
			})

			b.logger.Info("routing source",
				zap.String("account", account),
				zap.String("kind", sc.Kind),
				zap.Bool("tail", sc.Tail),
				zap.Bool("backfill", sc.Backfill))
		}
	}

	return feed.NewRoutes(m), nil
}

func (b *Builder) source(account string, sc config.SourceConfig) (feed.Source, error) {
	decimals := sc.DecimalsOr(b.cfg.Community.Token.Decimals)

	switch sc.Kind {
	case config.KindOpenCollective:
		return opencollective.NewSource(b.openCollective(), sc.Slug, account, decimals, b.logger), nil
	case config.KindGiveth:
		c, err := b.givethClient()
		if err != nil {
			return nil, err
		}

		return giveth.NewSource(c, sc.ProjectID, account, decimals, b.logger), nil
	case config.KindSponsors:
		records, err := sponsors.Load(b.cfg.Path(sc.File))
		if err != nil {
			return nil, err
		}

		rate := sponsors.DefaultRate
		if sc.Rate != "" {
			rate, err = decimal.NewFromString(sc.Rate)
			if err != nil {
				return nil, fmt.Errorf("rate: %w", err)
			}
		}

		return sponsors.NewSource(records, account, decimals, rate, b.logger), nil
	}

	return nil, fmt.Errorf("%w: unknown kind %q", config.ErrInvalidSource, sc.Kind)
}

func (b *Builder) openCollective() *opencollective.Client {
	if b.oc == nil {
		b.oc = opencollective.NewClient(b.cfg.OpenCollectiveURL, b.cfg.OpenCollectiveAPIKey)
		b.oc.SetRateLimiter(ratelimit.NewLimiter(b.cfg.AuxRateLimit, 1, opencollective.SourceName))
	}

	return b.oc
}

func (b *Builder) givethClient() (*giveth.Client, error) {
	if b.cfg.GivethURL == "" {
		return nil, fmt.Errorf("%w: GIVETH_URL", ErrMissingEndpoint)
	}

	if b.giveth == nil {
		b.giveth = giveth.NewClient(b.cfg.GivethURL)
		b.giveth.SetRateLimiter(ratelimit.NewLimiter(b.cfg.AuxRateLimit, 1, giveth.SourceName))
	}

	return b.giveth, nil
}
