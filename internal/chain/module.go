package chain

import (
	"github.com/settlehq/settle/internal/config"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/sentry"
)

// NewClient returns the configured chain client, or Unavailable when the chain is disabled
func NewClient(cfg *config.Configuration, logger *logger.Logger, sentry *sentry.Service) (Client, error) {
	if !cfg.Chain.Enabled {
		logger.Warnw("chain client disabled, on-chain operations will fail")
		return NewUnavailable(), nil
	}
	return NewEthereumClient(cfg, logger, sentry)
}
