package relay

import (
	"github.com/settlehq/settle/internal/config"
	"github.com/settlehq/settle/internal/httpclient"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/sentry"
)

// NewClient returns the configured relay client, or Unavailable when the relay is disabled
func NewClient(cfg *config.Configuration, sentry *sentry.Service, logger *logger.Logger) Client {
	if !cfg.Relay.Enabled {
		logger.Warnw("relay client disabled, gas sponsorship will fail")
		return NewUnavailable()
	}

	http := httpclient.NewClient(httpclient.ClientConfig{
		Timeout:           cfg.Relay.Timeout,
		RetryMax:          cfg.Relay.RetryMax,
		RequestsPerSecond: cfg.Relay.RequestsPerSecond,
	}, logger)

	return NewHTTPClient(http, cfg, sentry, logger)
}
