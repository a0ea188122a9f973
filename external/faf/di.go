package faf

import (
	"context"
	"net/http"

	"github.com/foxseedlab/brackman/internal/config"
	"github.com/foxseedlab/brackman/internal/faf"
	"github.com/samber/do/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (faf.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)

		credentials := clientcredentials.Config{
			ClientID:     cfg.FAFOAuthClientID,
			ClientSecret: cfg.FAFOAuthClientSecret,
			TokenURL:     cfg.FAFOAuthTokenURL,
			Scopes:       cfg.FAFOAuthScopes,
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		// Token requests use the same timeout as API calls.
		base := &http.Client{Timeout: cfg.FAFRequestTimeout()}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		client := credentials.Client(ctx)
		client.Timeout = cfg.FAFRequestTimeout()

		limiter := rate.NewLimiter(rate.Limit(cfg.FAFRequestsPerSecond), 1)
		c, err := NewHTTPClient(cfg.FAFAPIBaseURL, client, limiter)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}
