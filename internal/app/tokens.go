package app

import (
	"fmt"

	"github.com/rickgao/market-alerts/internal/auth"
	"github.com/rickgao/market-alerts/internal/config"
)

// TokenProvider picks the bearer token source: a static token, a signer
// for self-issued JWTs, or nil when neither is configured.
func TokenProvider(cfg config.APIConfig) (auth.TokenProvider, error) {
	switch {
	case cfg.Token != "":
		return auth.Static(cfg.Token), nil
	case cfg.JWTSecret != "":
		signer, err := auth.NewSigner(auth.SignerConfig{
			Secret:  cfg.JWTSecret,
			Subject: cfg.JWTSubject,
			Issuer:  "market-alerts",
			TTL:     cfg.JWTTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("create token signer: %w", err)
		}
		return signer, nil
	default:
		return nil, nil
	}
}
