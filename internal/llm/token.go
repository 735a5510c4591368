package llm

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"
)

// TokenProvider supplies the bearer token sent with each validation request.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token, typically read from configuration.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", fmt.Errorf("%w: no API token configured", ErrUnauthorized)
	}
	return string(t), nil
}

// IDTokenProvider mints Google-signed ID tokens for a Cloud Run or Cloud
// Functions audience. Tokens are reused until shortly before they expire.
type IDTokenProvider struct {
	source oauth2.TokenSource
}

func NewIDTokenProvider(ctx context.Context, audience string) (*IDTokenProvider, error) {
	if audience == "" {
		return nil, fmt.Errorf("NewIDTokenProvider: audience cannot be empty")
	}
	ts, err := idtoken.NewTokenSource(ctx, audience)
	if err != nil {
		return nil, fmt.Errorf("idtoken.NewTokenSource: %w", err)
	}
	return &IDTokenProvider{source: oauth2.ReuseTokenSource(nil, ts)}, nil
}

// NewTokenSourceProvider wraps an existing oauth2 token source.
func NewTokenSourceProvider(ts oauth2.TokenSource) *IDTokenProvider {
	return &IDTokenProvider{source: oauth2.ReuseTokenSource(nil, ts)}
}

func (p *IDTokenProvider) Token(context.Context) (string, error) {
	tok, err := p.source.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return tok.AccessToken, nil
}
