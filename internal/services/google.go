package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"github.com/desertthunder/chordpaper/internal/models"
	"github.com/desertthunder/chordpaper/internal/shared"
)

// DefaultGoogleCertsURL is the JWKS document of Google's ID token signing keys.
const DefaultGoogleCertsURL = "https://www.googleapis.com/oauth2/v3/certs"

const (
	keysRefreshInterval = time.Hour
	unknownKIDInterval  = 5 * time.Minute // at most one refetch per interval for tokens with an unseen kid
	certsTimeout        = 10 * time.Second
)

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// googleClaims are the ID token claims read by [GoogleVerifier].
type googleClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// GoogleVerifierOpts configures [NewGoogleVerifier].
type GoogleVerifierOpts struct {
	ClientID   string
	CertsURL   string       // defaults to [DefaultGoogleCertsURL]
	HTTPClient *http.Client // defaults to [http.DefaultClient]
	Logger     *log.Logger
}

// GoogleVerifier verifies Google ID tokens issued to one OAuth client.
type GoogleVerifier struct {
	clientID string
	certsURL string
	keys     keyfunc.Keyfunc
}

// NewGoogleVerifier creates a verifier for tokens whose audience is opts.ClientID.
//
// The signing keys are fetched once here and then refreshed in the background until ctx is done. A failed
// first fetch is logged, not returned; verification fails until the keys can be loaded.
func NewGoogleVerifier(ctx context.Context, opts GoogleVerifierOpts) (*GoogleVerifier, error) {
	if opts.CertsURL == "" {
		opts.CertsURL = DefaultGoogleCertsURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	keys, err := keyfunc.NewDefaultOverrideCtx(ctx, []string{opts.CertsURL}, keyfunc.Override{
		Client:            opts.HTTPClient,
		HTTPTimeout:       certsTimeout,
		RefreshInterval:   keysRefreshInterval,
		RefreshUnknownKID: rate.NewLimiter(rate.Every(unknownKIDInterval), 1),
		RefreshErrorHandlerFunc: func(u string) func(ctx context.Context, err error) {
			return func(ctx context.Context, err error) {
				opts.Logger.Warn("failed to refresh google signing keys", "url", u, "error", err)
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create google key set: %w", err)
	}

	return &GoogleVerifier{clientID: opts.ClientID, certsURL: opts.CertsURL, keys: keys}, nil
}

// Verify checks the token signature and claims and returns the identity it was issued for.
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, fmt.Errorf("%w: empty token", shared.ErrAuthFailed)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
	)

	claims := &googleClaims{}
	if _, err := parser.ParseWithClaims(token, claims, v.keys.KeyfuncCtx(ctx)); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Identity{}, fmt.Errorf("%w: %w", shared.ErrAuthFailed, shared.ErrTokenExpired)
		}
		return models.Identity{}, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	if !googleIssuers[claims.Issuer] {
		return models.Identity{}, fmt.Errorf("%w: unexpected issuer %q", shared.ErrAuthFailed, claims.Issuer)
	}

	if claims.Subject == "" {
		return models.Identity{}, fmt.Errorf("%w: token has no subject", shared.ErrAuthFailed)
	}

	identity := models.Identity{ID: claims.Subject}
	if claims.Name != "" {
		name := claims.Name
		identity.Name = &name
	}

	return identity, nil
}
