package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/chordpaper/internal/server"
	"github.com/desertthunder/chordpaper/internal/services"
	"github.com/desertthunder/chordpaper/internal/shared"
)

const defaultAuthTimeout = 2 * time.Minute

// AuthGoogle runs the authorization code flow in the browser and prints the resulting ID token.
//
// Starts a local HTTP server on the redirect URI, opens the browser for consent, and exchanges the code.
func (r *Runner) AuthGoogle(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	if config.Google.ClientID == "" || config.Google.ClientSecret == "" {
		return fmt.Errorf("%w: google.client_id and google.client_secret must be set", shared.ErrInvalidArgument)
	}

	oauthSrv, err := services.NewGoogleOAuthService(config.Google.ClientID, config.Google.ClientSecret, config.Google.RedirectURI)
	if err != nil {
		return fmt.Errorf("failed to create Google OAuth service: %w", err)
	}

	idToken, err := r.doOAuth(ctx, oauthSrv, cmd.Duration("timeout"))
	if err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("ID token (send as 'Authorization: Bearer <token>'):\n\n%s\n", idToken)
	return nil
}

// oauthFlow is the part of [services.GoogleOAuthService] driven by doOAuth.
type oauthFlow interface {
	server.Exchanger
	GetAuthURL(state string) string
	RedirectURL() string
}

func (r *Runner) doOAuth(ctx context.Context, flow oauthFlow, timeout time.Duration) (string, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}

	redirect, err := url.Parse(flow.RedirectURL())
	if err != nil {
		return "", fmt.Errorf("%w: invalid redirect uri: %v", shared.ErrInvalidConfig, err)
	}

	oauthHandler := server.NewOAuthHandler(flow, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	httpServer := &http.Server{
		Addr:    redirect.Host,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := flow.GetAuthURL(state)
	r.writePlain("→ Opening browser for Google sign-in...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return "", fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return "", fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if result.Error() != nil {
		return "", fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.IDToken == "" {
		return "", fmt.Errorf("no token received")
	}

	return result.IDToken, nil
}

// AuthVerify verifies a token the way the API does and prints the identity it carries.
func (r *Runner) AuthVerify(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	verifier, err := r.newVerifier(ctx, config)
	if err != nil {
		return err
	}
	identity, err := verifier.Verify(ctx, cmd.String("token"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(identity.User(), false)
	}

	name := "(none)"
	if identity.Name != nil {
		name = *identity.Name
	}
	r.writePlain("✓ Token is valid\n")
	return r.writePlain("User ID: %s\nName:    %s\n", identity.ID, name)
}
