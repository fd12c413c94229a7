package services

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// GoogleOAuthService runs the OAuth2 authorization-code flow against Google to obtain ID tokens.
type GoogleOAuthService struct {
	config *oauth2.Config
}

// NewGoogleOAuthService creates a new OAuth service for the given client credentials.
func NewGoogleOAuthService(clientID, clientSecret, redirectURI string) (*GoogleOAuthService, error) {
	if clientID == "" {
		return nil, fmt.Errorf("missing google client_id")
	}

	if clientSecret == "" {
		return nil, fmt.Errorf("missing google client_secret")
	}

	if redirectURI == "" {
		redirectURI = "http://localhost:5050/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       []string{"openid", "profile"},
		Endpoint:     endpoints.Google,
	}

	return &GoogleOAuthService{config: config}, nil
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *GoogleOAuthService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// RedirectURL returns the callback URL the provider redirects to.
func (s *GoogleOAuthService) RedirectURL() string {
	return s.config.RedirectURL
}

// Exchange trades an authorization code for a token and returns its ID token.
func (s *GoogleOAuthService) Exchange(ctx context.Context, code string) (string, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange auth code: %w", err)
	}

	idToken, ok := token.Extra("id_token").(string)
	if !ok || idToken == "" {
		return "", fmt.Errorf("token response has no id_token")
	}

	return idToken, nil
}
