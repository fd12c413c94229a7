// Package services implements the external collaborators of the usecases.
//
// # Google identity
//
// [GoogleVerifier] implements [models.IdentityVerifier] for Google-issued ID tokens. Tokens must be RS256
// signed by a key from Google's JWKS document, carry the configured client id as audience, one of Google's
// issuers and an expiry. Signing keys come from a keyfunc key set that refreshes hourly and refetches
// for an unseen kid at most once every five minutes.
//
// [GoogleOAuthService] runs the authorization-code flow used by the `auth google` command to obtain an
// ID token for local development.
//
// # Job queue
//
// [AMQPPublisher] implements [models.JobPublisher] on RabbitMQ. Split jobs are JSON bodies of type
// [StartJobType], published persistently to a durable queue through the default exchange.
// [LogPublisher] only logs jobs and is used when no broker is configured.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAuthFailed] : token rejected or keys unavailable
//   - [shared.ErrTokenExpired] : token past its expiry, wrapped together with ErrAuthFailed
//   - [shared.ErrPublishFailed] : broker rejected or could not take a message
package services
