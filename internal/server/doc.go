// Package server is the HTTP gateway of the chordpaper API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] registers
// [http.ServeMux] method patterns ("GET /songs/{id}") and wraps the whole mux with its middleware, so
// logging, metrics, CORS and rate limiting also apply to unmatched requests and preflights.
//
// # Endpoints
//
// Handlers implement [Handler] and return their [Route] list:
//   - [UserHandler]: POST /login, GET /users/{id}/songs
//   - [SongHandler]: POST /songs, GET/PUT/DELETE /songs/{id}
//   - [TrackHandler]: GET/PUT /songs/{id}/tracklist
//   - [HealthHandler]: GET /health-check
//
// [NewAPI] assembles them together with GET /metrics.
//
// Identity tokens are read from "Authorization: Bearer <token>". Usecase failures are mapped to a status
// and a code by [StatusFor] and written as {"code": "...", "msg": "..."}.
//
// # OAuth Callback Handler
//
// OAuthHandler serves the redirect of the local authorization code flow used by `chordpaper auth google`.
// It validates the state parameter, exchanges the code for an ID token and sends it through a channel.
// Only one callback is processed.
package server
