package server

import (
	"net/http"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, CORS, rate limiting and metrics.
type Middleware func(http.Handler) http.Handler

// Route binds a method and a path pattern to a handler.
//
// Path follows [http.ServeMux] pattern syntax, so wildcards such as "/songs/{id}" are read with
// [http.Request.PathValue].
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Pattern returns the ServeMux pattern of the route, e.g. "GET /songs/{id}".
func (r Route) Pattern() string {
	if r.Method == "" {
		return r.Path
	}
	return r.Method + " " + r.Path
}

// Handler defines the interface for a group of HTTP endpoints of the chordpaper API.
// Implementations handle one resource (songs, tracklists, users, the OAuth callback).
type Handler interface {
	Routes() []Route // Routes returns the endpoints this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers every route of a Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}
