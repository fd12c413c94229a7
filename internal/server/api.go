package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/chordpaper/internal/metrics"
	"github.com/desertthunder/chordpaper/internal/models"
)

// maxBodyBytes bounds request bodies. Songs with many elements are large, so the limit is generous.
const maxBodyBytes = 8 << 20

// SongService is the song usecase as used by [SongHandler].
type SongService interface {
	GetSong(ctx context.Context, id string) (models.Song, error)
	CreateSong(ctx context.Context, token string, song models.Song) (models.Song, error)
	UpdateSong(ctx context.Context, token, pathID string, song models.Song) (models.Song, error)
	DeleteSong(ctx context.Context, token, songID string) error
}

// TrackService is the tracklist usecase as used by [TrackHandler].
type TrackService interface {
	GetTrackList(ctx context.Context, songID string) (models.TrackList, error)
	SetTrackList(ctx context.Context, token, pathSongID string, tracklist models.TrackList) (models.TrackList, error)
}

// UserService is the user usecase as used by [UserHandler].
type UserService interface {
	Login(ctx context.Context, token string) (models.User, error)
	SongsForOwner(ctx context.Context, token, ownerID string) ([]models.SongSummary, error)
}

var errBadAuthorization = errors.New("missing or malformed authorization header")

// bearerToken reads the token from an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errBadAuthorization
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", errBadAuthorization
	}
	return token, nil
}

// authorize writes a 401 and returns false when the request carries no usable bearer token.
func authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	token, err := bearerToken(r)
	if err != nil {
		writeErrorCode(w, http.StatusUnauthorized, CodeBadAuthorizationHeader, err.Error())
		return "", false
	}
	return token, true
}

// decodeBody decodes the JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		msg := fmt.Sprintf("request body could not be read: %v", err)
		if errors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		writeErrorCode(w, http.StatusBadRequest, CodeBadRequestBody, msg)
		return false
	}
	return true
}

// HealthHandler answers liveness probes.
type HealthHandler struct{}

func (HealthHandler) Routes() []Route {
	return []Route{{Method: http.MethodGet, Path: "/health-check", Handler: healthCheck}}
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Services are the usecases served by the API.
type Services struct {
	Songs  SongService
	Tracks TrackService
	Users  UserService
}

// APIOptions configures the middleware of the API router.
type APIOptions struct {
	Logger         *log.Logger
	AllowedOrigins []string
	Limiter        *RateLimiter // nil disables rate limiting
}

// NewAPI wires the chordpaper endpoints, the health check and the metrics endpoint into a router.
func NewAPI(svc Services, opts APIOptions) *BasicRouter {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	router := NewBasicRouter()
	router.Use(RequestLogger(logger), Metrics(), CORS(opts.AllowedOrigins))
	if opts.Limiter != nil {
		router.Use(opts.Limiter.Handler)
	}

	router.Handler(HealthHandler{})
	router.Handle(http.MethodGet, "/metrics", metrics.Handler())
	router.Handler(NewUserHandler(svc.Users, logger))
	router.Handler(NewSongHandler(svc.Songs, logger))
	router.Handler(NewTrackHandler(svc.Tracks, logger))

	return router
}
