package server

import (
	"net/http"

	"github.com/charmbracelet/log"
)

// UserHandler serves login and the song listing of a user.
type UserHandler struct {
	users  UserService
	logger *log.Logger
}

// NewUserHandler creates a [UserHandler].
func NewUserHandler(users UserService, logger *log.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

func (h *UserHandler) Routes() []Route {
	return []Route{
		{Method: http.MethodPost, Path: "/login", Handler: h.login},
		{Method: http.MethodGet, Path: "/users/{id}/songs", Handler: h.songs},
	}
}

func (h *UserHandler) login(w http.ResponseWriter, r *http.Request) {
	token, ok := authorize(w, r)
	if !ok {
		return
	}

	user, err := h.users.Login(r.Context(), token)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) songs(w http.ResponseWriter, r *http.Request) {
	token, ok := authorize(w, r)
	if !ok {
		return
	}

	summaries, err := h.users.SongsForOwner(r.Context(), token, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}
