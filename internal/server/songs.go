package server

import (
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/chordpaper/internal/models"
)

// SongHandler serves the song endpoints.
type SongHandler struct {
	songs  SongService
	logger *log.Logger
}

// NewSongHandler creates a [SongHandler].
func NewSongHandler(songs SongService, logger *log.Logger) *SongHandler {
	return &SongHandler{songs: songs, logger: logger}
}

func (h *SongHandler) Routes() []Route {
	return []Route{
		{Method: http.MethodPost, Path: "/songs", Handler: h.create},
		{Method: http.MethodGet, Path: "/songs/{id}", Handler: h.get},
		{Method: http.MethodPut, Path: "/songs/{id}", Handler: h.update},
		{Method: http.MethodDelete, Path: "/songs/{id}", Handler: h.delete},
	}
}

func (h *SongHandler) get(w http.ResponseWriter, r *http.Request) {
	song, err := h.songs.GetSong(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (h *SongHandler) create(w http.ResponseWriter, r *http.Request) {
	token, ok := authorize(w, r)
	if !ok {
		return
	}

	var song models.Song
	if !decodeBody(w, r, &song) {
		return
	}

	created, err := h.songs.CreateSong(r.Context(), token, song)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (h *SongHandler) update(w http.ResponseWriter, r *http.Request) {
	token, ok := authorize(w, r)
	if !ok {
		return
	}

	var song models.Song
	if !decodeBody(w, r, &song) {
		return
	}

	updated, err := h.songs.UpdateSong(r.Context(), token, r.PathValue("id"), song)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *SongHandler) delete(w http.ResponseWriter, r *http.Request) {
	token, ok := authorize(w, r)
	if !ok {
		return
	}

	if err := h.songs.DeleteSong(r.Context(), token, r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
