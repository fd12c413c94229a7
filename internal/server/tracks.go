package server

import (
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/chordpaper/internal/models"
	"github.com/desertthunder/chordpaper/internal/usecases"
)

// TrackHandler serves the tracklist endpoints of a song.
type TrackHandler struct {
	tracks TrackService
	logger *log.Logger
}

// NewTrackHandler creates a [TrackHandler].
func NewTrackHandler(tracks TrackService, logger *log.Logger) *TrackHandler {
	return &TrackHandler{tracks: tracks, logger: logger}
}

func (h *TrackHandler) Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/songs/{id}/tracklist", Handler: h.get},
		{Method: http.MethodPut, Path: "/songs/{id}/tracklist", Handler: h.set},
	}
}

func (h *TrackHandler) get(w http.ResponseWriter, r *http.Request) {
	tracklist, err := h.tracks.GetTrackList(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tracklist)
}

func (h *TrackHandler) set(w http.ResponseWriter, r *http.Request) {
	token, ok := authorize(w, r)
	if !ok {
		return
	}

	var tracklist models.TrackList
	if !decodeBody(w, r, &tracklist) {
		return
	}

	stored, err := h.tracks.SetTrackList(r.Context(), token, r.PathValue("id"), tracklist)
	if err != nil {
		if kind, _ := usecases.KindOf(err); kind == usecases.PublishError {
			h.logger.Warn("tracklist stored but split jobs failed", "song", stored.SongID, "error", err)
		}
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}
