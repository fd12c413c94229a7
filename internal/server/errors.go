package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/chordpaper/internal/usecases"
)

// Error codes returned in the "code" field of error responses.
const (
	CodeSongNotFound           = "song_not_found"
	CodeSongExists             = "create_song_exists"
	CodeWrongSongID            = "update_song_wrong_id"
	CodeSongOverwrite          = "update_song_overwrite"
	CodeInvalidID              = "invalid_id"
	CodeTrackListSizeExceeded  = "tracklist_size_exceeded"
	CodeWrongOwner             = "wrong_owner"
	CodeSongsForbidden         = "get_songs_forbidden"
	CodeFailedVerification     = "failed_google_verification"
	CodeDatastoreError         = "datastore_error"
	CodePublishError           = "publish_error"
	CodeBadRequestBody         = "bad_request_body"
	CodeBadAuthorizationHeader = "bad_authorization_header"
	CodeRateLimited            = "rate_limited"
	CodeInternal               = "internal_error"
)

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

type statusCode struct {
	status int
	code   string
}

var kindStatus = map[usecases.Kind]statusCode{
	usecases.NotFound:               {http.StatusNotFound, CodeSongNotFound},
	usecases.ExistingConflict:       {http.StatusBadRequest, CodeSongExists},
	usecases.WrongId:                {http.StatusBadRequest, CodeWrongSongID},
	usecases.OverwriteConflict:      {http.StatusBadRequest, CodeSongOverwrite},
	usecases.InvalidId:              {http.StatusBadRequest, CodeInvalidID},
	usecases.TrackListTooLarge:      {http.StatusBadRequest, CodeTrackListSizeExceeded},
	usecases.WrongOwner:             {http.StatusForbidden, CodeWrongOwner},
	usecases.OwnerVerificationError: {http.StatusForbidden, CodeSongsForbidden},
	usecases.VerificationFailed:     {http.StatusUnauthorized, CodeFailedVerification},
	usecases.DatastoreError:         {http.StatusInternalServerError, CodeDatastoreError},
	usecases.PublishError:           {http.StatusInternalServerError, CodePublishError},
}

// StatusFor maps a usecase error to its HTTP status and error code. Errors outside the usecase taxonomy
// are internal errors.
func StatusFor(err error) (int, string) {
	kind, ok := usecases.KindOf(err)
	if !ok {
		return http.StatusInternalServerError, CodeInternal
	}
	sc, ok := kindStatus[kind]
	if !ok {
		return http.StatusInternalServerError, CodeInternal
	}
	return sc.status, sc.code
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", "error", err)
	}
}

func writeErrorCode(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorBody{Code: code, Msg: msg})
}

// writeError writes the response for a usecase failure and logs server-side failures.
func writeError(w http.ResponseWriter, logger *log.Logger, err error) {
	status, code := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "code", code, "error", err)
	}

	msg := "internal server error"
	var uerr *usecases.Error
	if errors.As(err, &uerr) {
		msg = uerr.Msg
	}
	writeErrorCode(w, status, code, msg)
}
