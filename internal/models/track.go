package models

import (
	"encoding/json"
	"fmt"
)

const (
	trackIDKey   = "id"
	trackTypeKey = "track_type"

	jobStatusKey         = "job_status"
	jobStatusMessageKey  = "job_status_message"
	jobStatusDebugLogKey = "job_status_debug_log"
	jobProgressKey       = "job_progress"
)

// MaxTracks is the largest number of tracks a [TrackList] may hold.
const MaxTracks = 10

// InitialProgressPercentage is the progress stamped on a freshly requested split job.
const InitialProgressPercentage = 5

// SplitRequestStatus is the job status of a split track.
//
// This service only ever writes [RequestedStatus]; the job consumer owns the rest.
type SplitRequestStatus string

const (
	RequestedStatus  SplitRequestStatus = "requested"
	ProcessingStatus SplitRequestStatus = "processing"
	ErrorStatus      SplitRequestStatus = "error"
)

const requestedStatusMessage = "The splitting job for the audio has been requested"

// Track types that request a stem separation job when added.
const (
	SplitTwoStemsType  = "split_2stems"
	SplitFourStemsType = "split_4stems"
	SplitFiveStemsType = "split_5stems"
)

var splitTrackTypes = map[string]bool{
	SplitTwoStemsType:  true,
	SplitFourStemsType: true,
	SplitFiveStemsType: true,
}

// IsSplitTrackType reports whether trackType requests a split job.
func IsSplitTrackType(trackType string) bool {
	return splitTrackTypes[trackType]
}

// Track is one entry of a [TrackList]. Everything except the id and type is opaque.
type Track struct {
	ID        string
	TrackType string
	Contents  map[string]any
}

// TrackList is the ordered set of tracks attached to a song.
type TrackList struct {
	SongID string  `json:"song_id"`
	Tracks []Track `json:"tracks"`
}

// SplitJob is the queue message requesting a split of one track.
type SplitJob struct {
	TrackListID string `json:"tracklist_id"`
	TrackID     string `json:"track_id"`
}

// NewTrackList returns an empty tracklist for songID.
func NewTrackList(songID string) TrackList {
	return TrackList{SongID: songID, Tracks: []Track{}}
}

// MarshalJSON always writes tracks as an array.
func (t TrackList) MarshalJSON() ([]byte, error) {
	type plain TrackList
	out := plain(t)
	if out.Tracks == nil {
		out.Tracks = []Track{}
	}
	return json.Marshal(out)
}

// IsNew reports whether the track has not been assigned an id yet.
func (t Track) IsNew() bool {
	return t.ID == ""
}

// IsSplitRequest reports whether the track requests a split job.
func (t Track) IsSplitRequest() bool {
	return IsSplitTrackType(t.TrackType)
}

// InitializeSplitRequest stamps the requested job state onto the track contents.
func (t *Track) InitializeSplitRequest() {
	if t.Contents == nil {
		t.Contents = map[string]any{}
	}
	t.Contents[jobStatusKey] = string(RequestedStatus)
	t.Contents[jobStatusMessageKey] = requestedStatusMessage
	t.Contents[jobStatusDebugLogKey] = ""
	t.Contents[jobProgressKey] = InitialProgressPercentage
}

// JobStatus returns the job status stored in the track contents, if any.
func (t Track) JobStatus() SplitRequestStatus {
	status, _ := t.Contents[jobStatusKey].(string)
	return SplitRequestStatus(status)
}

// MarshalJSON flattens the track contents next to its id and type.
func (t Track) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(t.Contents)+2)
	for k, v := range t.Contents {
		obj[k] = v
	}
	obj[trackIDKey] = t.ID
	obj[trackTypeKey] = t.TrackType
	return json.Marshal(obj)
}

// UnmarshalJSON decodes a flat track object.
func (t *Track) UnmarshalJSON(data []byte) error {
	obj, err := DecodeObject(data)
	if err != nil {
		return fmt.Errorf("track is not a JSON object: %w", err)
	}

	id, err := optionalString(obj, trackIDKey)
	if err != nil {
		return err
	}

	trackType, err := optionalString(obj, trackTypeKey)
	if err != nil {
		return err
	}
	if trackType == "" {
		return fmt.Errorf("track is missing %s", trackTypeKey)
	}

	delete(obj, trackIDKey)
	delete(obj, trackTypeKey)

	*t = Track{ID: id, TrackType: trackType, Contents: obj}
	return nil
}
