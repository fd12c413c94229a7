package testing

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/desertthunder/chordpaper/internal/models"
	"github.com/desertthunder/chordpaper/internal/shared"
)

// MockVerifier is a test double for [models.IdentityVerifier] mapping tokens to identities.
type MockVerifier struct {
	mu         sync.Mutex
	identities map[string]models.Identity
	Calls      int
}

// NewMockVerifier creates a verifier that accepts exactly the given tokens.
func NewMockVerifier(identities map[string]models.Identity) *MockVerifier {
	return &MockVerifier{identities: identities}
}

func (m *MockVerifier) Verify(ctx context.Context, token string) (models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++

	identity, ok := m.identities[token]
	if !ok {
		return models.Identity{}, fmt.Errorf("%w: unknown token", shared.ErrAuthFailed)
	}
	return identity, nil
}

// StoreCalls counts the calls made to a fake store by method name.
type StoreCalls struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *StoreCalls) record(method string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[method]++
}

// Count returns how many times method was called.
func (c *StoreCalls) Count(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[method]
}

// Total returns the number of calls across all methods.
func (c *StoreCalls) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.counts {
		total += n
	}
	return total
}

// MemorySongStore is an in-memory [models.SongStore] with the same conditional-write semantics as the
// SQLite repository. Errors set in Err are returned by the named method instead of touching the map.
type MemorySongStore struct {
	StoreCalls
	mu    sync.Mutex
	songs map[string]models.Song
	order []string
	Err   map[string]error
}

func NewMemorySongStore(songs ...models.Song) *MemorySongStore {
	s := &MemorySongStore{songs: make(map[string]models.Song), Err: make(map[string]error)}
	for _, song := range songs {
		s.songs[song.ID] = song
		s.order = append(s.order, song.ID)
	}
	return s
}

func (s *MemorySongStore) Get(ctx context.Context, id string) (models.Song, error) {
	s.record("Get")
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Err["Get"]; err != nil {
		return models.Song{}, err
	}
	song, ok := s.songs[id]
	if !ok {
		return models.Song{}, fmt.Errorf("%w: song %s", shared.ErrNotFound, id)
	}
	return song, nil
}

func (s *MemorySongStore) Create(ctx context.Context, song models.Song) error {
	s.record("Create")
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Err["Create"]; err != nil {
		return err
	}
	if _, ok := s.songs[song.ID]; ok {
		return fmt.Errorf("%w: song %s", shared.ErrAlreadyExists, song.ID)
	}
	s.songs[song.ID] = song
	s.order = append(s.order, song.ID)
	return nil
}

func (s *MemorySongStore) Update(ctx context.Context, song models.Song) error {
	s.record("Update")
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Err["Update"]; err != nil {
		return err
	}
	if _, ok := s.songs[song.ID]; !ok {
		return fmt.Errorf("%w: song %s", shared.ErrNotFound, song.ID)
	}
	s.songs[song.ID] = song
	return nil
}

func (s *MemorySongStore) Delete(ctx context.Context, id string) error {
	s.record("Delete")
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Err["Delete"]; err != nil {
		return err
	}
	delete(s.songs, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

func (s *MemorySongStore) QueryByOwner(ctx context.Context, ownerID string) ([]models.SongSummary, error) {
	s.record("QueryByOwner")
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Err["QueryByOwner"]; err != nil {
		return nil, err
	}
	summaries := []models.SongSummary{}
	for _, id := range s.order {
		if song := s.songs[id]; song.Owner == ownerID {
			summaries = append(summaries, song.Summary())
		}
	}
	return summaries, nil
}

// Song returns the stored song and whether it exists, without counting a call.
func (s *MemorySongStore) Song(id string) (models.Song, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	song, ok := s.songs[id]
	return song, ok
}

// Len returns the number of stored songs.
func (s *MemorySongStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.songs)
}

// MemoryTrackStore is an in-memory [models.TrackStore] enforcing [models.MaxTracks].
type MemoryTrackStore struct {
	StoreCalls
	mu         sync.Mutex
	tracklists map[string]models.TrackList
	Err        map[string]error
}

func NewMemoryTrackStore(tracklists ...models.TrackList) *MemoryTrackStore {
	s := &MemoryTrackStore{tracklists: make(map[string]models.TrackList), Err: make(map[string]error)}
	for _, tl := range tracklists {
		s.tracklists[tl.SongID] = tl
	}
	return s
}

func (s *MemoryTrackStore) Get(ctx context.Context, songID string) (models.TrackList, error) {
	s.record("Get")
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Err["Get"]; err != nil {
		return models.TrackList{}, err
	}
	tl, ok := s.tracklists[songID]
	if !ok {
		return models.TrackList{}, fmt.Errorf("%w: tracklist %s", shared.ErrNotFound, songID)
	}
	return tl, nil
}

func (s *MemoryTrackStore) Put(ctx context.Context, tracklist models.TrackList) error {
	s.record("Put")
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Err["Put"]; err != nil {
		return err
	}
	if len(tracklist.Tracks) > models.MaxTracks {
		return fmt.Errorf("%w: %d tracks", shared.ErrTrackListTooLarge, len(tracklist.Tracks))
	}

	tracks := make([]models.Track, len(tracklist.Tracks))
	for i, track := range tracklist.Tracks {
		track.Contents = maps.Clone(track.Contents)
		tracks[i] = track
	}
	s.tracklists[tracklist.SongID] = models.TrackList{SongID: tracklist.SongID, Tracks: tracks}
	return nil
}

// TrackList returns the stored tracklist and whether it exists, without counting a call.
func (s *MemoryTrackStore) TrackList(songID string) (models.TrackList, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tl, ok := s.tracklists[songID]
	return tl, ok
}

// MemoryUserStore is an in-memory [models.UserStore].
type MemoryUserStore struct {
	StoreCalls
	mu    sync.Mutex
	users map[string]models.User
	Err   error
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]models.User)}
}

func (s *MemoryUserStore) Upsert(ctx context.Context, user models.User) (models.User, error) {
	s.record("Upsert")
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return models.User{}, s.Err
	}
	stored, ok := s.users[user.ID]
	if !ok {
		stored = models.User{ID: user.ID}
	}
	if user.Name != nil {
		stored.Name = user.Name
	}
	s.users[user.ID] = stored
	return stored, nil
}

// Len returns the number of stored users.
func (s *MemoryUserStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// RecordingPublisher is a [models.JobPublisher] that records every job it is asked to publish.
//
// FailFor makes Publish return an error for the listed track ids; failed jobs are still recorded.
type RecordingPublisher struct {
	mu      sync.Mutex
	jobs    []models.SplitJob
	FailFor map[string]error
}

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{FailFor: make(map[string]error)}
}

func (p *RecordingPublisher) Publish(ctx context.Context, job models.SplitJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.jobs = append(p.jobs, job)
	if err := p.FailFor[job.TrackID]; err != nil {
		return err
	}
	return nil
}

// Jobs returns a copy of the recorded jobs in publish order.
func (p *RecordingPublisher) Jobs() []models.SplitJob {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.jobs)
}
