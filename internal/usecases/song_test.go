package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/chordpaper/internal/models"
	"github.com/desertthunder/chordpaper/internal/shared"
	tu "github.com/desertthunder/chordpaper/internal/testing"
)

const (
	aliceToken = "alice-token"
	bobToken   = "bob-token"
	aliceID    = "alice"
	bobID      = "bob"
)

var fixedNow = time.Date(2024, 5, 10, 8, 30, 15, 987654321, time.UTC)

func newVerifier() *tu.MockVerifier {
	alice := "Alice"
	return tu.NewMockVerifier(map[string]models.Identity{
		aliceToken: {ID: aliceID, Name: &alice},
		bobToken:   {ID: bobID},
	})
}

func clock() func() time.Time {
	return func() time.Time { return fixedNow }
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	got, ok := KindOf(err)
	if !ok {
		t.Fatalf("expected usecase error of kind %v, got %v", want, err)
	}
	if got != want {
		t.Fatalf("expected kind %v, got %v (%v)", want, got, err)
	}
}

func storedSong(owner string, savedAt *time.Time) models.Song {
	return models.Song{
		SongSummary: models.SongSummary{
			ID:          shared.GenerateID(),
			Owner:       owner,
			LastSavedAt: savedAt,
			Metadata:    map[string]any{"title": "Stored"},
		},
		Elements: []any{},
	}
}

func at(t time.Time) *time.Time { return &t }

func TestSongUsecase(t *testing.T) {
	ctx := context.Background()

	t.Run("GetSong", func(t *testing.T) {
		t.Run("malformed id never reaches the store", func(t *testing.T) {
			for _, id := range []string{"", "abc", "not-a-uuid", "1234"} {
				store := tu.NewMemorySongStore()
				u := NewSongUsecase(store, newVerifier())

				_, err := u.GetSong(ctx, id)
				assertKind(t, err, NotFound)
				if store.Total() != 0 {
					t.Errorf("id %q: expected no store calls, got %d", id, store.Total())
				}
			}
		})

		t.Run("found", func(t *testing.T) {
			song := storedSong(aliceID, nil)
			u := NewSongUsecase(tu.NewMemorySongStore(song), newVerifier())

			got, err := u.GetSong(ctx, song.ID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ID != song.ID {
				t.Errorf("expected %s, got %s", song.ID, got.ID)
			}
		})

		t.Run("missing", func(t *testing.T) {
			u := NewSongUsecase(tu.NewMemorySongStore(), newVerifier())
			id := shared.GenerateID()

			_, err := u.GetSong(ctx, id)
			assertKind(t, err, NotFound)

			var uerr *Error
			if errors.As(err, &uerr) && uerr.ID != id {
				t.Errorf("expected error to carry id %s, got %s", id, uerr.ID)
			}
		})

		t.Run("store failure", func(t *testing.T) {
			store := tu.NewMemorySongStore()
			store.Err["Get"] = errors.New("connection reset")
			u := NewSongUsecase(store, newVerifier())

			_, err := u.GetSong(ctx, shared.GenerateID())
			assertKind(t, err, DatastoreError)
		})
	})

	t.Run("CreateSong", func(t *testing.T) {
		newSong := func(owner string) models.Song {
			return models.Song{SongSummary: models.SongSummary{Owner: owner, Metadata: map[string]any{}}}
		}

		t.Run("assigns id and lastSavedAt", func(t *testing.T) {
			store := tu.NewMemorySongStore()
			u := NewSongUsecase(store, newVerifier(), WithClock(clock()))

			created, err := u.CreateSong(ctx, aliceToken, newSong(aliceID))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !shared.IsValidID(created.ID) {
				t.Errorf("expected UUID id, got %q", created.ID)
			}
			want := fixedNow.Truncate(time.Second)
			if created.LastSavedAt == nil || !created.LastSavedAt.Equal(want) {
				t.Errorf("expected lastSavedAt %v, got %v", want, created.LastSavedAt)
			}
			if created.LastSavedAt.Location() != time.UTC {
				t.Errorf("expected UTC lastSavedAt, got %v", created.LastSavedAt.Location())
			}

			stored, ok := store.Song(created.ID)
			if !ok {
				t.Fatal("expected song to be stored")
			}
			if stored.Owner != aliceID {
				t.Errorf("expected owner %s, got %s", aliceID, stored.Owner)
			}
		})

		t.Run("fresh ids per create", func(t *testing.T) {
			u := NewSongUsecase(tu.NewMemorySongStore(), newVerifier())

			a, err := u.CreateSong(ctx, aliceToken, newSong(aliceID))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			b, err := u.CreateSong(ctx, aliceToken, newSong(aliceID))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if a.ID == b.ID {
				t.Errorf("expected distinct ids, got %s twice", a.ID)
			}
		})

		t.Run("existing id conflicts regardless of owner", func(t *testing.T) {
			for _, owner := range []string{aliceID, bobID, ""} {
				store := tu.NewMemorySongStore()
				u := NewSongUsecase(store, newVerifier())
				song := newSong(owner)
				song.ID = shared.GenerateID()

				_, err := u.CreateSong(ctx, aliceToken, song)
				assertKind(t, err, ExistingConflict)
				if store.Count("Create") != 0 {
					t.Errorf("owner %q: create must not reach the store", owner)
				}
			}
		})

		t.Run("wrong owner", func(t *testing.T) {
			store := tu.NewMemorySongStore()
			u := NewSongUsecase(store, newVerifier())

			_, err := u.CreateSong(ctx, aliceToken, newSong(bobID))
			assertKind(t, err, WrongOwner)
			if store.Total() != 0 {
				t.Errorf("expected no store calls, got %d", store.Total())
			}
		})

		t.Run("bad token", func(t *testing.T) {
			store := tu.NewMemorySongStore()
			u := NewSongUsecase(store, newVerifier())

			_, err := u.CreateSong(ctx, "garbage", newSong(aliceID))
			assertKind(t, err, VerificationFailed)
			if !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected the verifier cause to be wrapped, got %v", err)
			}
			if store.Total() != 0 {
				t.Errorf("expected no store calls, got %d", store.Total())
			}
		})

		t.Run("store failure", func(t *testing.T) {
			store := tu.NewMemorySongStore()
			store.Err["Create"] = errors.New("disk full")
			u := NewSongUsecase(store, newVerifier())

			_, err := u.CreateSong(ctx, aliceToken, newSong(aliceID))
			assertKind(t, err, DatastoreError)
		})

		t.Run("store conflict", func(t *testing.T) {
			store := tu.NewMemorySongStore()
			store.Err["Create"] = shared.ErrAlreadyExists
			u := NewSongUsecase(store, newVerifier())

			_, err := u.CreateSong(ctx, aliceToken, newSong(aliceID))
			assertKind(t, err, ExistingConflict)
		})
	})

	t.Run("UpdateSong", func(t *testing.T) {
		t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		t2 := t1.Add(time.Hour)

		t.Run("stale save is rejected without a write", func(t *testing.T) {
			song := storedSong(aliceID, at(t2))
			store := tu.NewMemorySongStore(song)
			u := NewSongUsecase(store, newVerifier(), WithClock(clock()))

			incoming := song
			incoming.LastSavedAt = at(t1)

			_, err := u.UpdateSong(ctx, aliceToken, song.ID, incoming)
			assertKind(t, err, OverwriteConflict)
			if store.Count("Update") != 0 {
				t.Error("conflicting update must not reach the store")
			}
		})

		t.Run("save based on latest or later is accepted", func(t *testing.T) {
			for _, basis := range []time.Time{t2, t2.Add(time.Minute)} {
				song := storedSong(aliceID, at(t2))
				store := tu.NewMemorySongStore(song)
				u := NewSongUsecase(store, newVerifier(), WithClock(clock()))

				incoming := song
				incoming.LastSavedAt = at(basis)
				incoming.Metadata = map[string]any{"title": "Edited"}

				updated, err := u.UpdateSong(ctx, aliceToken, song.ID, incoming)
				if err != nil {
					t.Fatalf("basis %v: unexpected error: %v", basis, err)
				}

				want := fixedNow.Truncate(time.Second)
				if !updated.LastSavedAt.Equal(want) {
					t.Errorf("expected lastSavedAt %v, got %v", want, updated.LastSavedAt)
				}

				stored, _ := store.Song(song.ID)
				if stored.Metadata["title"] != "Edited" {
					t.Errorf("expected stored update, got %v", stored.Metadata)
				}
			}
		})

		t.Run("stored song without lastSavedAt accepts any basis", func(t *testing.T) {
			song := storedSong(aliceID, nil)
			u := NewSongUsecase(tu.NewMemorySongStore(song), newVerifier())

			incoming := song
			incoming.LastSavedAt = at(t1)

			if _, err := u.UpdateSong(ctx, aliceToken, song.ID, incoming); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})

		t.Run("missing basis", func(t *testing.T) {
			song := storedSong(aliceID, nil)
			store := tu.NewMemorySongStore(song)
			u := NewSongUsecase(store, newVerifier())

			_, err := u.UpdateSong(ctx, aliceToken, song.ID, song)
			assertKind(t, err, OverwriteConflict)
			if store.Count("Update") != 0 {
				t.Error("update without a basis must not reach the store")
			}
		})

		t.Run("lastSavedAt never moves backwards", func(t *testing.T) {
			future := fixedNow.Add(24 * time.Hour).Truncate(time.Second)
			song := storedSong(aliceID, at(future))
			u := NewSongUsecase(tu.NewMemorySongStore(song), newVerifier(), WithClock(clock()))

			updated, err := u.UpdateSong(ctx, aliceToken, song.ID, song)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if updated.LastSavedAt.Before(future) {
				t.Errorf("expected lastSavedAt >= %v, got %v", future, updated.LastSavedAt)
			}
		})

		t.Run("empty path id", func(t *testing.T) {
			u := NewSongUsecase(tu.NewMemorySongStore(), newVerifier())

			_, err := u.UpdateSong(ctx, aliceToken, "", storedSong(aliceID, at(t1)))
			assertKind(t, err, NotFound)
		})

		t.Run("path id mismatch", func(t *testing.T) {
			song := storedSong(aliceID, at(t1))
			store := tu.NewMemorySongStore(song)
			u := NewSongUsecase(store, newVerifier())

			_, err := u.UpdateSong(ctx, aliceToken, shared.GenerateID(), song)
			assertKind(t, err, WrongId)
			if store.Total() != 0 {
				t.Errorf("expected no store calls, got %d", store.Total())
			}
		})

		t.Run("wrong owner in payload", func(t *testing.T) {
			song := storedSong(bobID, at(t1))
			store := tu.NewMemorySongStore(song)
			u := NewSongUsecase(store, newVerifier())

			_, err := u.UpdateSong(ctx, aliceToken, song.ID, song)
			assertKind(t, err, WrongOwner)
			if store.Count("Update") != 0 {
				t.Error("wrong owner must not reach the store")
			}
		})

		t.Run("payload claims a song owned by someone else", func(t *testing.T) {
			song := storedSong(bobID, at(t1))
			store := tu.NewMemorySongStore(song)
			u := NewSongUsecase(store, newVerifier())

			incoming := song
			incoming.Owner = aliceID

			_, err := u.UpdateSong(ctx, aliceToken, song.ID, incoming)
			assertKind(t, err, WrongOwner)
			if stored, _ := store.Song(song.ID); stored.Owner != bobID {
				t.Errorf("owner must be immutable, got %s", stored.Owner)
			}
		})

		t.Run("deleted song is not resurrected", func(t *testing.T) {
			u := NewSongUsecase(tu.NewMemorySongStore(), newVerifier())
			song := storedSong(aliceID, at(t1))

			_, err := u.UpdateSong(ctx, aliceToken, song.ID, song)
			assertKind(t, err, NotFound)
		})

		t.Run("bad token", func(t *testing.T) {
			song := storedSong(aliceID, at(t1))
			u := NewSongUsecase(tu.NewMemorySongStore(song), newVerifier())

			_, err := u.UpdateSong(ctx, "garbage", song.ID, song)
			assertKind(t, err, VerificationFailed)
		})

		t.Run("store failure", func(t *testing.T) {
			song := storedSong(aliceID, at(t1))
			store := tu.NewMemorySongStore(song)
			store.Err["Update"] = errors.New("disk full")
			u := NewSongUsecase(store, newVerifier())

			_, err := u.UpdateSong(ctx, aliceToken, song.ID, song)
			assertKind(t, err, DatastoreError)
		})
	})

	t.Run("DeleteSong", func(t *testing.T) {
		t.Run("owner deletes", func(t *testing.T) {
			song := storedSong(aliceID, nil)
			store := tu.NewMemorySongStore(song)
			u := NewSongUsecase(store, newVerifier())

			if err := u.DeleteSong(ctx, aliceToken, song.ID); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, ok := store.Song(song.ID); ok {
				t.Error("expected song to be deleted")
			}
		})

		t.Run("empty id", func(t *testing.T) {
			store := tu.NewMemorySongStore()
			u := NewSongUsecase(store, newVerifier())

			assertKind(t, u.DeleteSong(ctx, aliceToken, ""), NotFound)
			if store.Total() != 0 {
				t.Errorf("expected no store calls, got %d", store.Total())
			}
		})

		t.Run("missing", func(t *testing.T) {
			u := NewSongUsecase(tu.NewMemorySongStore(), newVerifier())
			assertKind(t, u.DeleteSong(ctx, aliceToken, shared.GenerateID()), NotFound)
		})

		t.Run("not the owner", func(t *testing.T) {
			song := storedSong(bobID, nil)
			store := tu.NewMemorySongStore(song)
			u := NewSongUsecase(store, newVerifier())

			assertKind(t, u.DeleteSong(ctx, aliceToken, song.ID), WrongOwner)
			if store.Count("Delete") != 0 {
				t.Error("delete by a non-owner must not reach the store")
			}
		})

		t.Run("bad token", func(t *testing.T) {
			song := storedSong(aliceID, nil)
			u := NewSongUsecase(tu.NewMemorySongStore(song), newVerifier())
			assertKind(t, u.DeleteSong(ctx, "garbage", song.ID), VerificationFailed)
		})

		t.Run("store failure", func(t *testing.T) {
			song := storedSong(aliceID, nil)
			store := tu.NewMemorySongStore(song)
			store.Err["Delete"] = errors.New("disk full")
			u := NewSongUsecase(store, newVerifier())

			assertKind(t, u.DeleteSong(ctx, aliceToken, song.ID), DatastoreError)
		})
	})
}

func TestError(t *testing.T) {
	t.Run("KindOf", func(t *testing.T) {
		if _, ok := KindOf(errors.New("plain")); ok {
			t.Error("plain errors have no kind")
		}

		wrapped := errors.Join(errors.New("context"), notFound("x"))
		if kind, ok := KindOf(wrapped); !ok || kind != NotFound {
			t.Errorf("expected NotFound through wrapping, got %v %v", kind, ok)
		}
	})

	t.Run("Unwrap", func(t *testing.T) {
		err := datastoreError(shared.ErrNotFound)
		if !errors.Is(err, shared.ErrNotFound) {
			t.Error("expected cause to be reachable")
		}
	})

	t.Run("Kind String", func(t *testing.T) {
		if OverwriteConflict.String() != "overwrite conflict" {
			t.Errorf("unexpected name %q", OverwriteConflict.String())
		}
		if Kind(99).String() != "kind(99)" {
			t.Errorf("unexpected name %q", Kind(99).String())
		}
	})
}
