package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/chordpaper/internal/models"
	"github.com/desertthunder/chordpaper/internal/repositories"
	"github.com/desertthunder/chordpaper/internal/services"
	"github.com/desertthunder/chordpaper/internal/shared"
	tu "github.com/desertthunder/chordpaper/internal/testing"
)

func testConfig(t *testing.T) *shared.Config {
	t.Helper()
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "chordpaper.db")
	config.Queue.URL = ""

	certs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"keys":[]}`))
	}))
	t.Cleanup(certs.Close)
	config.Google.CertsURL = certs.URL

	return config
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				DotEnv:     []string{"test.env"},
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if len(runner.dotEnv) != 1 || runner.dotEnv[0] != "test.env" {
				t.Errorf("expected dotEnv to be set, got %v", runner.dotEnv)
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			if runner := NewRunner(RunnerOpts{}); runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			if runner := NewRunner(RunnerOpts{}); runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			if runner := NewRunner(RunnerOpts{}); runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with nil dotEnv reads .env", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if len(runner.dotEnv) != 1 || runner.dotEnv[0] != ".env" {
				t.Errorf("expected .env, got %v", runner.dotEnv)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		commands := NewRunner(RunnerOpts{}).register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}

		for _, want := range []string{"serve", "setup", "auth", "jobs", "songs"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("reads file and environment", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		if err := os.WriteFile(path, []byte("[server]\nport = 6001\n\n[log]\nlevel = \"debug\"\n"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		t.Setenv("CHORDPAPER_QUEUE_NAME", "stems")

		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, DotEnv: []string{filepath.Join(dir, "missing.env")}})
		cmd := setupCommand(runner)

		var port int
		var queue string
		cmd.Commands[0].Action = func(ctx context.Context, c *cli.Command) error {
			config, err := runner.loadConfig(c)
			if err != nil {
				return err
			}
			port, queue = config.Server.Port, config.Queue.Name
			return nil
		}

		if err := cmd.Run(context.Background(), []string{"setup", "database", "--config", path}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if port != 6001 {
			t.Errorf("expected port from file, got %d", port)
		}
		if queue != "stems" {
			t.Errorf("expected queue from environment, got %s", queue)
		}
	})

	t.Run("preset config wins", func(t *testing.T) {
		config := testConfig(t)
		runner := NewRunner(RunnerOpts{Config: config})

		got, err := runner.loadConfig(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != config {
			t.Error("expected preset config to be returned")
		}
	})
}

func TestNewPublisher(t *testing.T) {
	runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

	publisher, closePublisher, err := runner.newPublisher(testConfig(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := publisher.(*services.LogPublisher); !ok {
		t.Errorf("expected a log publisher without queue.url, got %T", publisher)
	}
	if err := closePublisher(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}

func TestBuildAPI(t *testing.T) {
	config := testConfig(t)
	runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}})

	db, err := runner.openDatabase(config, true)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	handler, err := runner.buildAPI(t.Context(), config, db, services.NewLogPublisher(nil), nil)
	if err != nil {
		t.Fatalf("failed to build API: %v", err)
	}

	tc := []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/health-check", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/songs/not-a-uuid", http.StatusNotFound},
		{http.MethodGet, "/songs/6b1c7c1e-5a5e-4d8e-9f43-6f1f76f0b0a2/tracklist", http.StatusOK},
		{http.MethodPost, "/login", http.StatusUnauthorized},
	}

	for _, tt := range tc {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSetupCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("config", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := setupCommand(runner).Run(ctx, []string{"setup", "config", "--output", path}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, path)

		if err := setupCommand(runner).Run(ctx, []string{"setup", "config", "--output", path}); err == nil {
			t.Error("expected an existing config file to be kept")
		}
	})

	t.Run("database, status and rollback", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: testConfig(t), Output: output})

		if err := setupCommand(runner).Run(ctx, []string{"setup", "database"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output.Reset()
		if err := setupCommand(runner).Run(ctx, []string{"setup", "status"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "0001") {
			t.Errorf("expected migration 0001 to be listed, got %q", output.String())
		}

		if err := setupCommand(runner).Run(ctx, []string{"setup", "rollback"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output.Reset()
		if err := setupCommand(runner).Run(ctx, []string{"setup", "status"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "No migrations applied") {
			t.Errorf("expected no migrations after rollback, got %q", output.String())
		}
	})
}

func TestJobsSend(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes to the log publisher", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: testConfig(t), Output: output})
		tracklist, track := shared.GenerateID(), shared.GenerateID()

		err := jobsCommand(runner).Run(ctx, []string{"jobs", "send", "--tracklist", tracklist, "--track", track})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), track) {
			t.Errorf("expected confirmation for %s, got %q", track, output.String())
		}
	})

	t.Run("rejects malformed ids", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Config: testConfig(t), Output: &bytes.Buffer{}})

		err := jobsCommand(runner).Run(ctx, []string{"jobs", "send", "--tracklist", "abc", "--track", shared.GenerateID()})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestAuthCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("google requires client credentials", func(t *testing.T) {
		config := testConfig(t)
		config.Google.ClientSecret = ""
		runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}})

		err := authCommand(runner).Run(ctx, []string{"auth", "google"})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("verify rejects malformed tokens", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("no network in tests"))}
		runner := NewRunner(RunnerOpts{Config: testConfig(t), Output: &bytes.Buffer{}, HTTPClient: client})

		err := authCommand(runner).Run(ctx, []string{"auth", "verify", "--token", "not-a-jwt"})
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})
}

func TestSongsExport(t *testing.T) {
	ctx := context.Background()
	config := testConfig(t)
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Config: config, Output: output})

	db, err := runner.openDatabase(config, true)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	song := models.Song{SongSummary: models.SongSummary{
		ID:       shared.GenerateID(),
		Owner:    "alice",
		Metadata: map[string]any{"title": "Wonderwall", "performedBy": "Oasis"},
	}}
	if err := repositories.NewSongRepository(db).Create(ctx, song); err != nil {
		t.Fatalf("failed to create song: %v", err)
	}
	tracklist := models.TrackList{SongID: song.ID, Tracks: []models.Track{{ID: shared.GenerateID(), TrackType: "4stems"}}}
	if err := repositories.NewTrackListRepository(db).Put(ctx, tracklist); err != nil {
		t.Fatalf("failed to store tracklist: %v", err)
	}

	t.Run("text to stdout", func(t *testing.T) {
		output.Reset()
		err := songsCommand(runner).Run(ctx, []string{"songs", "export", "--owner", "alice", "--format", "text"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := output.String(); got != "1. Wonderwall - Oasis (1 tracks)\n" {
			t.Errorf("unexpected export %q", got)
		}
	})

	t.Run("json", func(t *testing.T) {
		output.Reset()
		err := songsCommand(runner).Run(ctx, []string{"songs", "export", "--owner", "alice", "--format", "json"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), `"track_type": "4stems"`) {
			t.Errorf("expected tracks in JSON export, got %s", output.String())
		}
	})

	t.Run("csv to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "alice.csv")
		err := songsCommand(runner).Run(ctx, []string{"songs", "export", "--owner", "alice", "-o", path})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if content := tu.MustReadFile(t, path); !strings.Contains(content, song.ID) {
			t.Errorf("expected song in CSV, got %q", content)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		err := songsCommand(runner).Run(ctx, []string{"songs", "export", "--owner", "alice", "--format", "xlsx"})
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
