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
	"time"

	"github.com/urfave/cli/v3"

	"idmigrate/internal/faillog"
	"idmigrate/internal/migrate"
	"idmigrate/internal/records"
	"idmigrate/internal/remote"
	"idmigrate/internal/shared"
	tu "idmigrate/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			gateway := &tu.MockGateway{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Gateway:    gateway,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.gateway != gateway {
				t.Error("expected gateway to be set")
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
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, true)
			if err != nil {
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

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
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
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) == 0 {
			t.Error("expected at least one command to be registered")
		}

		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
			}
		}
	})
}

// testConfig returns a config pointed at temp paths with a usable credential.
func testConfig(t *testing.T, baseURL string) *shared.Config {
	t.Helper()

	tmpDir := t.TempDir()
	config := shared.DefaultConfig()
	config.Remote.BaseURL = baseURL
	config.Remote.Token = "tok_abc"
	config.Migration.DelayMS = 0
	config.Migration.CooldownMS = 0
	config.Database.Path = filepath.Join(tmpDir, "idmigrate.db")
	config.Logs.Dir = tmpDir
	return config
}

func TestImportUsers(t *testing.T) {
	t.Run("imports records and prints the summary", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"user": {"id": 1}}`))
		}))
		defer server.Close()

		config := testConfig(t, server.URL)
		exportPath := filepath.Join(t.TempDir(), "users.json")
		tu.MustWriteFile(t, exportPath, `[
			{"externalId": "u-1", "email": "one@example.com"},
			{"externalId": "u-2", "email": "two@example.com"}
		]`)

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config:  config,
			Gateway: remote.NewClient(server.URL, config.Remote.Token, nil),
			Logger:  shared.NewLogger(&bytes.Buffer{}),
			Output:  output,
		})

		app := &cli.Command{Commands: runner.register()}
		if err := app.Run(context.Background(), []string{"idmigrate", "users", exportPath}); err != nil {
			t.Fatalf("command failed: %v", err)
		}

		summary := output.String()
		if !strings.Contains(summary, "2 users migrated") {
			t.Errorf("expected migrated summary line, got %q", summary)
		}
		if !strings.Contains(summary, "0 users failed to upload") {
			t.Errorf("expected failed-to-upload summary line, got %q", summary)
		}
	})

	t.Run("conflicts are counted and logged", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"error": "DuplicateValue"}`))
		}))
		defer server.Close()

		config := testConfig(t, server.URL)
		exportPath := filepath.Join(t.TempDir(), "users.json")
		tu.MustWriteFile(t, exportPath, `[{"externalId": "u-1", "email": "one@example.com"}]`)

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config:  config,
			Gateway: remote.NewClient(server.URL, config.Remote.Token, nil),
			Logger:  shared.NewLogger(&bytes.Buffer{}),
			Output:  output,
		})

		app := &cli.Command{Commands: runner.register()}
		if err := app.Run(context.Background(), []string{"idmigrate", "users", exportPath}); err != nil {
			t.Fatalf("command failed: %v", err)
		}

		if !strings.Contains(output.String(), "1 users failed to upload") {
			t.Errorf("expected conflict in summary, got %q", output.String())
		}

		entries, err := filepath.Glob(filepath.Join(config.Logs.Dir, "failures_user_*.log"))
		if err != nil || len(entries) != 1 {
			t.Fatalf("expected one failure log, got %v (err %v)", entries, err)
		}
		if !strings.Contains(tu.MustReadFile(t, entries[0]), `"reason":"conflict"`) {
			t.Error("expected conflict entry in failure log")
		}
	})

	t.Run("missing token aborts before reading records", func(t *testing.T) {
		config := testConfig(t, "https://identity.example.com")
		config.Remote.Token = ""

		runner := NewRunner(RunnerOpts{
			Config:  config,
			Gateway: &tu.MockGateway{},
			Logger:  shared.NewLogger(&bytes.Buffer{}),
			Output:  &bytes.Buffer{},
		})

		app := &cli.Command{Commands: runner.register()}
		err := app.Run(context.Background(), []string{"idmigrate", "users", "does-not-exist.json"})
		if err == nil {
			t.Fatal("expected error for missing token")
		}
		if !strings.Contains(err.Error(), "IDMIGRATE_API_TOKEN") {
			t.Errorf("expected token error, got %v", err)
		}
	})

	t.Run("sandbox target is refused without opt-in", func(t *testing.T) {
		config := testConfig(t, "https://sandbox.identity.example.com")

		runner := NewRunner(RunnerOpts{
			Config:  config,
			Gateway: &tu.MockGateway{},
			Logger:  shared.NewLogger(&bytes.Buffer{}),
			Output:  &bytes.Buffer{},
		})

		app := &cli.Command{Commands: runner.register()}
		err := app.Run(context.Background(), []string{"idmigrate", "users", "does-not-exist.json"})
		if err == nil {
			t.Fatal("expected error for sandbox target")
		}
	})

	t.Run("records the run in history", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"user": {"id": 1}}`))
		}))
		defer server.Close()

		config := testConfig(t, server.URL)
		exportPath := filepath.Join(t.TempDir(), "users.json")
		tu.MustWriteFile(t, exportPath, `[{"externalId": "u-1", "email": "one@example.com"}]`)

		runner := NewRunner(RunnerOpts{
			Config:  config,
			Gateway: remote.NewClient(server.URL, config.Remote.Token, nil),
			Logger:  shared.NewLogger(&bytes.Buffer{}),
			Output:  &bytes.Buffer{},
		})

		app := &cli.Command{Commands: runner.register()}
		if err := app.Run(context.Background(), []string{"idmigrate", "users", exportPath}); err != nil {
			t.Fatalf("command failed: %v", err)
		}

		tu.AssertFileExists(t, config.Database.Path)

		output := &bytes.Buffer{}
		runner.output = output
		app = &cli.Command{Commands: runner.register()}
		if err := app.Run(context.Background(), []string{"idmigrate", "runs", "list"}); err != nil {
			t.Fatalf("runs list failed: %v", err)
		}
		if !strings.Contains(output.String(), "users.json") {
			t.Errorf("expected run history to mention source file, got %q", output.String())
		}
	})

	t.Run("unavailable run history does not fail the run", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"user": {"id": 1}}`))
		}))
		defer server.Close()

		config := testConfig(t, server.URL)
		config.Database.Path = "/nonexistent/dir/idmigrate.db"
		exportPath := filepath.Join(t.TempDir(), "users.json")
		tu.MustWriteFile(t, exportPath, `[{"externalId": "u-1", "email": "one@example.com"}]`)

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config:  config,
			Gateway: remote.NewClient(server.URL, config.Remote.Token, nil),
			Logger:  shared.NewLogger(&bytes.Buffer{}),
			Output:  output,
		})

		app := &cli.Command{Commands: runner.register()}
		if err := app.Run(context.Background(), []string{"idmigrate", "users", exportPath}); err != nil {
			t.Fatalf("expected run to succeed despite history failure, got %v", err)
		}
		if !strings.Contains(output.String(), "1 users migrated") {
			t.Errorf("expected summary, got %q", output.String())
		}
	})

	t.Run("offset flag skips records", func(t *testing.T) {
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"user": {"id": 1}}`))
		}))
		defer server.Close()

		config := testConfig(t, server.URL)
		exportPath := filepath.Join(t.TempDir(), "users.json")
		tu.MustWriteFile(t, exportPath, `[
			{"externalId": "u-1", "email": "one@example.com"},
			{"externalId": "u-2", "email": "two@example.com"},
			{"externalId": "u-3", "email": "three@example.com"}
		]`)

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config:  config,
			Gateway: remote.NewClient(server.URL, config.Remote.Token, nil),
			Logger:  shared.NewLogger(&bytes.Buffer{}),
			Output:  output,
		})

		app := &cli.Command{Commands: runner.register()}
		if err := app.Run(context.Background(), []string{"idmigrate", "users", exportPath, "--offset", "2"}); err != nil {
			t.Fatalf("command failed: %v", err)
		}

		if calls != 1 {
			t.Errorf("expected 1 create call after offset, got %d", calls)
		}
		if !strings.Contains(output.String(), "1 users migrated") {
			t.Errorf("expected 1 migrated, got %q", output.String())
		}
	})
}

func TestRunWithTUI(t *testing.T) {
	t.Run("cancelled run still yields the partial result", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		config := testConfig(t, "https://identity.example.com")
		runner := NewRunner(RunnerOpts{
			Config:  config,
			Gateway: &tu.MockGateway{},
			Logger:  shared.NewLogger(&bytes.Buffer{}),
			Output:  &bytes.Buffer{},
		})

		sink := faillog.NewSink(t.TempDir(), "user", time.Now(), "a1b2c3d4")
		defer sink.Close()
		engine := migrate.NewEngine(runner.gateway, sink, runner.logger, 0, 0)

		raws := []records.Raw{{"externalId": "u-1", "email": "one@example.com"}}
		result, err := runner.runWithTUI(ctx, engine, records.KindUser, raws)

		if result == nil {
			t.Fatal("expected partial result after cancellation, got nil")
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if result.Processed() != 0 {
			t.Errorf("expected no records processed, got %+v", result)
		}
	})
}

func TestSetupDatabase(t *testing.T) {
	t.Run("creates config and database", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")
		dbPath := filepath.Join(tmpDir, "idmigrate.db")

		tu.MustWriteFile(t, configPath, "[database]\npath = \""+dbPath+"\"\n")

		runner := NewRunner(RunnerOpts{
			Logger: shared.NewLogger(&bytes.Buffer{}),
			Output: &bytes.Buffer{},
		})

		app := &cli.Command{Commands: runner.register()}
		if err := app.Run(context.Background(), []string{"idmigrate", "setup", "database", "--config", configPath}); err != nil {
			t.Fatalf("setup failed: %v", err)
		}

		tu.AssertFileExists(t, dbPath)
	})
}
