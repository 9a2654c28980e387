package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/soyeahso/honeypot/internal/archive"
	"github.com/soyeahso/honeypot/internal/config"
	"github.com/soyeahso/honeypot/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command against a scratch HONEYPOT_HOME.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "silent"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func scratchHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HONEYPOT_HOME", home)
	return home
}

func TestVersionCommand(t *testing.T) {
	scratchHome(t)
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "honeypot "), out)
}

func TestConfigCommands(t *testing.T) {
	home := scratchHome(t)

	out, err := runCLI(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "config.yaml")+"\n", out)

	out, err = runCLI(t, "config", "set", "server.apiKey", "secret1234")
	require.NoError(t, err)
	assert.Equal(t, "Set server.apiKey = ****1234\n", out)

	out, err = runCLI(t, "config", "get", "server.apiKey")
	require.NoError(t, err)
	assert.Equal(t, "****1234\n", out)

	out, err = runCLI(t, "config", "get", "--reveal", "server.apiKey")
	require.NoError(t, err)
	assert.Equal(t, "secret1234\n", out)

	_, err = runCLI(t, "config", "set", "engagement.maxTurns", "5")
	require.NoError(t, err)
	out, err = runCLI(t, "config", "get", "engagement")
	require.NoError(t, err)
	assert.Contains(t, out, "maxTurns: 5")

	_, err = runCLI(t, "config", "unset", "engagement.maxTurns")
	require.NoError(t, err)
	_, err = runCLI(t, "config", "get", "engagement.maxTurns")
	assert.Error(t, err)

	_, err = runCLI(t, "config", "unset", "nothing.here")
	assert.Error(t, err)

	_, err = runCLI(t, "config", "get", "server.__proto__")
	assert.Error(t, err)
}

func TestConfigValidateCommand(t *testing.T) {
	scratchHome(t)
	t.Setenv("HONEYPOT_GENERATOR_API_KEY", "")

	out, err := runCLI(t, "config", "validate")
	require.Error(t, err)
	assert.Contains(t, out, "generator.apiKey")

	_, err = runCLI(t, "config", "set", "generator.provider", "mock")
	require.NoError(t, err)
	out, err = runCLI(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, ": ok")
}

func TestStatusCommand(t *testing.T) {
	scratchHome(t)
	out, err := runCLI(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Server:    port=8080 bind=loopback")
	assert.Contains(t, out, "Generator: openai model=")
	assert.Contains(t, out, "Reports:   archive=sqlite")
}

func TestWriteStatusListsSinksAndIssues(t *testing.T) {
	log = logging.New(io.Discard, "silent")
	c := config.Defaults()
	c.Server.APIKey = "k"
	c.Generator.Fallbacks = []string{"mock"}
	c.Callback.URL = "https://partner.example/cb"
	c.Events.NATSURL = "nats://localhost:4222"
	c.Archive.Driver = "none"

	var buf bytes.Buffer
	writeStatus(&buf, config.Paths{Config: "/tmp/c.yaml"}, c)
	out := buf.String()
	assert.Contains(t, out, "auth=api-key")
	assert.Contains(t, out, "openai -> mock")
	assert.Contains(t, out, "callback=https://partner.example/cb nats=honeypot.engagement.ended")
	assert.NotContains(t, out, "archive=")
	assert.Contains(t, out, "generator.apiKey")
}

func TestMaskValue(t *testing.T) {
	tests := []struct {
		in   any
		want any
	}{
		{"abcdefgh", "****efgh"},
		{"abc", "****"},
		{"", ""},
		{"${HONEYPOT_KEY}", "${HONEYPOT_KEY}"},
		{42, 42},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, maskValue(tt.in))
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"FALSE", false},
		{"8", 8},
		{"0.5", 0.5},
		{"loopback", "loopback"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseValue(tt.in))
		})
	}
}

func TestLoadTranscript(t *testing.T) {
	dir := t.TempDir()

	t.Run("generates a session id", func(t *testing.T) {
		path := filepath.Join(dir, "a.yaml")
		require.NoError(t, os.WriteFile(path, []byte("messages:\n  - hello\n  - send money\n"), 0o600))
		tr, err := loadTranscript(path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(tr.SessionID, "sim-"))
		assert.Equal(t, []string{"hello", "send money"}, tr.Messages)
	})

	t.Run("keeps an explicit id", func(t *testing.T) {
		path := filepath.Join(dir, "b.yaml")
		require.NoError(t, os.WriteFile(path, []byte("sessionId: fixed\nmessages: [hi]\n"), 0o600))
		tr, err := loadTranscript(path)
		require.NoError(t, err)
		assert.Equal(t, "fixed", tr.SessionID)
	})

	t.Run("rejects an empty script", func(t *testing.T) {
		path := filepath.Join(dir, "c.yaml")
		require.NoError(t, os.WriteFile(path, []byte("sessionId: x\n"), 0o600))
		_, err := loadTranscript(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadTranscript(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}

func offlineConfig() config.Config {
	c := config.Defaults()
	c.Generator.Provider = "mock"
	c.Governor.MinIntervalMs = 0
	c.Governor.SafetyMarginMs = 0
	c.Engagement.MaxTurns = 2
	c.Engagement.MinTurns = 1
	return c
}

func TestRunTranscriptStopsAtVerdict(t *testing.T) {
	log = logging.New(io.Discard, "silent")
	st, err := newStack(context.Background(), offlineConfig(), stackOptions{}, log)
	require.NoError(t, err)
	defer st.Close(context.Background())
	assert.Empty(t, st.dispatcher.Sinks())

	tr := transcript{
		SessionID: "run-1",
		Messages: []string{
			"Your account will be blocked today. Verify KYC immediately.",
			"Send Rs 5000 to refund.desk@paytm now",
			"this message is never sent",
		},
	}
	var buf bytes.Buffer
	require.NoError(t, runTranscript(context.Background(), &buf, st.engine, tr, false))

	out := buf.String()
	assert.Contains(t, out, "[1] scammer: Your account will be blocked")
	assert.Contains(t, out, "[2] agent: ")
	assert.NotContains(t, out, "never sent")
	assert.Contains(t, out, "session run-1: 2 turns")
	assert.Contains(t, out, "exit max_turns")
	assert.Contains(t, out, "refund.desk@paytm")

	snap, ok := st.engine.Snapshot("run-1")
	require.True(t, ok)
	assert.Equal(t, 2, snap.TurnCount)
}

func TestRunTranscriptJSON(t *testing.T) {
	log = logging.New(io.Discard, "silent")
	st, err := newStack(context.Background(), offlineConfig(), stackOptions{}, log)
	require.NoError(t, err)
	defer st.Close(context.Background())

	var buf bytes.Buffer
	tr := transcript{SessionID: "run-json", Messages: []string{"hello", "call me on 9876543210"}}
	require.NoError(t, runTranscript(context.Background(), &buf, st.engine, tr, true))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"sessionId":"run-json"`)
	assert.Contains(t, lines[1], `"decision":"END"`)
}

func TestStackArchivesEndedEngagements(t *testing.T) {
	log = logging.New(io.Discard, "silent")
	dbPath := filepath.Join(t.TempDir(), "data", "honeypot.db")
	st, err := newStack(context.Background(), offlineConfig(), stackOptions{ArchivePath: dbPath}, log)
	require.NoError(t, err)
	assert.Equal(t, []string{"archive"}, st.dispatcher.Sinks())

	tr := transcript{SessionID: "arch-1", Messages: []string{"pay the fine", "account 123456789012 at SBI"}}
	require.NoError(t, runTranscript(context.Background(), io.Discard, st.engine, tr, false))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, st.Close(ctx))

	store, err := archive.OpenSQLite(dbPath, log)
	require.NoError(t, err)
	defer store.Close()
	rec, err := store.Get(context.Background(), "arch-1")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.TurnCount)
	assert.Contains(t, rec.ExitReason, "maximum turns reached")
}

func TestSimulateAndArchiveCommands(t *testing.T) {
	home := scratchHome(t)
	script := filepath.Join(home, "script.yaml")
	require.NoError(t, os.WriteFile(script, []byte(
		"sessionId: sim-cli\nmessages:\n  - urgent KYC update needed\n  - pay to helpdesk@ybl\n"), 0o600))

	_, err := runCLI(t, "config", "set", "engagement.maxTurns", "2")
	require.NoError(t, err)
	_, err = runCLI(t, "config", "set", "engagement.minTurns", "1")
	require.NoError(t, err)

	out, err := runCLI(t, "simulate", "--offline", "--archive", script)
	require.NoError(t, err)
	assert.Contains(t, out, "session sim-cli: 2 turns")

	out, err = runCLI(t, "archive", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "SESSION")
	assert.Contains(t, out, "sim-cli")

	out, err = runCLI(t, "archive", "show", "sim-cli")
	require.NoError(t, err)
	assert.Contains(t, out, `"sessionId": "sim-cli"`)

	out, err = runCLI(t, "archive", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, `"total": 1`)

	_, err = runCLI(t, "archive", "show", "missing")
	assert.ErrorContains(t, err, "no archived engagement")
}

func TestArchiveDisabled(t *testing.T) {
	scratchHome(t)
	_, err := runCLI(t, "config", "set", "archive.driver", "none")
	require.NoError(t, err)
	_, err = runCLI(t, "archive", "list")
	assert.ErrorContains(t, err, "archive is disabled")
}

func TestWriteRecordsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRecords(&buf, nil))
	assert.Equal(t, "no archived engagements\n", buf.String())
}
