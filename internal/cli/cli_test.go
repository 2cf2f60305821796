package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sant0-9/narrator/internal/config"
	"github.com/sant0-9/narrator/internal/llm"
	"github.com/sant0-9/narrator/internal/session"
)

const testKey = "AIzaSyTESTKEY123456"

type stubClient struct {
	text  string
	err   error
	calls atomic.Int32
}

func (c *stubClient) Name() string { return "stub" }

func (c *stubClient) Generate(ctx context.Context, req *llm.GenerateRequest) (string, error) {
	c.calls.Add(1)
	return c.text, c.err
}

func (c *stubClient) Ping(ctx context.Context, apiKey, model string) error { return c.err }

// isolate points HOME at an empty directory and clears key variables.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, name := range []string{"NARRATOR_API_KEY", "NARRATOR_MODEL", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func useClient(t *testing.T, c llm.Client) {
	t.Helper()
	prev := newClient
	newClient = func(*config.Config) (llm.Client, error) { return c, nil }
	t.Cleanup(func() { newClient = prev })
}

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, os.WriteFile(path, []byte("event,score\nspawn,1\nvictory,2\n"), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestNewVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("1.2.3")
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "narrator v1.2.3")
}

func TestStoryJSON(t *testing.T) {
	isolate(t)
	client := &stubClient{text: "```json\n" +
		`{"overview":"A short run.","metrics":[{"label":"Score","value":"3"}],"timeline":"### Start\n**spawn** then victory"}` +
		"\n```"}
	useClient(t, client)

	out, err := execute(t, "story", "--file", writeCSV(t), "--api-key", testKey, "--format", "json")
	require.NoError(t, err)

	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "displaying", v["state"])
	assert.Equal(t, "A short run.", v["overview"])
	assert.Equal(t, "<h3>Start</h3><strong>spawn</strong> then victory", v["timeline"])
	assert.EqualValues(t, 2, v["row_count"])
	assert.EqualValues(t, 1, client.calls.Load())
	assert.NotContains(t, out, testKey)
}

func TestStoryText(t *testing.T) {
	isolate(t)
	useClient(t, &stubClient{text: `{"overview":"A short run.","metrics":[{"label":"Score","value":"3"}],"timeline":"### Start\nspawn"}`})

	out, err := execute(t, "story", "--file", writeCSV(t), "--api-key", testKey, "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "OVERVIEW")
	assert.Contains(t, out, "A short run.")
	assert.Contains(t, out, "Score")
	assert.Contains(t, out, "Start")
	assert.NotContains(t, out, "###")
}

func TestStoryTextStripsTerminalEscapes(t *testing.T) {
	isolate(t)
	useClient(t, &stubClient{text: `{"overview":"\u001b]0;owned\u0007calm","metrics":[{"label":"\u001b[31mScore","value":"3\u0007"}],"timeline":"### \u001b[2JStart\nspawn"}`})

	out, err := execute(t, "story", "--file", writeCSV(t), "--api-key", testKey, "--format", "text")
	require.NoError(t, err)
	assert.NotContains(t, out, "\x1b")
	assert.NotContains(t, out, "\a")
	assert.Contains(t, out, "calm")
	assert.Contains(t, out, "Score")
	assert.Contains(t, out, "Start")
}

func TestStoryHTML(t *testing.T) {
	isolate(t)
	useClient(t, &stubClient{text: `{"overview":"<b>bold</b>","metrics":[],"timeline":"**win**"}`})

	out, err := execute(t, "story", "--file", writeCSV(t), "--api-key", testKey, "--format", "html")
	require.NoError(t, err)
	assert.Contains(t, out, "&lt;b&gt;bold&lt;/b&gt;")
	assert.Contains(t, out, "<strong>win</strong>")
}

func TestStoryFailureExitsNonZero(t *testing.T) {
	isolate(t)
	useClient(t, &stubClient{text: "not json at all"})

	out, err := execute(t, "story", "--file", writeCSV(t), "--api-key", testKey, "--format", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "narrative generation failed")
	assert.Contains(t, out, `"kind": "parse"`)
	assert.Contains(t, out, "not json at all")
}

func TestStoryWithoutKeyNeverCallsClient(t *testing.T) {
	isolate(t)
	client := &stubClient{text: "{}"}
	useClient(t, client)

	_, err := execute(t, "story", "--file", writeCSV(t), "--format", "json")
	var cfgErr *session.ConfigError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Zero(t, client.calls.Load())
}

func TestStoryWithoutSource(t *testing.T) {
	isolate(t)
	useClient(t, &stubClient{})

	_, err := execute(t, "story", "--api-key", testKey)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--query")
}

func TestPreviewPayload(t *testing.T) {
	isolate(t)

	out, err := execute(t, "preview", "--file", writeCSV(t), "--payload")
	require.NoError(t, err)
	assert.Equal(t, "Event, Score\nspawn, 1\nvictory, 2\n", out)
}

func TestPreviewTable(t *testing.T) {
	isolate(t)

	out, err := execute(t, "preview", "--file", writeCSV(t), "--max-rows", "1", "--limit", "1")
	require.NoError(t, err)
	out = strings.ToLower(out)
	assert.Contains(t, out, "event")
	assert.Contains(t, out, "spawn")
	assert.Contains(t, out, "1 more rows")
	assert.Contains(t, out, "2 loaded, 1 sent")
	assert.Contains(t, out, "truncated")
}

func TestConfigShowMasksKey(t *testing.T) {
	isolate(t)

	out, err := execute(t, "config", "show", "--api-key", testKey)
	require.NoError(t, err)
	assert.NotContains(t, out, testKey)
	assert.Contains(t, out, "AIza****3456")
	assert.Contains(t, out, "model: "+config.DefaultModel)
}

func TestConfigInit(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "narrator.yaml")

	out, err := execute(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.True(t, config.Exists(path))

	_, err = execute(t, "config", "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, err = execute(t, "config", "init", "--config", path, "--force")
	require.NoError(t, err)
}

func TestConfigFileIsRead(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "narrator.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: gemini-2.5-flash\nmax_rows: 7\n"), 0o600))

	out, err := execute(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "# "+path)
	assert.Contains(t, out, "model: gemini-2.5-flash")
	assert.Contains(t, out, "max_rows: 7")
}

func TestDoctorOffline(t *testing.T) {
	isolate(t)

	out, err := execute(t, "doctor", "--offline", "--file", writeCSV(t), "--api-key", testKey)
	require.NoError(t, err)
	assert.Contains(t, out, "Data source")
	assert.Contains(t, out, "2 rows from events.csv")
	assert.NotContains(t, out, testKey)
}

func TestDoctorReportsMissingKey(t *testing.T) {
	isolate(t)

	out, err := execute(t, "doctor", "--file", writeCSV(t), "--format", "json")
	require.ErrorIs(t, err, errChecksFailed)

	var checks []Check
	require.NoError(t, json.Unmarshal([]byte(out), &checks))
	byName := map[string]Check{}
	for _, c := range checks {
		byName[c.Name] = c
	}
	assert.Equal(t, statusFail, byName["API key"].Status)
	assert.Equal(t, statusPass, byName["Data source"].Status)
	assert.Equal(t, statusWarn, byName["Model endpoint"].Status)
}

func TestDoctorPingFailureIsRedacted(t *testing.T) {
	isolate(t)
	useClient(t, &stubClient{err: errors.New("bad key " + testKey)})

	out, err := execute(t, "doctor", "--file", writeCSV(t), "--api-key", testKey)
	require.ErrorIs(t, err, errChecksFailed)
	assert.NotContains(t, out, testKey)
	assert.Contains(t, out, "[redacted]")
}

func TestPersonasMarksSelection(t *testing.T) {
	isolate(t)

	out, err := execute(t, "personas", "--persona", "storyteller")
	require.NoError(t, err)
	assert.Contains(t, out, "chronarch")
	assert.Contains(t, out, "built-in")

	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "storyteller") {
			assert.Contains(t, line, "*")
		}
		if strings.Contains(line, "chronarch") {
			assert.NotContains(t, line, "*")
		}
	}
}

func TestSourceLabel(t *testing.T) {
	assert.Equal(t, "events.csv", sourceLabel(config.SourceConfig{Driver: "csv", File: "/tmp/data/events.csv"}))
	assert.Equal(t, "sqlite: SELECT * FROM events", sourceLabel(config.SourceConfig{Query: "SELECT *\n  FROM events"}))

	long := sourceLabel(config.SourceConfig{Driver: "duckdb", Query: strings.Repeat("x", 80)})
	assert.True(t, strings.HasSuffix(long, "..."))
	assert.Len(t, long, len("duckdb: ")+48)
}

func TestResolveFormat(t *testing.T) {
	assert.Equal(t, formatJSON, resolveFormat("auto", new(bytes.Buffer)))
	assert.Equal(t, formatJSON, resolveFormat("", new(bytes.Buffer)))
	assert.Equal(t, formatHTML, resolveFormat("HTML", new(bytes.Buffer)))
}
