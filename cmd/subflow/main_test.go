package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/ZaguanLabs/subflow"
)

const testTrack = "[Script Info]\n" +
	"Title: Test\n" +
	"\n" +
	"[Events]\n" +
	"Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n" +
	"Dialogue: 0,0:00:01.00,0:00:02.00,Default,,0,0,0,,Hello there, how\n" +
	"Dialogue: 0,0:00:02.00,0:00:03.00,Default,,0,0,0,,are you today.\n" +
	"Comment: 0,0:00:03.00,0:00:04.00,Default,,0,0,0,,note\n" +
	"Dialogue: 0,0:00:04.00,0:00:05.00,Default,,0,0,0,,I am fine, thank you.\n"

var testTranslations = map[string]string{
	"Hello there, how are you today.": "やあ、今日は元気ですか。",
	"I am fine, thank you.":           "元気です、ありがとう。",
}

// fakeOpenAI answers chat completions by looking sentences up in
// testTranslations. With fail set it returns 500 for every call.
type fakeOpenAI struct {
	fail  atomic.Bool
	calls atomic.Int32
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	if f.fail.Load() {
		http.Error(w, `{"error":{"message":"boom","type":"server_error"}}`, http.StatusInternalServerError)
		return
	}

	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	user := req.Messages[len(req.Messages)-1].Content

	var texts []string
	if err := json.Unmarshal([]byte(user), &texts); err != nil {
		var wrapped struct {
			Items []struct {
				Text string `json:"text"`
			} `json:"items"`
		}
		_ = json.Unmarshal([]byte(user), &wrapped)
		for _, it := range wrapped.Items {
			texts = append(texts, it.Text)
		}
	}

	out := make([]string, len(texts))
	for i, t := range texts {
		if tr, ok := testTranslations[t]; ok {
			out[i] = tr
		} else {
			out[i] = "訳:" + t
		}
	}
	content, _ := json.Marshal(map[string][]string{"translations": out})

	resp := openai.ChatCompletionResponse{
		ID:     "test",
		Object: "chat.completion",
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: string(content)},
		}},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type testEnv struct {
	dir     string
	config  string
	baseURL string
	server  *fakeOpenAI
}

func newTestEnv(t *testing.T, backend string) *testEnv {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")

	fake := &fakeOpenAI{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := `[translation]
target_lang = "ja_JP"

[retry]
max_retries = 0

[rate_limit]
enabled = false

[cache]
backend = "` + backend + `"
sqlite_path = "` + filepath.Join(dir, "cache", "translations.db") + `"

[logging]
level = "error"
format = "json"
`
	path := filepath.Join(dir, "subflow.toml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &testEnv{dir: dir, config: path, baseURL: srv.URL + "/v1", server: fake}
}

func (e *testEnv) file(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func (e *testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config", e.config, "--api-key", "test", "--base-url", e.baseURL}, args...)
	err := run(full, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run([]string{"version"}, &stdout, &stderr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stdout.String(), "subflow "+subflow.Version) {
		t.Errorf("expected version output, got: %s", stdout.String())
	}
}

func TestRun_Extract(t *testing.T) {
	env := newTestEnv(t, "none")
	track := env.file(t, "episode.ass", testTrack)
	out := filepath.Join(env.dir, "lines.txt")

	_, stderr, err := env.run(t, "extract", track, "-o", out)
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	want := "Hello there, how\nare you today.\nI am fine, thank you.\n"
	if got := readFile(t, out); got != want {
		t.Errorf("unexpected lines:\n%s", got)
	}
	if !strings.Contains(stderr, "Extracted 3 dialogue lines") {
		t.Errorf("expected summary, got: %s", stderr)
	}
}

func TestRun_MergeToStdout(t *testing.T) {
	env := newTestEnv(t, "none")
	lines := env.file(t, "lines.txt", "Hello there, how\nare you today.\nI am fine, thank you.\n")

	stdout, _, err := env.run(t, "-q", "merge", lines)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	var records []subflow.SentenceRecord
	if err := json.Unmarshal([]byte(stdout), &records); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 sentences, got %+v", records)
	}
	if records[0].StartLine != 1 || records[0].EndLine != 2 || records[0].Text != "Hello there, how are you today." {
		t.Errorf("unexpected first record %+v", records[0])
	}
	if records[1].StartLine != 3 || records[1].EndLine != 3 {
		t.Errorf("unexpected second record %+v", records[1])
	}
}

func TestRun_TranslateAndInject(t *testing.T) {
	env := newTestEnv(t, "memory")
	sentences := env.file(t, "sentences.json", `[
  {"start_line": 1, "end_line": 2, "text": "Hello there, how are you today."},
  {"start_line": 3, "end_line": 3, "text": "I am fine, thank you."}
]`)
	translated := filepath.Join(env.dir, "translated.json")

	if _, _, err := env.run(t, "-q", "translate", sentences, "-o", translated); err != nil {
		t.Fatalf("translate failed: %v", err)
	}

	var records []subflow.TranslatedRecord
	if err := json.Unmarshal([]byte(readFile(t, translated)), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if got := records[0].Lines; len(got) != 2 || got[0] != "やあ、" || got[1] != "今日は元気ですか。" {
		t.Errorf("unexpected split %q", got)
	}
	if got := records[1].Lines; len(got) != 1 || got[0] != "元気です、ありがとう。" {
		t.Errorf("unexpected split %q", got)
	}
	if !strings.Contains(readFile(t, translated), `"ja": [`) {
		t.Error("translated file should use the ja key")
	}

	track := env.file(t, "episode.ass", testTrack)
	out := filepath.Join(env.dir, "episode.ja.ass")
	if _, _, err := env.run(t, "-q", "inject", track, "--translations", translated, "--mode", "dual", "-o", out); err != nil {
		t.Fatalf("inject failed: %v", err)
	}

	result := readFile(t, out)
	for _, want := range []string{
		`,,やあ、\NHello there, how` + "\n",
		`,,今日は元気ですか。\Nare you today.` + "\n",
		`,,元気です、ありがとう。\NI am fine, thank you.` + "\n",
		"Comment: 0,0:00:03.00,0:00:04.00,Default,,0,0,0,,note\n",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("output missing %q:\n%s", want, result)
		}
	}
}

func TestRun_TranslateSameLanguageCopiesSentences(t *testing.T) {
	env := newTestEnv(t, "none")
	sentences := env.file(t, "sentences.json", `[
  {"start_line": 1, "end_line": 3, "text": "Hello there, how are you today.", "blank_lines": [2]},
  {"start_line": 4, "end_line": 4, "text": "I am fine, thank you."}
]`)

	stdout, _, err := env.run(t, "-q", "--lang", "en_GB", "translate", sentences)
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if env.server.calls.Load() != 0 {
		t.Errorf("provider called %d times, want none", env.server.calls.Load())
	}

	var records []subflow.TranslatedRecord
	if err := json.Unmarshal([]byte(stdout), &records); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if got := records[0].Lines; len(got) != 3 || got[1] != "" || got[0] == "" || got[2] == "" {
		t.Errorf("unexpected split around the blank line %q", got)
	}
	if got := records[1].Lines; len(got) != 1 || got[0] != "I am fine, thank you." {
		t.Errorf("unexpected lines %q", got)
	}
}

func TestRun_InjectLeavesBlankCuesAlone(t *testing.T) {
	env := newTestEnv(t, "none")
	sign := "Dialogue: 0,0:00:02.00,0:00:03.00,Sign,,0,0,0,,{\\an8\\pos(10,10)}\n"
	track := env.file(t, "episode.ass", "[Events]\n"+
		"Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n"+
		"Dialogue: 0,0:00:01.00,0:00:02.00,Default,,0,0,0,,Hello there,\n"+
		sign+
		"Dialogue: 0,0:00:03.00,0:00:04.00,Default,,0,0,0,,how are you today.\n")
	translated := env.file(t, "translated.json", `[
  {"start_line": 1, "end_line": 3, "ja": ["やあ、", "看板", "今日は元気？"]}
]`)

	stdout, _, err := env.run(t, "-q", "inject", track, "-t", translated)
	if err != nil {
		t.Fatalf("inject failed: %v", err)
	}
	if !strings.Contains(stdout, sign) {
		t.Errorf("tag-only cue should pass through unchanged:\n%s", stdout)
	}
	if strings.Contains(stdout, "看板") {
		t.Error("blank position must not be replaced")
	}
	if !strings.Contains(stdout, ",,やあ、\n") || !strings.Contains(stdout, ",,今日は元気？\n") {
		t.Errorf("text positions should be replaced:\n%s", stdout)
	}
}

func TestRun_InjectSkipsOutOfRange(t *testing.T) {
	env := newTestEnv(t, "none")
	translated := env.file(t, "translated.json", `[
  {"start_line": 3, "end_line": 4, "ja": ["三", "四"]}
]`)
	track := env.file(t, "episode.ass", testTrack)

	stdout, _, err := env.run(t, "-q", "inject", track, "-t", translated)
	if err != nil {
		t.Fatalf("inject failed: %v", err)
	}
	if !strings.Contains(stdout, ",,三\n") {
		t.Errorf("in-range line should be replaced:\n%s", stdout)
	}
	if strings.Contains(stdout, "四") {
		t.Error("out-of-range line must be skipped")
	}
}

func TestRun_EndToEnd(t *testing.T) {
	env := newTestEnv(t, "sqlite")
	track := env.file(t, "episode.ass", testTrack)
	out := filepath.Join(env.dir, "episode.ja.ass")

	_, stderr, err := env.run(t, "run", track, "-o", out)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	result := readFile(t, out)
	if !strings.Contains(result, ",,やあ、\n") || !strings.Contains(result, ",,今日は元気ですか。\n") {
		t.Errorf("unexpected output:\n%s", result)
	}
	if strings.Count(result, "\n") != strings.Count(testTrack, "\n") {
		t.Error("line count must not change")
	}
	if !strings.Contains(stderr, "Translated:     2") {
		t.Errorf("expected stats, got: %s", stderr)
	}
	first := env.server.calls.Load()

	// The second run is served from the sqlite cache.
	stdout, _, err := env.run(t, "-q", "run", track, "--json")
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if env.server.calls.Load() != first {
		t.Error("second run should not call the provider")
	}

	var res RunOutput
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.CachedCount != 2 || res.TranslatedCount != 0 || res.TotalEntries != 3 || res.Sentences != 2 {
		t.Errorf("unexpected stats %+v", res)
	}
	if res.Content != result {
		t.Error("cached run should produce the same track")
	}
}

func TestRun_ProviderFailureUsesPlaceholder(t *testing.T) {
	env := newTestEnv(t, "none")
	env.server.fail.Store(true)
	track := env.file(t, "episode.ass", testTrack)

	stdout, _, err := env.run(t, "-q", "run", track)
	if err != nil {
		t.Fatalf("provider failure must not abort: %v", err)
	}
	if !strings.Contains(stdout, ",,"+subflow.PlaceholderText+"\n") {
		t.Errorf("expected placeholder in output:\n%s", stdout)
	}
	if !strings.Contains(stdout, "[Script Info]\nTitle: Test\n") {
		t.Error("non-dialogue lines should be preserved")
	}
}

func TestRun_MissingAPIKey(t *testing.T) {
	env := newTestEnv(t, "none")
	sentences := env.file(t, "sentences.json", `[]`)

	var stdout, stderr bytes.Buffer
	err := run([]string{"--config", env.config, "translate", sentences}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
	if !strings.Contains(err.Error(), "API key required") {
		t.Errorf("expected API key error, got: %v", err)
	}
}

func TestRun_InvalidMode(t *testing.T) {
	env := newTestEnv(t, "none")
	track := env.file(t, "episode.ass", testTrack)
	translated := env.file(t, "translated.json", `[]`)

	if _, _, err := env.run(t, "inject", track, "-t", translated, "--mode", "overlay"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestRun_Inspect(t *testing.T) {
	env := newTestEnv(t, "none")
	track := env.file(t, "episode.ass", testTrack)
	translated := env.file(t, "translated.json", `[
  {"start_line": 1, "end_line": 2, "ja": ["やあ、", "今日は元気ですか。"]}
]`)

	stdout, _, err := env.run(t, "inspect", track, "--translations", translated)
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}

	for _, want := range []string{"3 dialogue lines, 2 sentences", "1-2", "Hello there, how are you today.", "やあ、 / 今日は元気ですか。"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("inspect output missing %q:\n%s", want, stdout)
		}
	}
	if !strings.Contains(strings.ToUpper(stdout), "TRANSLATION") {
		t.Error("inspect should add a translation column")
	}
}

func TestRun_CacheExportImport(t *testing.T) {
	env := newTestEnv(t, "sqlite")
	track := env.file(t, "episode.ass", testTrack)

	if _, _, err := env.run(t, "-q", "run", track); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	export := filepath.Join(env.dir, "cache.json")
	if _, _, err := env.run(t, "-q", "cache", "export", export); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	data := readFile(t, export)
	if !strings.Contains(data, "やあ、今日は元気ですか。") || !strings.Contains(data, `"target_lang": "ja_JP"`) {
		t.Errorf("unexpected export:\n%s", data)
	}

	_, stderr, err := env.run(t, "cache", "import", export)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if !strings.Contains(stderr, "Imported 2 entries") {
		t.Errorf("unexpected import summary: %s", stderr)
	}
}

func TestRun_CacheExportWithoutBackend(t *testing.T) {
	env := newTestEnv(t, "none")
	if _, _, err := env.run(t, "cache", "export", filepath.Join(env.dir, "x.json")); err == nil {
		t.Error("expected error when no cache is configured")
	}
}
