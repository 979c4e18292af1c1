package organize

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"pocketpal/internal/memory"
	"pocketpal/internal/model"
)

// stubCompleter replays a canned reply and records the request.
type stubCompleter struct {
	reply    string
	err      error
	messages []Message
	opts     Options
	calls    int
}

func (s *stubCompleter) Complete(_ context.Context, messages []Message, opts Options) (string, error) {
	s.calls++
	s.messages = messages
	s.opts = opts
	return s.reply, s.err
}

func sampleLogs() []model.TempLog {
	return []model.TempLog{
		{Timestamp: "t1", Role: "user", Content: "I moved to Tokyo last week"},
		{Timestamp: "t2", Role: "ai", Content: "How exciting!"},
	}
}

func TestOrganizeParsesJSONVerdict(t *testing.T) {
	stub := &stubCompleter{reply: `Here you go:
{"summary": "User moved to Tokyo", "importance": 4, "category": "event"}`}
	o := New(stub, nil)

	v, err := o.Organize(context.Background(), sampleLogs(), "Amy", Options{Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatal(err)
	}
	if v.Summary != "User moved to Tokyo" || v.Importance != 4 || v.Category != model.CategoryEvent {
		t.Errorf("verdict = %+v", v)
	}

	// The prompt carries the persona name and the dialogue.
	prompt := stub.messages[0].Content
	if !strings.Contains(prompt, "Amy") || !strings.Contains(prompt, "Tokyo") {
		t.Errorf("prompt = %q", prompt)
	}
	if stub.opts.MaxTokens != 500 {
		t.Errorf("maxTokens = %d", stub.opts.MaxTokens)
	}
}

func TestOrganizeClampsImportanceAndCategory(t *testing.T) {
	stub := &stubCompleter{reply: `{"summary":"s","importance":9,"category":"gossip"}`}
	o := New(stub, nil)

	v, err := o.Organize(context.Background(), sampleLogs(), "Amy", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if v.Importance != 5 {
		t.Errorf("importance = %d, want clamped 5", v.Importance)
	}
	if v.Category != model.CategoryOther {
		t.Errorf("category = %q, want other", v.Category)
	}
}

func TestOrganizeStringImportance(t *testing.T) {
	stub := &stubCompleter{reply: `{"summary":"s","importance":"2","category":"preference"}`}
	o := New(stub, nil)

	v, _ := o.Organize(context.Background(), sampleLogs(), "Amy", Options{})
	if v.Importance != 2 || v.Category != model.CategoryPreference {
		t.Errorf("verdict = %+v", v)
	}
}

func TestOrganizePlainTextFallback(t *testing.T) {
	stub := &stubCompleter{reply: "The user recently moved to Tokyo."}
	o := New(stub, nil)

	v, err := o.Organize(context.Background(), sampleLogs(), "Amy", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if v.Summary != "The user recently moved to Tokyo." {
		t.Errorf("summary = %q", v.Summary)
	}
	if v.Importance != 3 || v.Category != model.CategoryOther {
		t.Errorf("fallback verdict = %+v", v)
	}
}

func TestOrganizeEmptyLogsSkipsCompletion(t *testing.T) {
	stub := &stubCompleter{}
	o := New(stub, nil)

	v, err := o.Organize(context.Background(), nil, "Amy", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if stub.calls != 0 {
		t.Error("no completion should happen for an empty buffer")
	}
	if v.Summary != "" || v.Importance != 3 {
		t.Errorf("verdict = %+v", v)
	}
}

func TestRunStoresMemoryAndClearsBuffer(t *testing.T) {
	stub := &stubCompleter{reply: `{"summary":"User moved to Tokyo","importance":4,"category":"event"}`}
	o := New(stub, nil)
	eng := memory.New()
	eng.AddTempLog("amy", "user", "I moved to Tokyo last week")

	mem, err := o.Run(context.Background(), eng, "amy", "Amy", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if mem.Content != "User moved to Tokyo" || mem.PersonaID != "amy" {
		t.Errorf("memory = %+v", mem)
	}
	if len(eng.ByPersona("amy")) != 1 {
		t.Error("memory not stored")
	}
	if len(eng.TempLogs("amy")) != 0 {
		t.Error("temp buffer not cleared after organization")
	}
}

func TestRunFailureKeepsBuffer(t *testing.T) {
	stub := &stubCompleter{err: errors.New("endpoint down")}
	o := New(stub, nil)
	eng := memory.New()
	eng.AddTempLog("amy", "user", "hello")

	if _, err := o.Run(context.Background(), eng, "amy", "Amy", Options{}); err == nil {
		t.Fatal("expected error")
	}
	if len(eng.TempLogs("amy")) != 1 {
		t.Error("buffer must survive a failed run")
	}
	if len(eng.ByPersona("amy")) != 0 {
		t.Error("no memory should be stored on failure")
	}
}

func TestRunEmptyBuffer(t *testing.T) {
	o := New(&stubCompleter{}, nil)
	if _, err := o.Run(context.Background(), memory.New(), "amy", "Amy", Options{}); !errors.Is(err, ErrNoLogs) {
		t.Errorf("err = %v", err)
	}
}

func TestShouldAutoOrganize(t *testing.T) {
	cases := []struct {
		count, threshold int
		want             bool
	}{
		{0, 20, false},
		{19, 20, false},
		{20, 20, true},
		{40, 20, true},
		{10, 0, false}, // default threshold
		{20, 0, true},
	}
	for _, c := range cases {
		if got := ShouldAutoOrganize(c.count, c.threshold); got != c.want {
			t.Errorf("ShouldAutoOrganize(%d, %d) = %v", c.count, c.threshold, got)
		}
	}
}

func TestInQuietTimeOvernight(t *testing.T) {
	cfg := model.QuietTimeConfig{Enabled: true, StartTime: "22:00", EndTime: "08:00"}
	at := func(h, m int) time.Time {
		return time.Date(2025, 6, 1, h, m, 0, 0, time.UTC)
	}

	if !InQuietTime(cfg, at(23, 30)) {
		t.Error("23:30 is inside an overnight window")
	}
	if !InQuietTime(cfg, at(3, 0)) {
		t.Error("03:00 is inside an overnight window")
	}
	if InQuietTime(cfg, at(12, 0)) {
		t.Error("noon is outside an overnight window")
	}
	if InQuietTime(cfg, at(8, 0)) {
		t.Error("the end minute is exclusive")
	}
	if !InQuietTime(cfg, at(22, 0)) {
		t.Error("the start minute is inclusive")
	}
}

func TestInQuietTimeSameDayAndDisabled(t *testing.T) {
	cfg := model.QuietTimeConfig{Enabled: true, StartTime: "13:00", EndTime: "15:00"}
	noon := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	if !InQuietTime(cfg, noon) {
		t.Error("14:00 is inside 13:00-15:00")
	}

	cfg.Enabled = false
	if InQuietTime(cfg, noon) {
		t.Error("disabled window must never suppress")
	}

	bad := model.QuietTimeConfig{Enabled: true, StartTime: "not-a-time", EndTime: "15:00"}
	if InQuietTime(bad, noon) {
		t.Error("unparseable window must never suppress")
	}
}

func TestAutoMessageUsesRecentContext(t *testing.T) {
	stub := &stubCompleter{reply: "  miss you already!  "}
	o := New(stub, nil)

	got, err := o.AutoMessage(context.Background(), AutoMessageParams{
		PersonaName:  "Amy",
		SystemPrompt: "You are Amy.",
		Prompt:       "Reach out to the user.",
		Recent: []model.TempLog{
			{Role: "user", Content: "heading to bed"},
		},
		Options: Options{Model: "gpt-4o-mini"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "miss you already!" {
		t.Errorf("reply = %q", got)
	}

	if stub.messages[0].Role != RoleSystem {
		t.Error("persona prompt should ride as the system message")
	}
	user := stub.messages[1].Content
	if !strings.Contains(user, "heading to bed") || !strings.Contains(user, "Amy") {
		t.Errorf("prompt = %q", user)
	}
	if stub.opts.Temperature != 0.9 || stub.opts.MaxTokens != 100 {
		t.Errorf("opts = %+v", stub.opts)
	}
}
