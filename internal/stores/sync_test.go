package stores

import (
	"encoding/json"
	"testing"
	"time"

	"pocketpal/internal/data"
	"pocketpal/internal/memory"
	"pocketpal/internal/model"
	"pocketpal/internal/storage"
)

func newTestSync(t *testing.T) (*Sync, *storage.Mem) {
	t.Helper()
	kv := storage.NewMem(0)
	s := NewSync(data.NewService(kv, nil), nil)
	s.delay = 20 * time.Millisecond
	t.Cleanup(s.Close)
	return s, kv
}

func persisted(t *testing.T, kv *storage.Mem) model.AppData {
	t.Helper()
	raw, ok := kv.Get(model.StorageKey)
	if !ok {
		t.Fatal("nothing persisted")
	}
	var doc model.AppData
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestInitFansOutDocument(t *testing.T) {
	s, _ := newTestSync(t)
	doc := s.Init()

	if len(s.Personas.List()) != len(doc.Personas) {
		t.Error("personas not applied")
	}
	if s.Theme.Get() != doc.Theme {
		t.Error("theme not applied")
	}
	if s.Config.Get().GPT.Model != doc.Config.GPT.Model {
		t.Error("config not applied")
	}
}

func TestApplyRepairsDanglingActive(t *testing.T) {
	s, _ := newTestSync(t)
	dangling := "ghost"
	doc := model.DefaultAppData()
	doc.ActivePersonaID = &dangling

	s.Apply(doc)
	active := s.Personas.ActiveID()
	if active == nil || *active != doc.Personas[0].ID {
		t.Errorf("active = %v, want first persona", active)
	}
}

func TestApplyKeepsValidActive(t *testing.T) {
	s, _ := newTestSync(t)
	doc := model.DefaultAppData()
	want := doc.Personas[1].ID
	doc.ActivePersonaID = &want

	s.Apply(doc)
	if got := s.Personas.ActiveID(); got == nil || *got != want {
		t.Errorf("active = %v, want %q", got, want)
	}
}

func TestAssembleRoundTrips(t *testing.T) {
	s, _ := newTestSync(t)
	s.Init()

	id := s.Personas.Add(model.Persona{Name: "Extra"})
	s.Theme.SetTheme("night")
	s.Memory.AddCore(memory.AddParams{PersonaID: id, Content: "fact", Importance: 4, Category: model.CategoryEvent})

	doc := s.Assemble()
	if doc.Version != model.CurrentVersion {
		t.Errorf("version = %q", doc.Version)
	}
	if doc.PersonaByID(id) == nil {
		t.Error("added persona missing from assembly")
	}
	if doc.Theme != "night" {
		t.Errorf("theme = %q", doc.Theme)
	}
	if len(doc.Memories.Core) != 1 || doc.Memories.Core[0].PersonaID != id {
		t.Errorf("memories = %+v", doc.Memories.Core)
	}
}

func TestAutosaveCoalescesBursts(t *testing.T) {
	s, kv := newTestSync(t)
	s.Init()
	s.Flush()

	// A burst of mutations inside the quiet period becomes one write
	// carrying all of them.
	s.Theme.SetTheme("one")
	s.Theme.SetTheme("two")
	s.Personas.Add(model.Persona{Name: "Burst"})

	time.Sleep(5 * s.delay)

	doc := persisted(t, kv)
	if doc.Theme != "two" {
		t.Errorf("theme = %q, want the last value", doc.Theme)
	}
	found := false
	for _, p := range doc.Personas {
		if p.Name == "Burst" {
			found = true
		}
	}
	if !found {
		t.Error("burst mutation missing from the autosaved document")
	}
}

func TestMutationsRaceAutosaveWriter(t *testing.T) {
	s, kv := newTestSync(t)
	s.delay = time.Millisecond
	s.Init()

	// Mutate every container while the autosave timer keeps firing on
	// its own goroutine; the race detector flags unguarded state.
	var lastID string
	for i := 0; i < 50; i++ {
		lastID = s.Personas.Add(model.Persona{Name: "Racer"})
		s.Personas.AddMessage(lastID, model.Message{Text: "hi"})
		s.Theme.SetTheme("dark")
		s.Emojis.Add("wave", "data:,", "greeting")
		s.Memory.AddTempLog(lastID, "user", "line")
		s.MarkDirty()
		time.Sleep(time.Millisecond)
	}

	s.Flush()
	doc := persisted(t, kv)
	if doc.PersonaByID(lastID) == nil {
		t.Error("final mutation missing from the persisted document")
	}
}

func TestFlushWritesImmediately(t *testing.T) {
	s, kv := newTestSync(t)
	s.Init()

	s.Theme.SetTheme("flushed")
	if !s.Flush() {
		t.Fatal("flush failed")
	}
	if persisted(t, kv).Theme != "flushed" {
		t.Error("flush did not persist the pending state")
	}
}

func TestCloseWritesAndStopsScheduler(t *testing.T) {
	kv := storage.NewMem(0)
	s := NewSync(data.NewService(kv, nil), nil)
	s.delay = 20 * time.Millisecond
	s.Init()

	s.Theme.SetTheme("final")
	s.Close()
	if persisted(t, kv).Theme != "final" {
		t.Error("close did not persist the pending state")
	}

	// After close, further marks must not schedule anything.
	s.MarkDirty()
	s.mu.Lock()
	if s.timer != nil {
		t.Error("scheduler still active after close")
	}
	s.mu.Unlock()
}
