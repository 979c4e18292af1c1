package data

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"pocketpal/internal/model"
	"pocketpal/internal/storage"
	"pocketpal/internal/validate"
)

func newTestService(t *testing.T) (*Service, *storage.Mem) {
	t.Helper()
	kv := storage.NewMem(0)
	s := NewService(kv, nil)
	s.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return s, kv
}

func storedDoc(t *testing.T, kv *storage.Mem) model.AppData {
	t.Helper()
	raw, ok := kv.Get(model.StorageKey)
	if !ok {
		t.Fatal("no stored document")
	}
	var doc model.AppData
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("stored document does not parse: %v", err)
	}
	return doc
}

func TestLoadEmptyStoreSynthesizesDefaults(t *testing.T) {
	s, kv := newTestService(t)

	doc := s.Load()
	if doc.Version != model.CurrentVersion {
		t.Errorf("version = %q", doc.Version)
	}
	if len(doc.Personas) == 0 {
		t.Error("defaults should seed personas")
	}

	// The synthesized document is persisted immediately.
	stored := storedDoc(t, kv)
	if stored.Version != model.CurrentVersion {
		t.Errorf("persisted version = %q", stored.Version)
	}
}

func TestLoadCorruptJSONStillReturnsUsableDoc(t *testing.T) {
	s, kv := newTestService(t)
	kv.Set(model.StorageKey, "{{{ not json")

	doc := s.Load()
	if doc.Version != model.CurrentVersion || len(doc.Personas) == 0 {
		t.Errorf("corrupt slot should yield defaults, got %+v", doc)
	}
}

func TestLoadMigratesOldVersion(t *testing.T) {
	s, kv := newTestService(t)
	old := `{"version":"1.0.0","personas":[{"id":"amy","name":"Amy","content":"p","messages":[]}],
		"activePersonaId":"amy","theme":"dark",
		"memories":{"core":[{"id":"m1","chatId":0,"content":"c","importance":3,"createdAt":"2024-01-01T00:00:00Z","category":"event"}],"temp":{}}}`
	kv.Set(model.StorageKey, old)

	doc := s.Load()
	if doc.Version != model.CurrentVersion {
		t.Fatalf("version = %q", doc.Version)
	}
	if len(doc.Memories.Core) != 1 || doc.Memories.Core[0].PersonaID != "amy" {
		t.Errorf("memory linkage not migrated: %+v", doc.Memories.Core)
	}

	if stored := storedDoc(t, kv); stored.Version != model.CurrentVersion {
		t.Error("migrated document was not persisted")
	}
}

func TestLoadInvalidDocIsRepaired(t *testing.T) {
	s, _ := newTestService(t)
	s.kv.Set(model.StorageKey, `{"version":"2.0.0","personas":"oops"}`)

	doc := s.Load()
	if !validate.IsValid(toAny(doc)) {
		t.Errorf("repaired document still invalid: %+v", doc)
	}
}

func TestLoadReconstructsLegacyAndCleansUp(t *testing.T) {
	s, kv := newTestService(t)
	kv.Set("pocketpal-persona-storage",
		`{"state":{"personas":[{"id":"amy","name":"Amy","content":"p","messages":[]}],"activePersonaId":"amy"}}`)
	kv.Set("pocketpal-theme-storage", `{"state":{"currentTheme":"night"}}`)

	doc := s.Load()
	if len(doc.Personas) != 1 || doc.Theme != "night" {
		t.Fatalf("legacy reconstruction wrong: %+v", doc)
	}

	if _, ok := kv.Get("pocketpal-persona-storage"); ok {
		t.Error("legacy slot survived cleanup")
	}
	if stored := storedDoc(t, kv); len(stored.Personas) != 1 {
		t.Error("reconstructed document was not persisted")
	}
}

func TestSaveStampsLastUpdated(t *testing.T) {
	s, kv := newTestService(t)
	doc := model.DefaultAppData()
	doc.LastUpdated = "1999-01-01T00:00:00Z"

	if !s.Save(doc) {
		t.Fatal("save failed")
	}
	if got := storedDoc(t, kv).LastUpdated; got != "2025-06-01T12:00:00Z" {
		t.Errorf("lastUpdated = %q, caller value must be overridden", got)
	}
}

func TestSaveQuotaExceededReturnsFalse(t *testing.T) {
	kv := storage.NewMem(64)
	s := NewService(kv, nil)

	if s.Save(model.DefaultAppData()) {
		t.Error("save into a full slot should report false")
	}
	if _, ok := kv.Get(model.StorageKey); ok {
		t.Error("failed save should not write")
	}
}

func TestClearAllResetsToDefaults(t *testing.T) {
	s, kv := newTestService(t)
	doc := s.Load()
	doc.Theme = "custom"
	doc.Personas = nil
	s.Save(doc)
	kv.Set("pocketpal-theme-storage", "{}")

	s.ClearAll()

	stored := storedDoc(t, kv)
	if stored.Theme != model.DefaultTheme || len(stored.Personas) == 0 {
		t.Errorf("after clear: %+v", stored)
	}
	if _, ok := kv.Get("pocketpal-theme-storage"); ok {
		t.Error("legacy slot survived clear")
	}
}

func TestExportRedactsKeysByDefault(t *testing.T) {
	s, _ := newTestService(t)
	doc := s.Load()
	doc.Config.API.APIKey = "sk-main"
	doc.Config.API.APIBaseURL = "https://api.example.com"
	doc.Config.Vision.APIKey = "sk-vision"
	doc.Config.OnlineSearch.APIKey = "sk-search"
	s.Save(doc)

	var exported model.AppData
	if err := json.Unmarshal([]byte(s.ExportJSON(false)), &exported); err != nil {
		t.Fatalf("export does not parse: %v", err)
	}
	if exported.Config.API.APIKey != "" || exported.Config.Vision.APIKey != "" || exported.Config.OnlineSearch.APIKey != "" {
		t.Errorf("keys leaked: %+v", exported.Config)
	}
	if exported.Config.API.APIBaseURL != "https://api.example.com" {
		t.Error("base URL must survive redaction")
	}

	// Redaction must not touch the stored document.
	if s.Load().Config.API.APIKey != "sk-main" {
		t.Error("stored document was mutated by export")
	}
}

func TestExportIncludeKeysPassesThrough(t *testing.T) {
	s, _ := newTestService(t)
	doc := s.Load()
	doc.Config.API.APIKey = "sk-main"
	s.Save(doc)

	var exported model.AppData
	json.Unmarshal([]byte(s.ExportJSON(true)), &exported)
	if exported.Config.API.APIKey != "sk-main" {
		t.Error("includeKeys export should carry the key")
	}
}

func TestExportIsIndented(t *testing.T) {
	s, _ := newTestService(t)
	out := s.ExportJSON(false)
	if !strings.Contains(out, "\n  ") {
		t.Error("export should be human-readable")
	}
}

func TestExportFilename(t *testing.T) {
	s, _ := newTestService(t)
	if got := s.ExportFilename(); got != "pocketpal-backup-2025-06-01.json" {
		t.Errorf("filename = %q", got)
	}
}

func TestImportParseFailure(t *testing.T) {
	s, kv := newTestService(t)

	result := s.ImportJSON("not json at all")
	if result.Success || result.Err != ErrCodeParse {
		t.Errorf("result = %+v", result)
	}
	if _, ok := kv.Get(model.StorageKey); ok {
		t.Error("failed import must not persist anything")
	}
}

func TestImportValidationFailure(t *testing.T) {
	s, kv := newTestService(t)

	// Versioned at current but carrying an id-less persona; migration is
	// a no-op at the current version so revalidation fails too.
	result := s.ImportJSON(`{"version":"2.0.0","personas":[{"id":"","name":"x","content":"","messages":[]}]}`)
	if result.Success || result.Err != ErrCodeValidation {
		t.Errorf("result = %+v", result)
	}
	if result.Message == "" || !strings.Contains(result.Message, "validation failed") {
		t.Errorf("message = %q", result.Message)
	}
	if _, ok := kv.Get(model.StorageKey); ok {
		t.Error("failed import must not persist anything")
	}
}

func TestImportValidDocument(t *testing.T) {
	s, kv := newTestService(t)
	doc := model.DefaultAppData()
	buf, _ := json.Marshal(doc)

	result := s.ImportJSON(string(buf))
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if result.Stats == nil || result.Stats.PersonaCount != len(doc.Personas) {
		t.Errorf("stats = %+v", result.Stats)
	}
	if result.Stats.MessageCount != doc.MessageCount() {
		t.Errorf("message count = %d", result.Stats.MessageCount)
	}

	if stored := storedDoc(t, kv); len(stored.Personas) != len(doc.Personas) {
		t.Error("imported document was not persisted")
	}
}

func TestImportMigratesOldDocument(t *testing.T) {
	s, _ := newTestService(t)
	old := `{"version":"1.0.0","personas":[{"id":"amy","name":"Amy","content":"p","messages":[]}],
		"memories":{"core":[{"id":"m1","chatId":0,"content":"c","importance":3,"createdAt":"2024-01-01T00:00:00Z","category":"event"}],"temp":{}}}`

	result := s.ImportJSON(old)
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	got := s.Load()
	if got.Version != model.CurrentVersion {
		t.Errorf("version = %q", got.Version)
	}
	if len(got.Memories.Core) != 1 || got.Memories.Core[0].PersonaID != "amy" {
		t.Errorf("memories = %+v", got.Memories.Core)
	}
}

func TestImportMergeAddsWithoutReplacing(t *testing.T) {
	s, _ := newTestService(t)
	current := s.Load()
	existing := current.Personas[0]

	incoming := model.AppData{
		Personas: []model.Persona{
			{ID: existing.ID, Name: "renamed", Content: "x", Messages: []model.Message{
				{ID: "new-msg", Text: "hello", DateTime: "t"},
			}},
			{ID: "fresh", Name: "Fresh", Content: "p", Messages: []model.Message{
				{ID: "f1", Text: "hi", DateTime: "t"},
			}},
		},
		Config: model.AppConfig{API: model.APIConfig{APIKey: "sk-incoming"}},
	}
	buf, _ := json.Marshal(incoming)

	result := s.ImportJSONMerge(string(buf), MergeOptions{})
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if result.Stats.PersonaCount != 1 {
		t.Errorf("new personas = %d", result.Stats.PersonaCount)
	}

	got := s.Load()
	merged := got.PersonaByID(existing.ID)
	if merged.Name != existing.Name {
		t.Error("merge must not replace an existing persona")
	}
	found := false
	for _, m := range merged.Messages {
		if m.ID == "new-msg" {
			found = true
		}
	}
	if !found {
		t.Error("unseen message was not appended")
	}
	if got.PersonaByID("fresh") == nil {
		t.Error("new persona was not added")
	}
	if got.Config.API.APIKey == "sk-incoming" {
		t.Error("config must not merge unless requested")
	}
}

func TestImportMergeConfigWhenRequested(t *testing.T) {
	s, _ := newTestService(t)
	s.Load()

	buf := `{"personas":[],"config":{"api":{"apiKey":"sk-incoming","apiBaseUrl":"https://b"}}}`
	result := s.ImportJSONMerge(buf, MergeOptions{Config: true})
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}

	got := s.Load()
	if got.Config.API.APIKey != "sk-incoming" {
		t.Error("requested config merge did not apply")
	}
	// Groups absent from the import stay intact.
	if got.Config.GPT.Model == "" {
		t.Error("absent config group was zeroed")
	}
}

func TestStatsAreLive(t *testing.T) {
	s, _ := newTestService(t)
	before := s.Stats()

	doc := s.Load()
	doc.CustomEmojis = append(doc.CustomEmojis, model.EmojiItem{ID: "e1", Name: "wave", URL: "u"})
	s.Save(doc)

	after := s.Stats()
	if after.EmojiCount != before.EmojiCount+1 {
		t.Errorf("emoji count = %d, want %d", after.EmojiCount, before.EmojiCount+1)
	}
	if after.TotalSize <= 0 {
		t.Error("size should reflect the stored payload")
	}
	if after.Version != model.CurrentVersion {
		t.Errorf("version = %q", after.Version)
	}
}

func TestImportMergeKeepsDocumentLoadable(t *testing.T) {
	s, kv := newTestService(t)
	s.Load()

	// A persona without a messages field would otherwise persist as
	// "messages": null and fail validation on every later load.
	result := s.ImportJSONMerge(`{"personas":[{"id":"ghost","name":"Ghost","content":"x"}]}`, MergeOptions{})
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}

	raw, _ := kv.Get(model.StorageKey)
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		t.Fatal(err)
	}
	if v := validate.AppData(parsed); !v.Valid {
		t.Fatalf("stored document invalid after merge: %v", v.Errors)
	}

	loaded := s.Load()
	ghost := loaded.PersonaByID("ghost")
	if ghost == nil || ghost.Messages == nil {
		t.Fatalf("ghost = %+v, want repaired empty messages", ghost)
	}

	// An export of the merged store must re-import cleanly.
	if round := s.ImportJSON(s.ExportJSON(true)); !round.Success {
		t.Errorf("re-import of export failed: %+v", round)
	}
}

func TestImportMergeSkipsPersonasWithoutID(t *testing.T) {
	s, _ := newTestService(t)
	before := len(s.Load().Personas)

	result := s.ImportJSONMerge(`{"personas":[{"id":"","name":"Nameless","content":"x","messages":[]}]}`, MergeOptions{})
	if !result.Success || result.Stats.PersonaCount != 0 {
		t.Fatalf("result = %+v", result)
	}
	if got := len(s.Load().Personas); got != before {
		t.Errorf("personas = %d, want %d", got, before)
	}
}

func TestExportClearImportRoundTrip(t *testing.T) {
	s, _ := newTestService(t)
	doc := s.Load()
	for i := 0; i < 4; i++ {
		doc.Personas[0].Messages = append(doc.Personas[0].Messages, model.Message{
			ID: "a" + string(rune('0'+i)), Text: "line", DateTime: "t",
		})
		doc.Personas[1].Messages = append(doc.Personas[1].Messages, model.Message{
			ID: "b" + string(rune('0'+i)), Text: "line", DateTime: "t",
		})
	}
	doc.Memories.Core = append(doc.Memories.Core, model.CoreMemory{
		ID: "m1", PersonaID: doc.Personas[0].ID, Content: "fact",
		Importance: 4, CreatedAt: "2025-06-01T10:00:00Z", Category: model.CategoryEvent,
	})
	doc.Theme = "midnight"
	if !s.Save(doc) {
		t.Fatal("seed save failed")
	}

	exported := s.ExportJSON(true)
	s.ClearAll()

	result := s.ImportJSON(exported)
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if result.Stats.PersonaCount != 2 || result.Stats.MessageCount != 8 || result.Stats.MemoryCount != 1 {
		t.Errorf("stats = %+v, want 2 personas, 8 messages, 1 memory", result.Stats)
	}

	got := s.Load()
	if got.Theme != "midnight" {
		t.Errorf("theme = %q", got.Theme)
	}
	if len(got.Personas) != len(doc.Personas) {
		t.Fatalf("personas = %d, want %d", len(got.Personas), len(doc.Personas))
	}
	for i, p := range doc.Personas {
		if got.Personas[i].ID != p.ID || got.Personas[i].Name != p.Name {
			t.Errorf("persona %d = %s/%s, want %s/%s", i, got.Personas[i].ID, got.Personas[i].Name, p.ID, p.Name)
		}
	}
	if len(got.Memories.Core) != 1 || got.Memories.Core[0].ID != "m1" {
		t.Errorf("memories = %+v", got.Memories.Core)
	}
}

func TestFormatSize(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 << 20, "3.00 MB"},
	}
	for _, c := range cases {
		if got := FormatSize(c.in); got != c.want {
			t.Errorf("FormatSize(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}
