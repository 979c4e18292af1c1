package validate

import (
	"encoding/json"
	"strings"
	"testing"

	"pocketpal/internal/model"
)

// decode round-trips a typed document into the decoded-JSON form the
// validator operates on.
func decode(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestRejectsNonObjects(t *testing.T) {
	for _, v := range []any{nil, "string", 42.0, true, []any{}} {
		res := AppData(v)
		if res.Valid {
			t.Errorf("expected %v to be rejected", v)
		}
		if len(res.Errors) == 0 {
			t.Errorf("expected errors for %v", v)
		}
	}
}

func TestDefaultDataIsValid(t *testing.T) {
	res := AppData(decode(t, model.DefaultAppData()))
	if !res.Valid {
		t.Fatalf("default document invalid: %v", res.Errors)
	}
	if len(res.Errors) != 0 {
		t.Errorf("expected zero errors, got %v", res.Errors)
	}
}

func TestMissingTopLevelFields(t *testing.T) {
	fields := []string{"version", "lastUpdated", "personas", "activePersonaId", "config", "memories", "theme", "customEmojis"}
	for _, field := range fields {
		doc := decode(t, model.DefaultAppData()).(map[string]any)
		delete(doc, field)

		res := AppData(doc)
		if res.Valid {
			t.Errorf("document missing %q should be invalid", field)
			continue
		}
		found := false
		for _, e := range res.Errors {
			if strings.Contains(e, field) {
				found = true
			}
		}
		if !found {
			t.Errorf("errors for missing %q do not mention it: %v", field, res.Errors)
		}
	}
}

func TestCollectsAllErrors(t *testing.T) {
	doc := decode(t, model.DefaultAppData()).(map[string]any)
	delete(doc, "version")
	delete(doc, "theme")
	doc["personas"] = "not an array"

	res := AppData(doc)
	if res.Valid {
		t.Fatal("expected invalid")
	}
	if len(res.Errors) < 3 {
		t.Errorf("expected all three defects reported, got %v", res.Errors)
	}
}

func TestPersonaDefects(t *testing.T) {
	data := model.DefaultAppData()
	data.Personas = []model.Persona{{ID: "", Name: "x", Content: "y", Messages: []model.Message{}}}
	doc := decode(t, data)

	res := AppData(doc)
	if res.Valid {
		t.Fatal("empty persona id should be invalid")
	}
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "personas[0].id") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected personas[0].id path in errors, got %v", res.Errors)
	}
}

func TestCoreMemoryDefects(t *testing.T) {
	data := model.DefaultAppData()
	data.Memories.Core = []model.CoreMemory{
		{ID: "m1", PersonaID: "", Content: "c", Importance: 3, CreatedAt: "0", Category: "other"},
		{ID: "m2", PersonaID: "mia", Content: "c", Importance: 9, CreatedAt: "0", Category: "other"},
	}
	doc := decode(t, data)

	res := AppData(doc)
	if res.Valid {
		t.Fatal("expected invalid")
	}
	wantPaths := []string{"memories.core[0].personaId", "memories.core[1].importance"}
	for _, want := range wantPaths {
		found := false
		for _, e := range res.Errors {
			if strings.Contains(e, want) {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %s in errors, got %v", want, res.Errors)
		}
	}
}

func TestFractionalImportanceRejected(t *testing.T) {
	doc := decode(t, model.DefaultAppData()).(map[string]any)
	mem := doc["memories"].(map[string]any)
	mem["core"] = []any{map[string]any{
		"id": "m1", "personaId": "mia", "content": "c",
		"importance": 2.5, "createdAt": "0", "category": "other",
	}}

	if AppData(doc).Valid {
		t.Error("fractional importance should be invalid")
	}
}

func TestConfigDefects(t *testing.T) {
	doc := decode(t, model.DefaultAppData()).(map[string]any)
	cfg := doc["config"].(map[string]any)
	delete(cfg, "vision")
	cfg["phoneMode"] = "yes"

	res := AppData(doc)
	if res.Valid {
		t.Fatal("expected invalid")
	}
	joined := strings.Join(res.Errors, "\n")
	if !strings.Contains(joined, "config.vision") || !strings.Contains(joined, "config.phoneMode") {
		t.Errorf("expected config.vision and config.phoneMode defects, got %v", res.Errors)
	}
}

func TestEmojiDefects(t *testing.T) {
	data := model.DefaultAppData()
	data.CustomEmojis = []model.EmojiItem{{ID: "", Name: "wave", URL: "data:image/png;base64,x"}}
	res := AppData(decode(t, data))
	if res.Valid {
		t.Fatal("empty emoji id should be invalid")
	}
	if !strings.Contains(strings.Join(res.Errors, "\n"), "customEmojis[0].id") {
		t.Errorf("expected customEmojis[0].id path, got %v", res.Errors)
	}
}

func TestNullActivePersonaAllowed(t *testing.T) {
	data := model.DefaultAppData()
	data.ActivePersonaID = nil
	if res := AppData(decode(t, data)); !res.Valid {
		t.Errorf("null activePersonaId should be valid: %v", res.Errors)
	}
}
