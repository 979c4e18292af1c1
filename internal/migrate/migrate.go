package migrate

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"pocketpal/internal/model"
)

// StepFunc transforms an old-shaped document into the next version's
// shape. Steps are pure and must advertise the new version in the result.
type StepFunc func(map[string]any) map[string]any

// Step is one registered transform in the migration chain.
type Step struct {
	From  string
	To    string
	Apply StepFunc
}

// LegacySource supplies the raw payloads of the legacy storage slots,
// keyed by slot name. Absent slots are simply absent from the map.
type LegacySource func() map[string]string

// Engine walks the migration chain. The zero value is not usable; use New.
type Engine struct {
	steps  []Step
	legacy LegacySource
	now    func() time.Time
	log    *slog.Logger
}

// New creates an Engine with the full registered chain. legacy may be nil
// when no legacy slots can exist (imports from text, tests).
func New(legacy LegacySource, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		legacy: legacy,
		now:    time.Now,
		log:    log,
	}
	e.steps = []Step{
		{From: "1.0.0", To: "2.0.0", Apply: e.v1ToV2},
	}
	return e
}

// Migrate upgrades raw to targetVersion. It never panics and never
// returns an unusable document: non-objects become fresh defaults, a gap
// in the chain stops at the best document so far, and a failing step
// yields the data as it stood before that step.
func (e *Engine) Migrate(raw any, targetVersion string) model.AppData {
	obj, ok := raw.(map[string]any)
	if !ok || obj == nil {
		e.log.Warn("migrate: not an object, using defaults")
		return e.defaults()
	}

	version, hasVersion := obj["version"].(string)
	if !hasVersion || version == "" {
		e.log.Info("migrate: unversioned data, reconstructing from legacy slots")
		return e.FromLegacy(e.legacySnapshot())
	}

	current := obj
	for Compare(version, targetVersion) < 0 {
		step, ok := e.stepFrom(version)
		if !ok {
			e.log.Warn("migrate: no registered step", "from", version)
			break
		}

		next, err := runStep(step, current)
		if err != nil {
			e.log.Error("migrate: step failed, keeping prior shape",
				"from", step.From, "to", step.To, "error", err)
			return e.decode(current)
		}
		e.log.Info("migrate: applied step", "from", step.From, "to", step.To)
		current = next
		version = step.To
	}

	return e.decode(current)
}

// Path returns the chain of versions a document at from would pass
// through to reach to, starting with from itself.
func (e *Engine) Path(from, to string) []string {
	path := []string{from}
	current := from
	for Compare(current, to) < 0 {
		step, ok := e.stepFrom(current)
		if !ok {
			break
		}
		path = append(path, step.To)
		current = step.To
	}
	return path
}

func (e *Engine) stepFrom(version string) (Step, bool) {
	for _, s := range e.steps {
		if s.From == version {
			return s, true
		}
	}
	return Step{}, false
}

// runStep isolates a step so a panic inside a transform cannot cross the
// trust boundary.
func runStep(s Step, data map[string]any) (out map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step %s->%s panicked: %v", s.From, s.To, r)
		}
	}()
	return s.Apply(data), nil
}

func (e *Engine) legacySnapshot() map[string]string {
	if e.legacy == nil {
		return nil
	}
	return e.legacy()
}

func (e *Engine) defaults() model.AppData {
	d := model.DefaultAppData()
	d.LastUpdated = e.now().Format(time.RFC3339)
	return d
}

// decode converts a migrated map back into the typed document. Fields a
// half-migrated map cannot fill stay at their zero value; json.Unmarshal
// keeps decoding past type mismatches, so the result is best effort.
// Nil collections, nested ones included, are restored so the document
// re-validates.
func (e *Engine) decode(obj map[string]any) model.AppData {
	var out model.AppData
	b, err := json.Marshal(obj)
	if err != nil {
		e.log.Error("migrate: re-encode failed, using defaults", "error", err)
		return e.defaults()
	}
	if err := json.Unmarshal(b, &out); err != nil {
		e.log.Warn("migrate: partial decode of migrated document", "error", err)
	}
	if out.Memories.Core == nil {
		out.Memories.Core = []model.CoreMemory{}
	}
	if out.Memories.Temp == nil {
		out.Memories.Temp = map[string]model.TempMemory{}
	}
	for key, temp := range out.Memories.Temp {
		if temp.Logs == nil {
			temp.Logs = []model.TempLog{}
			out.Memories.Temp[key] = temp
		}
	}
	if out.Personas == nil {
		out.Personas = []model.Persona{}
	}
	for i := range out.Personas {
		if out.Personas[i].Messages == nil {
			out.Personas[i].Messages = []model.Message{}
		}
	}
	if out.CustomEmojis == nil {
		out.CustomEmojis = []model.EmojiItem{}
	}
	return out
}

// v1ToV2 converts the 1.0.0 shape to 2.0.0: memory records move from an
// integer chatId linkage to a string personaId linkage; unparseable
// categories decay to "other".
func (e *Engine) v1ToV2(data map[string]any) map[string]any {
	if v, _ := data["version"].(string); v == "2.0.0" {
		return data
	}

	result := map[string]any{
		"version":         "2.0.0",
		"lastUpdated":     e.now().Format(time.RFC3339),
		"personas":        []any{},
		"activePersonaId": nil,
		"config":          encodeToMap(model.DefaultConfig()),
		"memories":        map[string]any{"core": []any{}, "temp": map[string]any{}},
		"theme":           model.DefaultTheme,
		"customEmojis":    []any{},
	}

	if personas, ok := data["personas"].([]any); ok {
		result["personas"] = personas
	}
	if id, ok := data["activePersonaId"].(string); ok {
		result["activePersonaId"] = id
	}
	if cfg, ok := data["config"].(map[string]any); ok {
		merged := encodeToMap(model.DefaultConfig())
		for k, v := range cfg {
			merged[k] = v
		}
		result["config"] = merged
	}
	if theme, ok := data["theme"].(string); ok {
		result["theme"] = theme
	}
	if emojis, ok := data["customEmojis"].([]any); ok {
		result["customEmojis"] = emojis
	}

	memories, ok := data["memories"].(map[string]any)
	if !ok {
		return result
	}
	out := result["memories"].(map[string]any)
	ids := personaIDs(result["personas"])

	if core, ok := memories["core"].([]any); ok {
		converted := make([]any, 0, len(core))
		for _, raw := range core {
			mem, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			converted = append(converted, map[string]any{
				"id":         stringOr(mem["id"], ""),
				"personaId":  personaRef(mem, ids),
				"content":    stringOr(mem["content"], ""),
				"importance": importanceOr(mem["importance"], 3),
				"createdAt":  stringOr(mem["createdAt"], e.now().Format(time.RFC3339)),
				"category":   categoryOr(mem["category"]),
			})
		}
		out["core"] = converted
	}

	if temp, ok := memories["temp"].(map[string]any); ok {
		converted := map[string]any{}
		for key, raw := range temp {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			logs, _ := entry["logs"].([]any)
			if logs == nil {
				logs = []any{}
			}
			personaID := personaRef(entry, ids)
			if personaID == "" {
				personaID = key
			}
			converted[personaID] = map[string]any{
				"personaId":   personaID,
				"logs":        logs,
				"lastUpdated": stringOr(entry["lastUpdated"], e.now().Format(time.RFC3339)),
			}
		}
		out["temp"] = converted
	}

	return result
}

func personaIDs(v any) []string {
	personas, ok := v.([]any)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(personas))
	for _, raw := range personas {
		p, ok := raw.(map[string]any)
		if !ok {
			ids = append(ids, "")
			continue
		}
		id, _ := p["id"].(string)
		ids = append(ids, id)
	}
	return ids
}

// personaRef resolves a v1 memory record's linkage. An existing string
// personaId wins. A numeric chatId resolves like the legacy importer:
// direct string match against a persona id, then array position, then
// the first persona.
func personaRef(mem map[string]any, ids []string) string {
	if id, ok := mem["personaId"].(string); ok && id != "" {
		return id
	}
	chatID, ok := mem["chatId"].(float64)
	if !ok {
		return ""
	}
	key := fmt.Sprintf("%d", int(chatID))
	for _, id := range ids {
		if id == key {
			return id
		}
	}
	if i := int(chatID); i >= 0 && i < len(ids) && ids[i] != "" {
		return ids[i]
	}
	if len(ids) > 0 && ids[0] != "" {
		return ids[0]
	}
	return key
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func importanceOr(v any, fallback int) int {
	if f, ok := v.(float64); ok && f >= 1 && f <= 5 {
		return int(f)
	}
	return fallback
}

func categoryOr(v any) string {
	if s, ok := v.(string); ok && model.ValidCategories[s] {
		return s
	}
	return model.CategoryOther
}

func encodeToMap(v any) map[string]any {
	b, _ := json.Marshal(v)
	var out map[string]any
	_ = json.Unmarshal(b, &out)
	return out
}
