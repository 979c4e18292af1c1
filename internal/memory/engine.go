// Package memory implements the retention policy over core memories and
// the per-persona temp-log buffer.
package memory

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"pocketpal/internal/model"
)

// CoreCap is the per-persona ceiling on core memories. Inserts past the
// cap evict the lowest-scoring record, not the oldest.
const CoreCap = 50

// TempLogCap bounds the per-persona scratch buffer; the oldest entry is
// dropped once exceeded.
const TempLogCap = 30

// Fixed scoring weights. Importance pulls a memory up, age pulls it down.
const (
	importanceWeight = 0.6
	ageWeight        = 0.4
)

// AddParams holds parameters for creating a core memory.
type AddParams struct {
	PersonaID  string
	Content    string
	Importance int // clamped to [1,5]
	Category   string
}

// UpdateParams holds the editable fields of a core memory. Nil fields
// are left unchanged.
type UpdateParams struct {
	Content    *string
	Importance *int
	Category   *string
}

// Engine owns the memory collections and applies the retention policy on
// every mutation. A mutex guards the collections; the autosave scheduler
// snapshots them from its own goroutine.
type Engine struct {
	mu      sync.Mutex
	mem     model.AppMemories
	now     func() time.Time
	entropy *rand.Rand
}

// New creates an empty engine.
func New() *Engine {
	return &Engine{
		mem: model.AppMemories{
			Core: []model.CoreMemory{},
			Temp: map[string]model.TempMemory{},
		},
		now:     time.Now,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (e *Engine) newID() string {
	return ulid.MustNew(ulid.Timestamp(e.now()), e.entropy).String()
}

// Set replaces the engine's collections with m, repairing nil slices and
// maps so later mutations are safe.
func (e *Engine) Set(m model.AppMemories) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m.Core == nil {
		m.Core = []model.CoreMemory{}
	}
	if m.Temp == nil {
		m.Temp = map[string]model.TempMemory{}
	}
	e.mem = m
}

// Snapshot returns a deep copy of the collections for persisting.
func (e *Engine) Snapshot() model.AppMemories {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := model.AppMemories{
		Core: make([]model.CoreMemory, len(e.mem.Core)),
		Temp: make(map[string]model.TempMemory, len(e.mem.Temp)),
	}
	copy(out.Core, e.mem.Core)
	for k, v := range e.mem.Temp {
		logs := make([]model.TempLog, len(v.Logs))
		copy(logs, v.Logs)
		v.Logs = logs
		out.Temp[k] = v
	}
	return out
}

// Score ranks a memory for retention: higher importance raises it, hours
// since creation lower it. An unparseable createdAt counts as age zero.
func (e *Engine) Score(m model.CoreMemory) float64 {
	hours := 0.0
	if t, err := time.Parse(time.RFC3339, m.CreatedAt); err == nil {
		hours = e.now().Sub(t).Hours()
	}
	return importanceWeight*float64(m.Importance) - ageWeight*hours
}

// AddCore creates a core memory and enforces the per-persona cap. The
// returned record carries the generated id and creation timestamp.
func (e *Engine) AddCore(p AddParams) model.CoreMemory {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := model.CoreMemory{
		ID:         e.newID(),
		PersonaID:  p.PersonaID,
		Content:    p.Content,
		Importance: clampImportance(p.Importance),
		CreatedAt:  e.now().Format(time.RFC3339),
		Category:   normalizeCategory(p.Category),
	}
	e.mem.Core = append(e.mem.Core, m)
	e.enforceCap(p.PersonaID)
	return m
}

// UpdateCore edits the memory with the given id. Returns false when no
// such memory exists.
func (e *Engine) UpdateCore(id string, p UpdateParams) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.mem.Core {
		if e.mem.Core[i].ID != id {
			continue
		}
		if p.Content != nil {
			e.mem.Core[i].Content = *p.Content
		}
		if p.Importance != nil {
			e.mem.Core[i].Importance = clampImportance(*p.Importance)
		}
		if p.Category != nil {
			e.mem.Core[i].Category = normalizeCategory(*p.Category)
		}
		return true
	}
	return false
}

// DeleteCore removes the memory with the given id. Returns false when no
// such memory exists.
func (e *Engine) DeleteCore(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.mem.Core {
		if e.mem.Core[i].ID == id {
			e.mem.Core = append(e.mem.Core[:i], e.mem.Core[i+1:]...)
			return true
		}
	}
	return false
}

// ByPersona returns every core memory belonging to personaID, in insert
// order.
func (e *Engine) ByPersona(personaID string) []model.CoreMemory {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.byPersona(personaID)
}

func (e *Engine) byPersona(personaID string) []model.CoreMemory {
	var out []model.CoreMemory
	for _, m := range e.mem.Core {
		if m.PersonaID == personaID {
			out = append(out, m)
		}
	}
	return out
}

// ByCategory returns personaID's core memories in the given category.
func (e *Engine) ByCategory(personaID, category string) []model.CoreMemory {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []model.CoreMemory
	for _, m := range e.mem.Core {
		if m.PersonaID == personaID && m.Category == category {
			out = append(out, m)
		}
	}
	return out
}

// Top returns personaID's memories sorted by score descending, truncated
// to limit. limit <= 0 means no truncation.
func (e *Engine) Top(personaID string, limit int) []model.CoreMemory {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.top(personaID, limit)
}

func (e *Engine) top(personaID string, limit int) []model.CoreMemory {
	out := e.byPersona(personaID)
	sort.SliceStable(out, func(i, j int) bool {
		return e.Score(out[i]) > e.Score(out[j])
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// AddTempLog appends one dialogue line to personaID's scratch buffer,
// dropping the oldest entry past the cap.
func (e *Engine) AddTempLog(personaID, role, content string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	temp := e.mem.Temp[personaID]
	temp.PersonaID = personaID
	temp.Logs = append(temp.Logs, model.TempLog{
		Timestamp: e.now().Format(time.RFC3339),
		Role:      role,
		Content:   content,
	})
	if len(temp.Logs) > TempLogCap {
		temp.Logs = temp.Logs[len(temp.Logs)-TempLogCap:]
	}
	temp.LastUpdated = e.now().Format(time.RFC3339)
	e.mem.Temp[personaID] = temp
}

// TempLogs returns personaID's buffered lines, oldest first.
func (e *Engine) TempLogs(personaID string) []model.TempLog {
	e.mu.Lock()
	defer e.mu.Unlock()
	logs := e.mem.Temp[personaID].Logs
	out := make([]model.TempLog, len(logs))
	copy(out, logs)
	return out
}

// ClearTempLogs empties personaID's buffer after its contents have been
// summarized.
func (e *Engine) ClearTempLogs(personaID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.mem.Temp, personaID)
}

// enforceCap keeps only the top-scoring CoreCap memories for personaID.
func (e *Engine) enforceCap(personaID string) {
	count := 0
	for _, m := range e.mem.Core {
		if m.PersonaID == personaID {
			count++
		}
	}
	if count <= CoreCap {
		return
	}

	keepList := e.top(personaID, CoreCap)
	keep := make(map[string]bool, len(keepList))
	for _, m := range keepList {
		keep[m.ID] = true
	}

	kept := e.mem.Core[:0]
	for _, m := range e.mem.Core {
		if m.PersonaID != personaID || keep[m.ID] {
			kept = append(kept, m)
		}
	}
	e.mem.Core = kept
}

func clampImportance(v int) int {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}

func normalizeCategory(c string) string {
	if model.ValidCategories[c] {
		return c
	}
	return model.CategoryOther
}
