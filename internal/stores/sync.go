package stores

import (
	"log/slog"
	"sync"
	"time"

	"pocketpal/internal/data"
	"pocketpal/internal/memory"
	"pocketpal/internal/model"
)

// AutosaveDelay is the quiet period after the last mutation before a
// coalesced write happens.
const AutosaveDelay = 500 * time.Millisecond

// Sync composes the domain containers into the unified document and
// persists it. Mutations mark the state dirty; bursts coalesce into one
// write after the quiet period. The autosave timer assembles the document
// on its own goroutine, so every container guards its state.
type Sync struct {
	Personas *Personas
	Config   *Config
	Theme    *Theme
	Emojis   *Emojis
	Memory   *memory.Engine

	svc   *data.Service
	log   *slog.Logger
	delay time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// NewSync creates the containers and wires their change notifications
// into the autosave scheduler. log may be nil.
func NewSync(svc *data.Service, log *slog.Logger) *Sync {
	if log == nil {
		log = slog.Default()
	}
	s := &Sync{
		Personas: NewPersonas(),
		Config:   NewConfig(),
		Theme:    NewTheme(),
		Emojis:   NewEmojis(),
		Memory:   memory.New(),
		svc:      svc,
		log:      log,
		delay:    AutosaveDelay,
	}
	s.Personas.changed = s.MarkDirty
	s.Config.changed = s.MarkDirty
	s.Theme.changed = s.MarkDirty
	s.Emojis.changed = s.MarkDirty
	return s
}

// Init loads the stored document and fans it out to the containers.
func (s *Sync) Init() model.AppData {
	doc := s.svc.Load()
	s.Apply(doc)
	return doc
}

// Apply fans a document out to the containers. A dangling active
// selection is repaired to the first persona. Fan-out does not mark
// dirty; only real mutations do.
func (s *Sync) Apply(doc model.AppData) {
	active := doc.ActivePersonaID
	if active != nil && doc.PersonaByID(*active) == nil {
		s.log.Warn("sync: active persona missing, selecting first", "id", *active)
		active = nil
	}
	if active == nil && len(doc.Personas) > 0 {
		active = &doc.Personas[0].ID
	}

	s.Personas.Set(doc.Personas, active)
	s.Config.Set(doc.Config)
	s.Theme.Set(doc.Theme)
	s.Emojis.Set(doc.CustomEmojis)
	s.Memory.Set(doc.Memories)
}

// Assemble collects the containers into one document.
func (s *Sync) Assemble() model.AppData {
	return model.AppData{
		Version:         model.CurrentVersion,
		LastUpdated:     time.Now().Format(time.RFC3339),
		Personas:        s.Personas.List(),
		ActivePersonaID: s.Personas.ActiveID(),
		Config:          s.Config.Get(),
		Memories:        s.Memory.Snapshot(),
		Theme:           s.Theme.Get(),
		CustomEmojis:    s.Emojis.List(),
	}
}

// Save persists the assembled document immediately.
func (s *Sync) Save() bool {
	return s.svc.Save(s.Assemble())
}

// MarkDirty schedules an autosave after the quiet period, replacing any
// pending one. Memory mutations go through here too; the engine itself
// carries no notification hook.
func (s *Sync) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() {
		s.Flush()
	})
}

// Flush cancels any pending autosave and writes now.
func (s *Sync) Flush() bool {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	return s.Save()
}

// Close stops the scheduler and writes one final time.
func (s *Sync) Close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.Save()
}
