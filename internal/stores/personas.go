// Package stores holds the in-memory domain containers and the sync
// layer that persists them as one document with debounced autosave.
package stores

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"pocketpal/internal/model"
)

// RecalledText replaces the body of a soft-deleted message.
const RecalledText = "message recalled"

// Personas holds the persona list and the active selection. A mutex
// guards the state: the autosave scheduler snapshots it from its own
// goroutine. Every mutation notifies the sync layer.
type Personas struct {
	mu       sync.Mutex
	list     []model.Persona
	activeID *string

	now     func() time.Time
	entropy *rand.Rand
	changed func()
}

// NewPersonas creates an empty container.
func NewPersonas() *Personas {
	return &Personas{
		list:    []model.Persona{},
		now:     time.Now,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
		changed: func() {},
	}
}

func (s *Personas) newID(prefix string) string {
	return prefix + "_" + ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

// Add appends a new persona built from the template's name, avatar, and
// prompt content. Returns the generated id.
func (s *Personas) Add(template model.Persona) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID("persona")
	s.list = append(s.list, model.Persona{
		ID:        id,
		Name:      template.Name,
		Avatar:    template.Avatar,
		Content:   template.Content,
		Pinned:    template.Pinned,
		Messages:  []model.Message{},
		CreatedAt: s.now().Format(time.RFC3339),
	})
	s.changed()
	return id
}

// PersonaUpdate holds the editable persona fields; nil fields are left
// unchanged. Messages are edited through the message operations only.
type PersonaUpdate struct {
	Name    *string
	Avatar  *string
	Content *string
	Pinned  *bool
}

// Update edits the persona with the given id.
func (s *Personas) Update(id string, u PersonaUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.find(id)
	if p == nil {
		return false
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Avatar != nil {
		p.Avatar = *u.Avatar
	}
	if u.Content != nil {
		p.Content = *u.Content
	}
	if u.Pinned != nil {
		p.Pinned = *u.Pinned
	}
	s.changed()
	return true
}

// Delete removes the persona; an active selection pointing at it is
// cleared. Core memories referencing the persona are left in place.
func (s *Personas) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.list {
		if s.list[i].ID == id {
			s.list = append(s.list[:i], s.list[i+1:]...)
			if s.activeID != nil && *s.activeID == id {
				s.activeID = nil
			}
			s.changed()
			return true
		}
	}
	return false
}

// Clone duplicates a persona with a fresh id, copied messages under new
// ids, and a marked name.
func (s *Personas) Clone(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	source := s.find(id)
	if source == nil {
		return "", false
	}

	clone := *source
	clone.ID = s.newID("persona")
	clone.Name = source.Name + " (copy)"
	clone.IsDefault = false
	clone.Messages = make([]model.Message, len(source.Messages))
	for i, m := range source.Messages {
		m.ID = s.newID("msg")
		clone.Messages[i] = m
	}

	s.list = append(s.list, clone)
	s.changed()
	return clone.ID, true
}

// SetActive selects a persona; nil clears the selection.
func (s *Personas) SetActive(id *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != nil {
		v := *id
		id = &v
	}
	s.activeID = id
	s.changed()
}

// ActiveID returns the current selection.
func (s *Personas) ActiveID() *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID == nil {
		return nil
	}
	v := *s.activeID
	return &v
}

// Active returns the selected persona, or nil.
func (s *Personas) Active() *model.Persona {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID == nil {
		return nil
	}
	return s.find(*s.activeID)
}

// TogglePin flips the persona's pinned flag.
func (s *Personas) TogglePin(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.find(id)
	if p == nil {
		return false
	}
	p.Pinned = !p.Pinned
	s.changed()
	return true
}

// List returns a copy of the personas in insert order, message slices
// included, so the autosave writer never shares state with a mutator.
func (s *Personas) List() []model.Persona {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Persona, len(s.list))
	for i, p := range s.list {
		msgs := make([]model.Message, len(p.Messages))
		copy(msgs, p.Messages)
		p.Messages = msgs
		out[i] = p
	}
	return out
}

// Get returns the persona with the given id, or nil.
func (s *Personas) Get(id string) *model.Persona {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(id)
}

// AddMessage appends a chat line to the persona, assigning an id and
// stamping the persona's last-message time. Returns the message id.
func (s *Personas) AddMessage(personaID string, m model.Message) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.find(personaID)
	if p == nil {
		return "", false
	}
	m.ID = s.newID("msg")
	p.Messages = append(p.Messages, m)
	p.LastMessageTime = s.now().Format(time.RFC3339)
	s.changed()
	return m.ID, true
}

// UpdateMessage edits a message in place through fn.
func (s *Personas) UpdateMessage(personaID, messageID string, fn func(*model.Message)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.find(personaID)
	if p == nil {
		return false
	}
	for i := range p.Messages {
		if p.Messages[i].ID == messageID {
			fn(&p.Messages[i])
			s.changed()
			return true
		}
	}
	return false
}

// DeleteMessage removes a message outright.
func (s *Personas) DeleteMessage(personaID, messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.find(personaID)
	if p == nil {
		return false
	}
	for i := range p.Messages {
		if p.Messages[i].ID == messageID {
			p.Messages = append(p.Messages[:i], p.Messages[i+1:]...)
			s.changed()
			return true
		}
	}
	return false
}

// ClearMessages empties the persona's history.
func (s *Personas) ClearMessages(personaID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.find(personaID)
	if p == nil {
		return false
	}
	p.Messages = []model.Message{}
	s.changed()
	return true
}

// RecallMessage soft-deletes a message: the line stays in the history
// but its text is replaced and it is flagged as recalled.
func (s *Personas) RecallMessage(personaID, messageID string) bool {
	return s.UpdateMessage(personaID, messageID, func(m *model.Message) {
		m.IsRecalled = true
		m.Text = RecalledText
	})
}

// Set replaces the container's state during sync fan-out.
func (s *Personas) Set(list []model.Persona, activeID *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if list == nil {
		list = []model.Persona{}
	}
	s.list = list
	s.activeID = activeID
}

func (s *Personas) find(id string) *model.Persona {
	for i := range s.list {
		if s.list[i].ID == id {
			return &s.list[i]
		}
	}
	return nil
}
