package stores

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"pocketpal/internal/model"
)

// Config holds the live configuration groups.
type Config struct {
	mu      sync.Mutex
	cfg     model.AppConfig
	changed func()
}

func NewConfig() *Config {
	return &Config{cfg: model.DefaultConfig(), changed: func() {}}
}

func (s *Config) Get() model.AppConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Update edits the configuration through fn.
func (s *Config) Update(fn func(*model.AppConfig)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.cfg)
	s.changed()
}

// Set replaces the configuration during sync fan-out.
func (s *Config) Set(cfg model.AppConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// Theme holds the selected theme name.
type Theme struct {
	mu      sync.Mutex
	name    string
	changed func()
}

func NewTheme() *Theme {
	return &Theme{name: model.DefaultTheme, changed: func() {}}
}

func (s *Theme) Get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *Theme) SetTheme(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
	s.changed()
}

// Set replaces the theme during sync fan-out.
func (s *Theme) Set(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" {
		name = model.DefaultTheme
	}
	s.name = name
}

// Emojis holds the custom emoji collection.
type Emojis struct {
	mu      sync.Mutex
	list    []model.EmojiItem
	now     func() time.Time
	entropy *rand.Rand
	changed func()
}

func NewEmojis() *Emojis {
	return &Emojis{
		list:    []model.EmojiItem{},
		now:     time.Now,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
		changed: func() {},
	}
}

// Add appends an emoji, assigning id and creation time. Returns the id.
func (s *Emojis) Add(name, url, category string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := "emoji_" + ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
	s.list = append(s.list, model.EmojiItem{
		ID:        id,
		Name:      name,
		URL:       url,
		Category:  category,
		CreatedAt: s.now().Format(time.RFC3339),
	})
	s.changed()
	return id
}

func (s *Emojis) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.list {
		if s.list[i].ID == id {
			s.list = append(s.list[:i], s.list[i+1:]...)
			s.changed()
			return true
		}
	}
	return false
}

// List returns a copy of the collection, insert order preserved.
func (s *Emojis) List() []model.EmojiItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.EmojiItem, len(s.list))
	copy(out, s.list)
	return out
}

// ByCategory filters the collection.
func (s *Emojis) ByCategory(category string) []model.EmojiItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byCategory(category)
}

func (s *Emojis) byCategory(category string) []model.EmojiItem {
	var out []model.EmojiItem
	for _, e := range s.list {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

// Random picks one emoji, optionally limited to a category. Returns nil
// when nothing matches.
func (s *Emojis) Random(category string) *model.EmojiItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool := s.list
	if category != "" {
		pool = s.byCategory(category)
	}
	if len(pool) == 0 {
		return nil
	}
	pick := pool[s.entropy.Intn(len(pool))]
	return &pick
}

// Clear drops every emoji.
func (s *Emojis) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = []model.EmojiItem{}
	s.changed()
}

// Set replaces the collection during sync fan-out.
func (s *Emojis) Set(list []model.EmojiItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if list == nil {
		list = []model.EmojiItem{}
	}
	s.list = list
}
