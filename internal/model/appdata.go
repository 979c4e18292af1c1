// Package model defines the unified application document and its sub-entities.
package model

// CurrentVersion is the schema version written by this build.
const CurrentVersion = "2.0.0"

// StorageKey is the storage slot holding the unified document.
const StorageKey = "pocketpal-data"

// LegacyStorageKeys are the pre-unification slots, one per domain store.
// They are read-only inputs to migration and deleted after a successful
// reconstruction.
var LegacyStorageKeys = []string{
	"pocketpal-chat-storage",
	"pocketpal-config-storage",
	"pocketpal-persona-storage",
	"pocketpal-memory-storage",
	"pocketpal-theme-storage",
	"pocketpal-emoji-storage",
}

// AppData is the root document. Everything the application persists lives
// under this one value.
type AppData struct {
	Version         string      `json:"version"`
	LastUpdated     string      `json:"lastUpdated"`
	Personas        []Persona   `json:"personas"`
	ActivePersonaID *string     `json:"activePersonaId"`
	Config          AppConfig   `json:"config"`
	Memories        AppMemories `json:"memories"`
	Theme           string      `json:"theme"`
	CustomEmojis    []EmojiItem `json:"customEmojis"`
}

// Persona is a named AI character plus its own message history. The persona
// is the unit of conversation; there is no separate chat/session entity.
type Persona struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Avatar          string    `json:"avatar,omitempty"`
	Content         string    `json:"content"`
	IsDefault       bool      `json:"isDefault,omitempty"`
	Pinned          bool      `json:"pinned,omitempty"`
	Messages        []Message `json:"messages"`
	LastMessageTime string    `json:"lastMessageTime,omitempty"`
	CreatedAt       string    `json:"createdAt,omitempty"`
}

// Message is a single chat line. DateTime is a locale-formatted string
// preserved as authored, not necessarily ISO. Inversion is true for lines
// the end user wrote and false for persona replies.
type Message struct {
	ID              string  `json:"id"`
	Text            string  `json:"text"`
	Inversion       bool    `json:"inversion"`
	DateTime        string  `json:"dateTime"`
	Loading         bool    `json:"loading,omitempty"`
	Error           bool    `json:"error,omitempty"`
	IsRecalled      bool    `json:"isRecalled,omitempty"`
	IsTickle        bool    `json:"isTickle,omitempty"`
	IsMemoryDivider bool    `json:"isMemoryDivider,omitempty"`
	Organized       bool    `json:"organized,omitempty"`
	Image           string  `json:"image,omitempty"`
	Audio           string  `json:"audio,omitempty"`
	AudioDuration   float64 `json:"audioDuration,omitempty"`
}

// Memory categories. Unknown categories decay to CategoryOther during
// migration and import.
const (
	CategoryUserInfo   = "user_info"
	CategoryEvent      = "event"
	CategoryPreference = "preference"
	CategoryOther      = "other"
)

// ValidCategories are the allowed core-memory categories.
var ValidCategories = map[string]bool{
	CategoryUserInfo:   true,
	CategoryEvent:      true,
	CategoryPreference: true,
	CategoryOther:      true,
}

// CoreMemory is a durable, scored summary fact tied to a persona.
// PersonaID should reference an existing persona; deletion does not
// cascade, so stale references can linger.
type CoreMemory struct {
	ID         string `json:"id"`
	PersonaID  string `json:"personaId"`
	Content    string `json:"content"`
	Importance int    `json:"importance"`
	CreatedAt  string `json:"createdAt"`
	Category   string `json:"category"`
}

// TempLog is one raw dialogue line awaiting summarization.
type TempLog struct {
	Timestamp string `json:"timestamp"`
	Role      string `json:"role"` // "user" or "ai"
	Content   string `json:"content"`
}

// TempMemory is the rolling per-persona scratch buffer consumed by the
// memory-organization workflow.
type TempMemory struct {
	PersonaID   string    `json:"personaId"`
	Logs        []TempLog `json:"logs"`
	LastUpdated string    `json:"lastUpdated"`
}

// AppMemories groups the memory collections. Temp is keyed by persona id.
type AppMemories struct {
	Core []CoreMemory          `json:"core"`
	Temp map[string]TempMemory `json:"temp"`
}

// EmojiItem is a custom emoji the user has collected. URL may be an
// inline data URI.
type EmojiItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Category  string `json:"category"`
	CreatedAt string `json:"createdAt"`
}

// ValidationResult is the validator's verdict: zero errors means valid.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ImportStats summarizes what an import brought in.
type ImportStats struct {
	PersonaCount int `json:"personaCount"`
	MessageCount int `json:"messageCount"`
	MemoryCount  int `json:"memoryCount"`
	EmojiCount   int `json:"emojiCount"`
}

// ImportResult is the outcome of any import operation. Err carries a
// stable machine-readable code on failure, never a stack trace.
type ImportResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Stats   *ImportStats `json:"stats,omitempty"`
	Err     string       `json:"error,omitempty"`
}

// StorageStats is computed live from the currently stored document.
type StorageStats struct {
	TotalSize    int    `json:"totalSize"`
	PersonaCount int    `json:"personaCount"`
	MessageCount int    `json:"messageCount"`
	MemoryCount  int    `json:"memoryCount"`
	EmojiCount   int    `json:"emojiCount"`
	Version      string `json:"version"`
}

// MessageCount sums message counts across all personas.
func (d *AppData) MessageCount() int {
	n := 0
	for _, p := range d.Personas {
		n += len(p.Messages)
	}
	return n
}

// PersonaByID returns the persona with the given id, or nil.
func (d *AppData) PersonaByID(id string) *Persona {
	for i := range d.Personas {
		if d.Personas[i].ID == id {
			return &d.Personas[i]
		}
	}
	return nil
}
