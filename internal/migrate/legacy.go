package migrate

import (
	"encoding/json"
	"strconv"
	"time"

	"pocketpal/internal/model"
	"pocketpal/internal/storage"
)

// Shapes of the six pre-unification slots. Each slot may be wrapped in a
// {"state": ...} persistence envelope.

type legacyPersonaSlot struct {
	Personas        []model.Persona `json:"personas"`
	ActivePersonaID *string         `json:"activePersonaId"`
}

type legacyConfigSlot struct {
	GPTConfig          *model.GPTConfig          `json:"gptConfig"`
	APIConfig          *model.APIConfig          `json:"apiConfig"`
	UserInfo           *model.UserInfo           `json:"userInfo"`
	AutoMessageConfig  *model.AutoMessageConfig  `json:"autoMessageConfig"`
	QuietTimeConfig    *model.QuietTimeConfig    `json:"quietTimeConfig"`
	VisionConfig       *model.VisionConfig       `json:"visionConfig"`
	OnlineSearchConfig *model.OnlineSearchConfig `json:"onlineSearchConfig"`
	EmojiConfig        *model.EmojiConfig        `json:"emojiConfig"`
	PhoneMode          bool                      `json:"phoneMode"`
}

type legacyCoreMemory struct {
	ID         string `json:"id"`
	ChatID     int    `json:"chatId"`
	Content    string `json:"content"`
	Importance int    `json:"importance"`
	CreatedAt  string `json:"createdAt"`
	Category   string `json:"category"`
}

type legacyTempMemory struct {
	ChatID      int             `json:"chatId"`
	Logs        []model.TempLog `json:"logs"`
	LastUpdated string          `json:"lastUpdated"`
}

type legacyMemorySlot struct {
	CoreMemories []legacyCoreMemory          `json:"coreMemories"`
	TempMemories map[string]legacyTempMemory `json:"tempMemories"`
}

type legacyThemeSlot struct {
	CurrentTheme string `json:"currentTheme"`
}

type legacyEmojiSlot struct {
	Emojis []model.EmojiItem `json:"emojis"`
}

type legacyChat struct {
	UUID      int             `json:"uuid"`
	Title     string          `json:"title"`
	Messages  []model.Message `json:"messages"`
	PersonaID string          `json:"personaId"`
}

type legacyChatSlot struct {
	History []legacyChat `json:"history"`
}

// FromLegacy reconstructs the unified document from the legacy slot
// payloads. Every slot is independently optional; a missing or corrupt
// slot contributes nothing. The memory chatId-to-persona association is
// best-effort: direct string match on persona id first, then array index,
// then the first persona.
func (e *Engine) FromLegacy(slots map[string]string) model.AppData {
	result := model.AppData{
		Version:         model.CurrentVersion,
		LastUpdated:     e.now().Format(time.RFC3339),
		Personas:        []model.Persona{},
		ActivePersonaID: nil,
		Config:          model.DefaultConfig(),
		Memories:        model.AppMemories{Core: []model.CoreMemory{}, Temp: map[string]model.TempMemory{}},
		Theme:           model.DefaultTheme,
		CustomEmojis:    []model.EmojiItem{},
	}

	var personaSlot legacyPersonaSlot
	if readSlot(slots, "pocketpal-persona-storage", &personaSlot) {
		if personaSlot.Personas != nil {
			result.Personas = personaSlot.Personas
		}
		result.ActivePersonaID = personaSlot.ActivePersonaID
	}

	var configSlot legacyConfigSlot
	if readSlot(slots, "pocketpal-config-storage", &configSlot) {
		if configSlot.APIConfig != nil {
			result.Config.API = *configSlot.APIConfig
		}
		if configSlot.GPTConfig != nil {
			result.Config.GPT = *configSlot.GPTConfig
		}
		if configSlot.UserInfo != nil {
			result.Config.User = *configSlot.UserInfo
		}
		if configSlot.AutoMessageConfig != nil {
			result.Config.AutoMessage = *configSlot.AutoMessageConfig
		}
		if configSlot.QuietTimeConfig != nil {
			result.Config.QuietTime = *configSlot.QuietTimeConfig
		}
		if configSlot.VisionConfig != nil {
			result.Config.Vision = *configSlot.VisionConfig
		}
		if configSlot.OnlineSearchConfig != nil {
			result.Config.OnlineSearch = *configSlot.OnlineSearchConfig
		}
		if configSlot.EmojiConfig != nil {
			result.Config.Emoji = *configSlot.EmojiConfig
		}
		result.Config.PhoneMode = configSlot.PhoneMode
	}

	var memorySlot legacyMemorySlot
	if readSlot(slots, "pocketpal-memory-storage", &memorySlot) {
		for _, mem := range memorySlot.CoreMemories {
			result.Memories.Core = append(result.Memories.Core, model.CoreMemory{
				ID:         mem.ID,
				PersonaID:  resolveChatID(result.Personas, mem.ChatID),
				Content:    mem.Content,
				Importance: mem.Importance,
				CreatedAt:  mem.CreatedAt,
				Category:   categoryOr(mem.Category),
			})
		}
		for _, temp := range memorySlot.TempMemories {
			personaID := resolveChatID(result.Personas, temp.ChatID)
			result.Memories.Temp[personaID] = model.TempMemory{
				PersonaID:   personaID,
				Logs:        temp.Logs,
				LastUpdated: temp.LastUpdated,
			}
		}
	}

	var themeSlot legacyThemeSlot
	if readSlot(slots, "pocketpal-theme-storage", &themeSlot) && themeSlot.CurrentTheme != "" {
		result.Theme = themeSlot.CurrentTheme
	}

	var emojiSlot legacyEmojiSlot
	if readSlot(slots, "pocketpal-emoji-storage", &emojiSlot) && emojiSlot.Emojis != nil {
		result.CustomEmojis = emojiSlot.Emojis
	}

	// Old per-chat histories merge into their bound persona, skipping
	// message ids that already exist there.
	var chatSlot legacyChatSlot
	if readSlot(slots, "pocketpal-chat-storage", &chatSlot) {
		for _, chat := range chatSlot.History {
			if chat.PersonaID == "" {
				continue
			}
			persona := findPersona(result.Personas, chat.PersonaID)
			if persona == nil {
				continue
			}
			seen := make(map[string]bool, len(persona.Messages))
			for _, m := range persona.Messages {
				seen[m.ID] = true
			}
			for _, m := range chat.Messages {
				if !seen[m.ID] {
					persona.Messages = append(persona.Messages, m)
				}
			}
		}
	}

	return result
}

// resolveChatID maps a legacy numeric chat key to a persona id: direct
// string match wins, then positional index, then the first persona.
func resolveChatID(personas []model.Persona, chatID int) string {
	key := strconv.Itoa(chatID)
	for _, p := range personas {
		if p.ID == key {
			return p.ID
		}
	}
	if chatID >= 0 && chatID < len(personas) {
		return personas[chatID].ID
	}
	if len(personas) > 0 {
		return personas[0].ID
	}
	return "unknown"
}

func findPersona(personas []model.Persona, id string) *model.Persona {
	for i := range personas {
		if personas[i].ID == id {
			return &personas[i]
		}
	}
	return nil
}

// readSlot decodes one legacy slot payload into dst, unwrapping the
// {"state": ...} envelope when present. Returns false for absent or
// corrupt slots.
func readSlot(slots map[string]string, key string, dst any) bool {
	raw, ok := slots[key]
	if !ok || raw == "" {
		return false
	}

	var envelope struct {
		State json.RawMessage `json:"state"`
	}
	payload := []byte(raw)
	if err := json.Unmarshal(payload, &envelope); err == nil && len(envelope.State) > 0 {
		payload = envelope.State
	}

	return json.Unmarshal(payload, dst) == nil
}

// HasLegacyData reports whether any legacy slot is present in the store.
func HasLegacyData(kv storage.KV) bool {
	for _, key := range model.LegacyStorageKeys {
		if _, ok := kv.Get(key); ok {
			return true
		}
	}
	return false
}

// SnapshotLegacy reads the present legacy slots out of the store.
func SnapshotLegacy(kv storage.KV) map[string]string {
	slots := make(map[string]string)
	for _, key := range model.LegacyStorageKeys {
		if v, ok := kv.Get(key); ok {
			slots[key] = v
		}
	}
	return slots
}

// CleanupLegacy deletes every legacy slot. Idempotent; failures are
// logged and do not stop the sweep.
func (e *Engine) CleanupLegacy(kv storage.KV) {
	for _, key := range model.LegacyStorageKeys {
		if err := kv.Delete(key); err != nil {
			e.log.Warn("cleanup: delete legacy slot failed", "key", key, "error", err)
			continue
		}
		e.log.Info("cleanup: removed legacy slot", "key", key)
	}
}
