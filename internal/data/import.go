package data

import (
	"encoding/json"
	"fmt"
	"strings"

	"pocketpal/internal/migrate"
	"pocketpal/internal/model"
	"pocketpal/internal/validate"
)

// Stable error codes carried on failed imports.
const (
	ErrCodeParse      = "JSON_PARSE_ERROR"
	ErrCodeValidation = "VALIDATION_ERROR"
)

// ImportJSON replaces the stored document with the parsed input. Invalid
// documents get one migration attempt before being rejected; nothing is
// persisted on failure.
func (s *Service) ImportJSON(text string) model.ImportResult {
	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return model.ImportResult{
			Success: false,
			Message: "invalid JSON",
			Err:     ErrCodeParse,
		}
	}

	if result := validate.AppData(parsed); !result.Valid {
		migrated := s.mig.Migrate(parsed, model.CurrentVersion)
		revalidation := validate.AppData(toAny(migrated))
		if !revalidation.Valid {
			head := revalidation.Errors
			if len(head) > 3 {
				head = head[:3]
			}
			return model.ImportResult{
				Success: false,
				Message: fmt.Sprintf("validation failed: %s", strings.Join(head, ", ")),
				Err:     ErrCodeValidation,
			}
		}
		s.Save(migrated)
		return importResult(migrated, "data migrated and imported")
	}

	var doc model.AppData
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return model.ImportResult{
			Success: false,
			Message: "invalid JSON",
			Err:     ErrCodeParse,
		}
	}
	if migrate.NeedsMigration(doc.Version) {
		doc = s.mig.Migrate(parsed, model.CurrentVersion)
	}

	s.Save(doc)
	return importResult(doc, "import successful")
}

// MergeOptions controls ImportJSONMerge.
type MergeOptions struct {
	// Config merges the imported config groups over the current ones.
	// Off by default so a merge never silently replaces API settings.
	Config bool
}

// partialConfig mirrors AppConfig with presence information, so a merge
// only replaces the groups the import actually carries.
type partialConfig struct {
	API          *model.APIConfig          `json:"api"`
	GPT          *model.GPTConfig          `json:"gpt"`
	User         *model.UserInfo           `json:"user"`
	AutoMessage  *model.AutoMessageConfig  `json:"autoMessage"`
	QuietTime    *model.QuietTimeConfig    `json:"quietTime"`
	Vision       *model.VisionConfig       `json:"vision"`
	OnlineSearch *model.OnlineSearchConfig `json:"onlineSearch"`
	Emoji        *model.EmojiConfig        `json:"emoji"`
	PhoneMode    *bool                     `json:"phoneMode"`
}

// ImportJSONMerge folds the imported document into the current one:
// unseen personas are added whole, messages of personas that already
// exist are appended by unseen id, and config groups merge only when
// requested. Memories and emojis are left alone.
func (s *Service) ImportJSONMerge(text string, opts MergeOptions) model.ImportResult {
	var imported struct {
		Personas []model.Persona `json:"personas"`
		Config   *partialConfig  `json:"config"`
	}
	if err := json.Unmarshal([]byte(text), &imported); err != nil {
		return model.ImportResult{
			Success: false,
			Message: "invalid JSON",
			Err:     ErrCodeParse,
		}
	}

	current := s.Load()
	personaCount := 0
	messageCount := 0

	for _, persona := range imported.Personas {
		if persona.ID == "" {
			continue
		}
		// The merged document must stay loadable as-is; a persona
		// without a messages field would persist as null.
		if persona.Messages == nil {
			persona.Messages = []model.Message{}
		}
		existing := current.PersonaByID(persona.ID)
		if existing == nil {
			current.Personas = append(current.Personas, persona)
			personaCount++
			messageCount += len(persona.Messages)
			continue
		}
		seen := make(map[string]bool, len(existing.Messages))
		for _, m := range existing.Messages {
			seen[m.ID] = true
		}
		for _, m := range persona.Messages {
			if !seen[m.ID] {
				existing.Messages = append(existing.Messages, m)
				messageCount++
			}
		}
	}

	if opts.Config && imported.Config != nil {
		mergeConfig(&current.Config, imported.Config)
	}

	s.Save(current)
	return model.ImportResult{
		Success: true,
		Message: fmt.Sprintf("merge complete: %d new personas, %d new messages", personaCount, messageCount),
		Stats: &model.ImportStats{
			PersonaCount: personaCount,
			MessageCount: messageCount,
		},
	}
}

func mergeConfig(dst *model.AppConfig, src *partialConfig) {
	if src.API != nil {
		dst.API = *src.API
	}
	if src.GPT != nil {
		dst.GPT = *src.GPT
	}
	if src.User != nil {
		dst.User = *src.User
	}
	if src.AutoMessage != nil {
		dst.AutoMessage = *src.AutoMessage
	}
	if src.QuietTime != nil {
		dst.QuietTime = *src.QuietTime
	}
	if src.Vision != nil {
		dst.Vision = *src.Vision
	}
	if src.OnlineSearch != nil {
		dst.OnlineSearch = *src.OnlineSearch
	}
	if src.Emoji != nil {
		dst.Emoji = *src.Emoji
	}
	if src.PhoneMode != nil {
		dst.PhoneMode = *src.PhoneMode
	}
}

func importResult(doc model.AppData, message string) model.ImportResult {
	return model.ImportResult{
		Success: true,
		Message: message,
		Stats: &model.ImportStats{
			PersonaCount: len(doc.Personas),
			MessageCount: doc.MessageCount(),
			MemoryCount:  len(doc.Memories.Core),
			EmojiCount:   len(doc.CustomEmojis),
		},
	}
}

// toAny re-decodes a typed document into plain JSON values for the
// validator.
func toAny(doc model.AppData) any {
	buf, err := json.Marshal(doc)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil
	}
	return out
}
