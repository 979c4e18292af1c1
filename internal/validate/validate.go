// Package validate structurally checks arbitrary decoded JSON against the
// AppData document shape. It is pure: no side effects, all defects
// collected, each one naming the offending path.
package validate

import (
	"fmt"
	"math"

	"pocketpal/internal/model"
)

// requiredConfigKeys are the sub-config groups every document must carry.
var requiredConfigKeys = []string{
	"api", "gpt", "user", "autoMessage", "quietTime", "vision", "onlineSearch", "emoji",
}

// AppData walks v and reports every structural defect. A result with zero
// errors is valid.
func AppData(v any) model.ValidationResult {
	obj, ok := v.(map[string]any)
	if !ok || obj == nil {
		return model.ValidationResult{Valid: false, Errors: []string{"data must be an object"}}
	}

	var errs []string

	if !isString(obj["version"]) {
		errs = append(errs, "version: missing or not a string")
	}
	if !isString(obj["lastUpdated"]) {
		errs = append(errs, "lastUpdated: missing or not a string")
	}

	if personas, ok := obj["personas"].([]any); ok {
		for i, p := range personas {
			errs = append(errs, persona(p, i)...)
		}
	} else {
		errs = append(errs, "personas: missing or not an array")
	}

	if id, present := obj["activePersonaId"]; !present || (id != nil && !isString(id)) {
		errs = append(errs, "activePersonaId: must be a string or null")
	}

	if cfg, ok := obj["config"].(map[string]any); ok {
		errs = append(errs, config(cfg)...)
	} else {
		errs = append(errs, "config: missing or not an object")
	}

	if mem, ok := obj["memories"].(map[string]any); ok {
		errs = append(errs, memories(mem)...)
	} else {
		errs = append(errs, "memories: missing or not an object")
	}

	if !isString(obj["theme"]) {
		errs = append(errs, "theme: missing or not a string")
	}

	if emojis, ok := obj["customEmojis"].([]any); ok {
		for i, e := range emojis {
			errs = append(errs, emojiItem(e, i)...)
		}
	} else {
		errs = append(errs, "customEmojis: missing or not an array")
	}

	return model.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// IsValid reports whether v passes AppData with zero errors.
func IsValid(v any) bool {
	return AppData(v).Valid
}

func persona(v any, index int) []string {
	prefix := fmt.Sprintf("personas[%d]", index)
	obj, ok := v.(map[string]any)
	if !ok {
		return []string{prefix + ": must be an object"}
	}

	var errs []string
	if !isNonEmptyString(obj["id"]) {
		errs = append(errs, prefix+".id: must be a non-empty string")
	}
	if !isString(obj["name"]) {
		errs = append(errs, prefix+".name: must be a string")
	}
	if !isString(obj["content"]) {
		errs = append(errs, prefix+".content: must be a string")
	}
	if _, ok := obj["messages"].([]any); !ok {
		errs = append(errs, prefix+".messages: must be an array")
	}
	return errs
}

func config(cfg map[string]any) []string {
	var errs []string
	for _, key := range requiredConfigKeys {
		if _, ok := cfg[key].(map[string]any); !ok {
			errs = append(errs, "config."+key+": missing or not an object")
		}
	}
	if pm, present := cfg["phoneMode"]; present {
		if _, ok := pm.(bool); !ok {
			errs = append(errs, "config.phoneMode: must be a boolean")
		}
	}
	return errs
}

func memories(mem map[string]any) []string {
	var errs []string
	if core, ok := mem["core"].([]any); ok {
		for i, m := range core {
			errs = append(errs, coreMemory(m, i)...)
		}
	} else {
		errs = append(errs, "memories.core: must be an array")
	}
	if _, ok := mem["temp"].(map[string]any); !ok {
		errs = append(errs, "memories.temp: must be an object")
	}
	return errs
}

func coreMemory(v any, index int) []string {
	prefix := fmt.Sprintf("memories.core[%d]", index)
	obj, ok := v.(map[string]any)
	if !ok {
		return []string{prefix + ": must be an object"}
	}

	var errs []string
	if !isNonEmptyString(obj["id"]) {
		errs = append(errs, prefix+".id: must be a non-empty string")
	}
	if !isNonEmptyString(obj["personaId"]) {
		errs = append(errs, prefix+".personaId: must be a non-empty string")
	}
	if !isString(obj["content"]) {
		errs = append(errs, prefix+".content: must be a string")
	}
	if !isImportance(obj["importance"]) {
		errs = append(errs, prefix+".importance: must be an integer between 1 and 5")
	}
	return errs
}

func emojiItem(v any, index int) []string {
	prefix := fmt.Sprintf("customEmojis[%d]", index)
	obj, ok := v.(map[string]any)
	if !ok {
		return []string{prefix + ": must be an object"}
	}

	var errs []string
	if !isNonEmptyString(obj["id"]) {
		errs = append(errs, prefix+".id: must be a non-empty string")
	}
	if !isString(obj["name"]) {
		errs = append(errs, prefix+".name: must be a string")
	}
	if !isString(obj["url"]) {
		errs = append(errs, prefix+".url: must be a string")
	}
	return errs
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func isNonEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && s != ""
}

// isImportance accepts JSON numbers that are whole and within [1,5].
func isImportance(v any) bool {
	f, ok := v.(float64)
	if !ok {
		return false
	}
	return f == math.Trunc(f) && f >= 1 && f <= 5
}
