package data

import (
	"fmt"

	"pocketpal/internal/model"
)

// Stats computes storage statistics live from the current document; the
// byte size reflects the raw stored payload, not a re-serialization.
func (s *Service) Stats() model.StorageStats {
	doc := s.Load()

	size := 0
	if raw, ok := s.kv.Get(model.StorageKey); ok {
		size = len(raw)
	}

	return model.StorageStats{
		TotalSize:    size,
		PersonaCount: len(doc.Personas),
		MessageCount: doc.MessageCount(),
		MemoryCount:  len(doc.Memories.Core),
		EmojiCount:   len(doc.CustomEmojis),
		Version:      doc.Version,
	}
}

// FormatSize renders a byte count for display.
func FormatSize(bytes int) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%.2f MB", float64(bytes)/(1024*1024))
	}
}
