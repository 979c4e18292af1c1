package data

import (
	"encoding/json"
	"fmt"
	"time"

	"pocketpal/internal/model"
)

// ExportJSON serializes the current document with indentation, re-stamping
// version and lastUpdated. Unless includeKeys is set, the three API-key
// fields are emptied in the exported copy; base URLs and everything else
// pass through. The stored document is never mutated.
func (s *Service) ExportJSON(includeKeys bool) string {
	doc := s.Load()
	doc.Version = model.CurrentVersion
	doc.LastUpdated = s.now().Format(time.RFC3339)

	if !includeKeys {
		doc.Config.API.APIKey = ""
		doc.Config.Vision.APIKey = ""
		doc.Config.OnlineSearch.APIKey = ""
	}

	buf, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		s.log.Error("export: encode failed", "error", err)
		return ""
	}
	return string(buf)
}

// ExportFilename returns the dated backup filename.
func (s *Service) ExportFilename() string {
	return fmt.Sprintf("pocketpal-backup-%s.json", s.now().Format("2006-01-02"))
}
