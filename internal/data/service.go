// Package data is the persistence service over the unified document:
// loading with migration and repair, saving, import/export, and stats.
package data

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"pocketpal/internal/migrate"
	"pocketpal/internal/model"
	"pocketpal/internal/storage"
	"pocketpal/internal/validate"
)

// Service owns the storage slot and the migration engine. One Service per
// process; callers serialize access.
type Service struct {
	kv  storage.KV
	mig *migrate.Engine
	log *slog.Logger
	now func() time.Time
}

// NewService creates a Service over kv. log may be nil.
func NewService(kv storage.KV, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	mig := migrate.New(func() map[string]string {
		return migrate.SnapshotLegacy(kv)
	}, log)
	return &Service{
		kv:  kv,
		mig: mig,
		log: log,
		now: time.Now,
	}
}

// Load returns a usable document no matter what the slot holds. A stored
// document is migrated or repaired as needed; with no stored document,
// legacy slots are reconstructed and cleaned up; with nothing at all,
// defaults are synthesized. Every path other than a clean read persists
// its result.
func (s *Service) Load() model.AppData {
	raw, ok := s.kv.Get(model.StorageKey)
	if ok {
		var parsed any
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			s.log.Error("load: stored document is not valid JSON", "error", err)
			return model.DefaultAppData()
		}

		version, _ := versionOf(parsed)
		if migrate.NeedsMigration(version) {
			s.log.Info("load: migrating stored document", "from", version)
			doc := s.mig.Migrate(parsed, model.CurrentVersion)
			s.Save(doc)
			return doc
		}

		if validate.IsValid(parsed) {
			var doc model.AppData
			if err := json.Unmarshal([]byte(raw), &doc); err == nil {
				return doc
			}
		}

		s.log.Warn("load: stored document failed validation, repairing")
		doc := s.mig.Migrate(parsed, model.CurrentVersion)
		s.Save(doc)
		return doc
	}

	if migrate.HasLegacyData(s.kv) {
		s.log.Info("load: reconstructing from legacy slots")
		doc := s.mig.FromLegacy(migrate.SnapshotLegacy(s.kv))
		s.Save(doc)
		s.mig.CleanupLegacy(s.kv)
		return doc
	}

	doc := model.DefaultAppData()
	s.Save(doc)
	return doc
}

// Save writes the document, stamping LastUpdated with the current
// instant. Returns false instead of failing; quota exhaustion is logged
// as its own condition.
func (s *Service) Save(doc model.AppData) bool {
	doc.LastUpdated = s.now().Format(time.RFC3339)

	buf, err := json.Marshal(doc)
	if err != nil {
		s.log.Error("save: encode failed", "error", err)
		return false
	}

	if err := s.kv.Set(model.StorageKey, string(buf)); err != nil {
		if errors.Is(err, storage.ErrQuotaExceeded) {
			s.log.Error("save: storage quota exhausted, export and clear old data", "size", len(buf))
		} else {
			s.log.Error("save: write failed", "error", err)
		}
		return false
	}
	return true
}

// ClearAll deletes the stored document and every legacy slot, then
// persists a fresh default document.
func (s *Service) ClearAll() {
	if err := s.kv.Delete(model.StorageKey); err != nil {
		s.log.Error("clear: delete failed", "error", err)
	}
	s.mig.CleanupLegacy(s.kv)
	s.Save(model.DefaultAppData())
	s.log.Info("clear: all data reset to defaults")
}

// versionOf extracts the version field from a decoded document.
func versionOf(parsed any) (string, bool) {
	obj, ok := parsed.(map[string]any)
	if !ok {
		return "", false
	}
	v, ok := obj["version"].(string)
	return v, ok
}
