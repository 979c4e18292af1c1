// Package bundle imports legacy backup bundles: a zip archive or
// directory tree carrying a config file, a prompts/ subtree of persona
// definitions, and a CoreMemory/ subtree of memory files.
package bundle

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"pocketpal/internal/data"
	"pocketpal/internal/model"
)

// Options controls a bundle import.
type Options struct {
	// Merge folds the bundle into the current document instead of
	// replacing it; personas dedup by case-insensitive name. A merge
	// leaves the current configuration alone unless MergeConfig is set.
	Merge bool

	// MergeConfig lays the bundle's config keys over the current
	// configuration during a merge. Only assignments actually present
	// in the file are applied.
	MergeConfig bool

	// SkipConfig leaves the current configuration untouched in replace
	// mode (the document keeps defaults).
	SkipConfig bool

	// SkipMemories drops the bundle's memory files.
	SkipMemories bool
}

// Importer parses legacy bundles and hands the result to the persistence
// service.
type Importer struct {
	svc *data.Service
	log *slog.Logger
	now func() time.Time
}

// NewImporter creates an Importer over svc. log may be nil.
func NewImporter(svc *data.Service, log *slog.Logger) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{svc: svc, log: log, now: time.Now}
}

// entry is one file found in the bundle, path normalized to forward
// slashes.
type entry struct {
	path    string
	modTime time.Time
	data    []byte
}

// ImportZip imports a legacy bundle from a zip archive on disk.
func (im *Importer) ImportZip(path string, opts Options) model.ImportResult {
	r, err := zip.OpenReader(path)
	if err != nil {
		return model.ImportResult{Success: false, Message: "cannot open archive", Err: err.Error()}
	}
	defer r.Close()

	var entries []entry
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			im.log.Warn("bundle: skipping unreadable archive entry", "path", f.Name, "error", err)
			continue
		}
		buf, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			im.log.Warn("bundle: skipping unreadable archive entry", "path", f.Name, "error", err)
			continue
		}
		entries = append(entries, entry{
			path:    strings.ReplaceAll(f.Name, `\`, "/"),
			modTime: f.Modified,
			data:    buf,
		})
	}

	return im.importEntries(entries, opts)
}

// ImportDir imports a legacy bundle from an unpacked directory tree.
func (im *Importer) ImportDir(root string, opts Options) model.ImportResult {
	var entries []entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		buf, err := os.ReadFile(path)
		if err != nil {
			im.log.Warn("bundle: skipping unreadable file", "path", path, "error", err)
			return nil
		}
		info, err := d.Info()
		modTime := im.now()
		if err == nil {
			modTime = info.ModTime()
		}
		entries = append(entries, entry{
			path:    filepath.ToSlash(rel),
			modTime: modTime,
			data:    buf,
		})
		return nil
	})
	if err != nil {
		return model.ImportResult{Success: false, Message: "cannot read directory", Err: err.Error()}
	}

	return im.importEntries(entries, opts)
}

type rawMemory struct {
	personaName string
	content     string
}

func (im *Importer) importEntries(entries []entry, opts Options) model.ImportResult {
	cfg := im.findConfig(entries)
	personas := im.parsePersonas(entries)
	memories := im.parseMemories(entries)

	doc := im.build(cfg, personas, memories, opts)

	if opts.Merge {
		return im.merge(doc, cfg, opts)
	}

	im.svc.Save(doc)
	return model.ImportResult{
		Success: true,
		Message: fmt.Sprintf("import complete: %d personas, %d core memories", len(doc.Personas), len(memories)),
		Stats: &model.ImportStats{
			PersonaCount: len(doc.Personas),
			MessageCount: doc.MessageCount(),
			MemoryCount:  len(memories),
		},
	}
}

// findConfig locates the config file, ignoring cache artifacts; the
// shortest path wins when several exist.
func (im *Importer) findConfig(entries []entry) legacyConfig {
	var candidates []entry
	for _, e := range entries {
		lower := strings.ToLower(e.path)
		if strings.HasSuffix(lower, "config.py") && !strings.Contains(lower, "__pycache__") {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		im.log.Warn("bundle: no config file found")
		return parseConfig("")
	}
	sort.Slice(candidates, func(i, j int) bool {
		return strings.Count(candidates[i].path, "/") < strings.Count(candidates[j].path, "/")
	})
	return parseConfig(string(candidates[0].data))
}

// parsePersonas turns each markdown file under prompts/ into a fresh
// persona with an empty message history.
func (im *Importer) parsePersonas(entries []entry) []model.Persona {
	var personas []model.Persona
	for _, e := range entries {
		lower := strings.ToLower(e.path)
		inPrompts := strings.Contains(lower, "/prompts/") || strings.HasPrefix(lower, "prompts/")
		if !inPrompts || !strings.HasSuffix(lower, ".md") {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(e.path), ".md")
		content := string(e.data)
		if name == "" || content == "" {
			continue
		}
		personas = append(personas, model.Persona{
			ID:        "persona_imported_" + uuid.NewString(),
			Name:      name,
			Content:   content,
			Messages:  []model.Message{},
			CreatedAt: e.modTime.Format(time.RFC3339),
		})
	}
	return personas
}

// parseMemories reads the CoreMemory/ subtree. JSON files may hold an
// array or a single object with the memory text under summary, content,
// or text; anything else is treated as plain text, whole file = one
// memory.
func (im *Importer) parseMemories(entries []entry) []rawMemory {
	var memories []rawMemory
	for _, e := range entries {
		lower := strings.ToLower(e.path)
		if !strings.Contains(lower, "corememory/") {
			continue
		}
		base := filepath.Base(e.path)
		if strings.HasPrefix(base, ".") {
			continue
		}

		if strings.HasSuffix(lower, ".json") {
			name := memoryPersonaName(base)
			memories = append(memories, im.parseJSONMemories(name, e.data)...)
			continue
		}

		name := strings.TrimSuffix(base, filepath.Ext(base))
		content := strings.TrimSpace(string(e.data))
		if name != "" && content != "" {
			memories = append(memories, rawMemory{personaName: name, content: content})
		}
	}
	return memories
}

// memoryPersonaName derives the persona name from a JSON memory
// filename like "bai_roleone_core_memory.json".
func memoryPersonaName(filename string) string {
	stem := strings.TrimSuffix(filename, "_core_memory.json")
	stem = strings.TrimSuffix(stem, ".json")
	parts := strings.Split(stem, "_")
	if last := parts[len(parts)-1]; last != "" {
		return last
	}
	return parts[0]
}

func (im *Importer) parseJSONMemories(personaName string, raw []byte) []rawMemory {
	var memories []rawMemory

	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err == nil {
		for _, item := range items {
			if s := summaryField(item); s != "" {
				memories = append(memories, rawMemory{personaName: personaName, content: s})
			}
		}
		return memories
	}

	var single map[string]any
	if err := json.Unmarshal(raw, &single); err != nil {
		im.log.Warn("bundle: unparseable memory file", "persona", personaName)
		return nil
	}
	content := summaryField(single)
	if content == "" {
		buf, _ := json.Marshal(single)
		content = string(buf)
	}
	if personaName != "" && content != "" {
		memories = append(memories, rawMemory{personaName: personaName, content: content})
	}
	return memories
}

func summaryField(item map[string]any) string {
	for _, key := range []string{"summary", "content", "text"} {
		if s, ok := item[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// build assembles a replacement document from the parsed bundle pieces.
// Memories attach to personas by case-insensitive name match, falling
// back to the first persona.
func (im *Importer) build(cfg legacyConfig, personas []model.Persona, memories []rawMemory, opts Options) model.AppData {
	finalPersonas := personas
	if len(finalPersonas) == 0 {
		finalPersonas = model.DefaultPersonas()
	}

	config := model.DefaultConfig()
	if !opts.SkipConfig {
		config = cfg.toConfig()
	}

	core := []model.CoreMemory{}
	if !opts.SkipMemories {
		now := im.now().Format(time.RFC3339)
		for _, mem := range memories {
			core = append(core, model.CoreMemory{
				ID:         "mem_imported_" + uuid.NewString(),
				PersonaID:  personaByName(finalPersonas, mem.personaName),
				Content:    mem.content,
				Importance: 3,
				CreatedAt:  now,
				Category:   model.CategoryOther,
			})
		}
	}

	var active *string
	if len(finalPersonas) > 0 {
		active = &finalPersonas[0].ID
	}

	return model.AppData{
		Version:         model.CurrentVersion,
		LastUpdated:     im.now().Format(time.RFC3339),
		Personas:        finalPersonas,
		ActivePersonaID: active,
		Config:          config,
		Memories:        model.AppMemories{Core: core, Temp: map[string]model.TempMemory{}},
		Theme:           model.DefaultTheme,
		CustomEmojis:    []model.EmojiItem{},
	}
}

func personaByName(personas []model.Persona, name string) string {
	for _, p := range personas {
		if strings.EqualFold(p.Name, name) {
			return p.ID
		}
	}
	if len(personas) > 0 {
		return personas[0].ID
	}
	return ""
}

// merge folds the assembled bundle document into the current one. The
// current configuration survives untouched unless MergeConfig asks for
// the bundle's keys to be laid over it.
func (im *Importer) merge(imported model.AppData, cfg legacyConfig, opts Options) model.ImportResult {
	current := im.svc.Load()

	existing := make(map[string]bool, len(current.Personas))
	for _, p := range current.Personas {
		existing[strings.ToLower(p.Name)] = true
	}

	personaCount := 0
	for _, p := range imported.Personas {
		if !existing[strings.ToLower(p.Name)] {
			current.Personas = append(current.Personas, p)
			personaCount++
		}
	}

	if opts.MergeConfig && !opts.SkipConfig {
		cfg.mergeInto(&current.Config)
	}

	memoryCount := len(imported.Memories.Core)
	current.Memories.Core = append(current.Memories.Core, imported.Memories.Core...)

	im.svc.Save(current)
	return model.ImportResult{
		Success: true,
		Message: fmt.Sprintf("merge complete: %d new personas, %d memories", personaCount, memoryCount),
		Stats: &model.ImportStats{
			PersonaCount: personaCount,
			MemoryCount:  memoryCount,
		},
	}
}
