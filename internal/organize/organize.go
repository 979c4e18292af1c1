package organize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"pocketpal/internal/memory"
	"pocketpal/internal/model"
)

// DefaultOrganizeThreshold is the message count between automatic
// organization runs.
const DefaultOrganizeThreshold = 20

// ErrNoLogs is returned by Run when the persona has nothing buffered.
var ErrNoLogs = errors.New("organize: no temp logs to summarize")

// Verdict is the parsed organization reply.
type Verdict struct {
	Summary    string
	Importance int
	Category   string
}

// Organizer drives the summarize-and-store workflow over a completer.
type Organizer struct {
	completer ChatCompleter
	log       *slog.Logger
}

// New creates an Organizer. log may be nil.
func New(completer ChatCompleter, log *slog.Logger) *Organizer {
	if log == nil {
		log = slog.Default()
	}
	return &Organizer{completer: completer, log: log}
}

const organizePromptFormat = `Analyze the following conversation from %s's perspective.

Conversation:
%s

Reply with exactly this JSON shape and nothing else:
{
  "summary": "one paragraph capturing the important information",
  "importance": an integer 1-5 (5 most important),
  "category": "user_info/event/preference/other"
}`

// Organize summarizes the buffered dialogue into a scored verdict. The
// reply is expected to be JSON but plain text degrades to an
// importance-3 "other" memory.
func (o *Organizer) Organize(ctx context.Context, logs []model.TempLog, personaName string, opts Options) (Verdict, error) {
	if len(logs) == 0 {
		return Verdict{Importance: 3, Category: model.CategoryOther}, nil
	}

	var lines []string
	for _, l := range logs {
		lines = append(lines, fmt.Sprintf("[%s] %s", l.Role, l.Content))
	}
	prompt := fmt.Sprintf(organizePromptFormat, personaName, strings.Join(lines, "\n"))

	if opts.MaxTokens == 0 {
		opts.MaxTokens = 500
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}

	reply, err := o.completer.Complete(ctx, []Message{{Role: RoleUser, Content: prompt}}, opts)
	if err != nil {
		return Verdict{}, err
	}
	return parseVerdict(reply), nil
}

// Run summarizes personaID's temp logs, stores the result as a core
// memory, and clears the buffer. The buffer survives a failed run.
func (o *Organizer) Run(ctx context.Context, eng *memory.Engine, personaID, personaName string, opts Options) (model.CoreMemory, error) {
	logs := eng.TempLogs(personaID)
	if len(logs) == 0 {
		return model.CoreMemory{}, ErrNoLogs
	}

	verdict, err := o.Organize(ctx, logs, personaName, opts)
	if err != nil {
		return model.CoreMemory{}, err
	}
	if verdict.Summary == "" {
		return model.CoreMemory{}, errors.New("organize: empty summary")
	}

	mem := eng.AddCore(memory.AddParams{
		PersonaID:  personaID,
		Content:    verdict.Summary,
		Importance: verdict.Importance,
		Category:   verdict.Category,
	})
	eng.ClearTempLogs(personaID)
	o.log.Info("organize: stored core memory",
		"persona", personaID, "importance", mem.Importance, "category", mem.Category)
	return mem, nil
}

// ShouldAutoOrganize reports whether a history of messageCount lines is
// due for organization. threshold <= 0 uses the default.
func ShouldAutoOrganize(messageCount, threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultOrganizeThreshold
	}
	return messageCount > 0 && messageCount%threshold == 0
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// parseVerdict extracts the JSON verdict from the reply. Importance is
// clamped to [1,5] and unknown categories decay to "other"; a reply with
// no usable JSON object becomes a plain-text summary.
func parseVerdict(reply string) Verdict {
	if match := jsonObjectPattern.FindString(reply); match != "" {
		if v, ok := decodeVerdict(match); ok {
			return v
		}
	}

	summary := strings.Trim(strings.TrimSpace(reply), `{}"`)
	return Verdict{Summary: strings.TrimSpace(summary), Importance: 3, Category: model.CategoryOther}
}

func decodeVerdict(raw string) (Verdict, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return Verdict{}, false
	}

	summary, _ := obj["summary"].(string)
	if summary == "" {
		return Verdict{}, false
	}

	importance := 3
	switch n := obj["importance"].(type) {
	case float64:
		importance = int(n)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			importance = parsed
		}
	}
	if importance < 1 {
		importance = 1
	}
	if importance > 5 {
		importance = 5
	}

	category, _ := obj["category"].(string)
	if !model.ValidCategories[category] {
		category = model.CategoryOther
	}

	return Verdict{Summary: summary, Importance: importance, Category: category}, true
}
