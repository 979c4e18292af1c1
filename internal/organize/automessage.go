package organize

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pocketpal/internal/model"
)

// InQuietTime reports whether now falls inside the configured daily
// window. The window may cross midnight ("22:00" to "08:00"). A disabled
// or unparseable window never suppresses.
func InQuietTime(cfg model.QuietTimeConfig, now time.Time) bool {
	if !cfg.Enabled {
		return false
	}
	start, ok := clockMinutes(cfg.StartTime)
	if !ok {
		return false
	}
	end, ok := clockMinutes(cfg.EndTime)
	if !ok {
		return false
	}

	current := now.Hour()*60 + now.Minute()
	if start > end { // overnight window
		return current >= start || current < end
	}
	return current >= start && current < end
}

func clockMinutes(hhmm string) (int, bool) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// AutoMessageParams describes one unprompted-message request.
type AutoMessageParams struct {
	PersonaName  string
	SystemPrompt string          // persona prompt content, optional
	Recent       []model.TempLog // recent dialogue for context
	Prompt       string          // configured auto-message instruction
	Options      Options
}

// AutoMessage drafts a short unprompted line in the persona's voice,
// seeded with up to the last five dialogue lines.
func (o *Organizer) AutoMessage(ctx context.Context, p AutoMessageParams) (string, error) {
	contextText := "This is the start of a new conversation."
	if len(p.Recent) > 0 {
		recent := p.Recent
		if len(recent) > 5 {
			recent = recent[len(recent)-5:]
		}
		var lines []string
		for _, l := range recent {
			lines = append(lines, fmt.Sprintf("%s: %s", l.Role, l.Content))
		}
		contextText = "Recent conversation:\n" + strings.Join(lines, "\n")
	}

	full := fmt.Sprintf("%s\n\n%s\n\nAs %s, start a conversation in a short, natural tone. At most 30 words.",
		p.Prompt, contextText, p.PersonaName)

	var messages []Message
	if p.SystemPrompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: p.SystemPrompt})
	}
	messages = append(messages, Message{Role: RoleUser, Content: full})

	opts := p.Options
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 100
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.9
	}

	reply, err := o.completer.Complete(ctx, messages, opts)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}
