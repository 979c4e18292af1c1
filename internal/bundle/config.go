package bundle

import (
	"regexp"
	"strconv"

	"pocketpal/internal/model"
)

// The legacy bundle's config file is a flat list of Python-style
// assignments. Only the keys in the pattern table are recognized;
// everything else in the file is ignored.

type configKind int

const (
	kindString configKind = iota
	kindNumber
	kindBool
)

var configPatterns = []struct {
	key  string
	kind configKind
	re   *regexp.Regexp
}{
	{"API_KEY", kindString, regexp.MustCompile(`(?m)^\s*API_KEY\s*=\s*["'](.*?)["']`)},
	{"API_BASE_URL", kindString, regexp.MustCompile(`API_BASE_URL\s*=\s*["'](.+?)["']`)},
	{"MODEL", kindString, regexp.MustCompile(`(?m)^\s*MODEL\s*=\s*["'](.+?)["']`)},
	{"MAX_TOKEN", kindNumber, regexp.MustCompile(`MAX_TOKEN\s*=\s*(\d+)`)},
	{"TEMPERATURE", kindNumber, regexp.MustCompile(`TEMPERATURE\s*=\s*([\d.]+)`)},
	{"MAX_GROUPS", kindNumber, regexp.MustCompile(`MAX_GROUPS\s*=\s*(\d+)`)},
	{"ENABLE_AUTO_MESSAGE", kindBool, regexp.MustCompile(`ENABLE_AUTO_MESSAGE\s*=\s*(True|False)`)},
	{"MIN_COUNTDOWN_HOURS", kindNumber, regexp.MustCompile(`MIN_COUNTDOWN_HOURS\s*=\s*([\d.]+)`)},
	{"MAX_COUNTDOWN_HOURS", kindNumber, regexp.MustCompile(`MAX_COUNTDOWN_HOURS\s*=\s*([\d.]+)`)},
	{"AUTO_MESSAGE", kindString, regexp.MustCompile(`AUTO_MESSAGE\s*=\s*["'](.+?)["']`)},
	{"QUIET_TIME_START", kindString, regexp.MustCompile(`QUIET_TIME_START\s*=\s*["'](.+?)["']`)},
	{"QUIET_TIME_END", kindString, regexp.MustCompile(`QUIET_TIME_END\s*=\s*["'](.+?)["']`)},
	{"VISION_API_KEY", kindString, regexp.MustCompile(`VISION_API_KEY\s*=\s*["'](.*?)["']`)},
	{"VISION_BASE_URL", kindString, regexp.MustCompile(`VISION_BASE_URL\s*=\s*["'](.+?)["']`)},
	{"VISION_MODEL", kindString, regexp.MustCompile(`VISION_MODEL\s*=\s*["'](.+?)["']`)},
	{"ENABLE_IMAGE_RECOGNITION", kindBool, regexp.MustCompile(`ENABLE_IMAGE_RECOGNITION\s*=\s*(True|False)`)},
	{"ONLINE_BASE_URL", kindString, regexp.MustCompile(`ONLINE_BASE_URL\s*=\s*["'](.+?)["']`)},
	{"ONLINE_MODEL", kindString, regexp.MustCompile(`ONLINE_MODEL\s*=\s*["'](.+?)["']`)},
	{"ONLINE_API_KEY", kindString, regexp.MustCompile(`ONLINE_API_KEY\s*=\s*["'](.*?)["']`)},
	{"ENABLE_ONLINE_API", kindBool, regexp.MustCompile(`ENABLE_ONLINE_API\s*=\s*(True|False)`)},
	{"SEARCH_DETECTION_PROMPT", kindString, regexp.MustCompile(`SEARCH_DETECTION_PROMPT\s*=\s*["'](.+?)["']`)},
	{"ENABLE_EMOJI_SENDING", kindBool, regexp.MustCompile(`ENABLE_EMOJI_SENDING\s*=\s*(True|False)`)},
	{"EMOJI_SENDING_PROBABILITY", kindNumber, regexp.MustCompile(`EMOJI_SENDING_PROBABILITY\s*=\s*(\d+)`)},
}

// legacyConfig holds the parsed assignments with presence information.
type legacyConfig struct {
	strs  map[string]string
	nums  map[string]float64
	flags map[string]bool
}

func parseConfig(content string) legacyConfig {
	lc := legacyConfig{
		strs:  map[string]string{},
		nums:  map[string]float64{},
		flags: map[string]bool{},
	}
	for _, p := range configPatterns {
		m := p.re.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		switch p.kind {
		case kindString:
			lc.strs[p.key] = m[1]
		case kindNumber:
			if n, err := strconv.ParseFloat(m[1], 64); err == nil {
				lc.nums[p.key] = n
			}
		case kindBool:
			lc.flags[p.key] = m[1] == "True"
		}
	}
	return lc
}

func (lc legacyConfig) str(key, fallback string) string {
	if v, ok := lc.strs[key]; ok && v != "" {
		return v
	}
	return fallback
}

func (lc legacyConfig) num(key string, fallback float64) float64 {
	if v, ok := lc.nums[key]; ok {
		return v
	}
	return fallback
}

func (lc legacyConfig) flag(key string, fallback bool) bool {
	if v, ok := lc.flags[key]; ok {
		return v
	}
	return fallback
}

// mergeInto lays the parsed assignments over cfg, key by key. Absent
// keys leave cfg alone, so a merge never wipes settings the bundle does
// not carry. Empty string values are skipped for the same reason.
func (lc legacyConfig) mergeInto(cfg *model.AppConfig) {
	set := func(key string, dst *string) {
		if v, ok := lc.strs[key]; ok && v != "" {
			*dst = v
		}
	}

	set("API_KEY", &cfg.API.APIKey)
	set("API_BASE_URL", &cfg.API.APIBaseURL)
	set("MODEL", &cfg.GPT.Model)
	if v, ok := lc.nums["MAX_TOKEN"]; ok {
		cfg.GPT.MaxTokens = int(v)
	}
	if v, ok := lc.nums["TEMPERATURE"]; ok {
		cfg.GPT.Temperature = v
	}
	if v, ok := lc.nums["MAX_GROUPS"]; ok {
		cfg.GPT.TalkCount = int(v)
	}

	if v, ok := lc.flags["ENABLE_AUTO_MESSAGE"]; ok {
		cfg.AutoMessage.Enabled = v
	}
	if v, ok := lc.nums["MIN_COUNTDOWN_HOURS"]; ok {
		cfg.AutoMessage.MinInterval = int(v * 60)
	}
	if v, ok := lc.nums["MAX_COUNTDOWN_HOURS"]; ok {
		cfg.AutoMessage.MaxInterval = int(v * 60)
	}
	set("AUTO_MESSAGE", &cfg.AutoMessage.Prompt)

	if _, ok := lc.strs["QUIET_TIME_START"]; ok {
		cfg.QuietTime.Enabled = true
	}
	set("QUIET_TIME_START", &cfg.QuietTime.StartTime)
	set("QUIET_TIME_END", &cfg.QuietTime.EndTime)

	set("VISION_API_KEY", &cfg.Vision.APIKey)
	set("VISION_BASE_URL", &cfg.Vision.APIBaseURL)
	set("VISION_MODEL", &cfg.Vision.Model)
	if v, ok := lc.flags["ENABLE_IMAGE_RECOGNITION"]; ok {
		cfg.Vision.Enabled = v
	}

	if v, ok := lc.flags["ENABLE_ONLINE_API"]; ok {
		cfg.OnlineSearch.Enabled = v
	}
	set("ONLINE_API_KEY", &cfg.OnlineSearch.APIKey)
	set("ONLINE_BASE_URL", &cfg.OnlineSearch.APIBaseURL)
	set("ONLINE_MODEL", &cfg.OnlineSearch.Model)
	set("SEARCH_DETECTION_PROMPT", &cfg.OnlineSearch.SearchPrompt)

	if v, ok := lc.flags["ENABLE_EMOJI_SENDING"]; ok {
		cfg.Emoji.Enabled = v
	}
	if v, ok := lc.nums["EMOJI_SENDING_PROBABILITY"]; ok {
		cfg.Emoji.Probability = int(v)
	}
}

// toConfig maps the parsed assignments onto the modern config shape.
// Countdown intervals arrive in hours and are stored in minutes; the
// vision enable flag defaults to "a vision key was present" when absent.
func (lc legacyConfig) toConfig() model.AppConfig {
	cfg := model.DefaultConfig()

	cfg.API.APIKey = lc.str("API_KEY", "")
	cfg.API.APIBaseURL = lc.str("API_BASE_URL", "")

	cfg.GPT.Model = lc.str("MODEL", cfg.GPT.Model)
	cfg.GPT.MaxTokens = int(lc.num("MAX_TOKEN", float64(cfg.GPT.MaxTokens)))
	cfg.GPT.Temperature = lc.num("TEMPERATURE", cfg.GPT.Temperature)
	cfg.GPT.TalkCount = int(lc.num("MAX_GROUPS", float64(cfg.GPT.TalkCount)))

	cfg.AutoMessage.Enabled = lc.flag("ENABLE_AUTO_MESSAGE", false)
	cfg.AutoMessage.MinInterval = int(lc.num("MIN_COUNTDOWN_HOURS", 1) * 60)
	cfg.AutoMessage.MaxInterval = int(lc.num("MAX_COUNTDOWN_HOURS", 2) * 60)
	cfg.AutoMessage.Prompt = lc.str("AUTO_MESSAGE", cfg.AutoMessage.Prompt)

	cfg.QuietTime.Enabled = lc.str("QUIET_TIME_START", "") != ""
	cfg.QuietTime.StartTime = lc.str("QUIET_TIME_START", "22:00")
	cfg.QuietTime.EndTime = lc.str("QUIET_TIME_END", "08:00")

	visionKey := lc.str("VISION_API_KEY", "")
	cfg.Vision.Enabled = lc.flag("ENABLE_IMAGE_RECOGNITION", visionKey != "")
	cfg.Vision.APIKey = visionKey
	cfg.Vision.APIBaseURL = lc.str("VISION_BASE_URL", "")
	cfg.Vision.Model = lc.str("VISION_MODEL", "gpt-4o")

	cfg.OnlineSearch.Enabled = lc.flag("ENABLE_ONLINE_API", false)
	cfg.OnlineSearch.APIKey = lc.str("ONLINE_API_KEY", "")
	cfg.OnlineSearch.APIBaseURL = lc.str("ONLINE_BASE_URL", "")
	cfg.OnlineSearch.Model = lc.str("ONLINE_MODEL", cfg.OnlineSearch.Model)
	cfg.OnlineSearch.SearchPrompt = lc.str("SEARCH_DETECTION_PROMPT", cfg.OnlineSearch.SearchPrompt)

	cfg.Emoji.Enabled = lc.flag("ENABLE_EMOJI_SENDING", true)
	cfg.Emoji.Probability = int(lc.num("EMOJI_SENDING_PROBABILITY", float64(cfg.Emoji.Probability)))

	return cfg
}
