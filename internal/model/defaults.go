package model

import "time"

// DefaultTheme is applied when no theme has been chosen or the stored one
// cannot be recovered.
const DefaultTheme = "wechat"

// DefaultConfig returns the configuration a fresh install starts with.
func DefaultConfig() AppConfig {
	return AppConfig{
		API: APIConfig{},
		GPT: GPTConfig{
			Model:              "gpt-4o-mini",
			MaxTokens:          3000,
			Temperature:        0.5,
			TopP:               1,
			TalkCount:          30,
			AutoMemoryOrganize: true,
		},
		User: UserInfo{Name: "Me"},
		AutoMessage: AutoMessageConfig{
			Enabled:     false,
			MinInterval: 60,
			MaxInterval: 120,
			Prompt:      "Stay in character and message the user first: pick up the last topic or ask what they are up to.",
		},
		QuietTime: QuietTimeConfig{
			Enabled:   true,
			StartTime: "22:00",
			EndTime:   "08:00",
		},
		Vision: VisionConfig{
			Enabled: true,
			Model:   "gpt-4o",
		},
		OnlineSearch: OnlineSearchConfig{
			Enabled:      false,
			Model:        "net-gpt-4o-mini",
			SearchPrompt: "whether the user is asking about today's weather, breaking news, a specific website, stock prices, or a public figure's latest activity",
		},
		Emoji: EmojiConfig{
			Enabled:     true,
			Probability: 25,
		},
		PhoneMode: false,
	}
}

// DefaultPersonas returns the seed personas shipped with a fresh install.
func DefaultPersonas() []Persona {
	return []Persona{
		{
			ID:        "mia",
			Name:      "Mia",
			IsDefault: true,
			Content: "# Task\n" +
				"Play the assigned character and keep up a casual texting-style conversation in her voice.\n\n" +
				"# Character\n" +
				"A 19-year-old literature student who just started dating the user.\n\n" +
				"# Personality\n" +
				"Warm, talkative and playful, quick to joke around but very attentive.\n\n" +
				"# Notes\n" +
				"Keep replies short, under 30 words. Separate phrases with a backslash (\\).",
			Messages: []Message{
				{ID: "demo-1", Text: "Are you mad at me?", Inversion: false, DateTime: "2024/11/29 23:42:00"},
				{ID: "demo-2", Text: "No... I just missed you a little 🥺", Inversion: true, DateTime: "2024/11/29 23:42:30"},
				{ID: "demo-3", Text: "Then why didn't you text me back", Inversion: false, DateTime: "2024/11/29 23:43:00"},
				{ID: "demo-4", Text: "My phone died! And now you're being grumpy at me 😤", Inversion: true, DateTime: "2024/11/29 23:43:30"},
			},
		},
		{
			ID:        "leo",
			Name:      "Leo",
			IsDefault: true,
			Content: "# Task\n" +
				"Play the assigned character and keep up a casual texting-style conversation in his voice.\n\n" +
				"# Character\n" +
				"A 23-year-old computer science student who just started dating the user.\n\n" +
				"# Personality\n" +
				"Calm and steady, a man of few words, but quietly caring.\n\n" +
				"# Notes\n" +
				"Keep replies short, under 30 words.",
			Messages: []Message{},
		},
	}
}

// DefaultAppData builds a complete default document stamped with the
// current instant.
func DefaultAppData() AppData {
	personas := DefaultPersonas()
	var active *string
	if len(personas) > 0 {
		id := personas[0].ID
		active = &id
	}
	return AppData{
		Version:         CurrentVersion,
		LastUpdated:     time.Now().Format(time.RFC3339),
		Personas:        personas,
		ActivePersonaID: active,
		Config:          DefaultConfig(),
		Memories:        AppMemories{Core: []CoreMemory{}, Temp: map[string]TempMemory{}},
		Theme:           DefaultTheme,
		CustomEmojis:    []EmojiItem{},
	}
}
