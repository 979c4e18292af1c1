package model

// APIConfig holds the main chat-completion endpoint credentials.
type APIConfig struct {
	APIKey     string `json:"apiKey"`
	APIBaseURL string `json:"apiBaseUrl"`
}

// GPTConfig holds model and sampling parameters for chat completions.
type GPTConfig struct {
	Model              string  `json:"model"`
	MaxTokens          int     `json:"maxTokens"`
	SystemMessage      string  `json:"systemMessage"`
	Temperature        float64 `json:"temperature"`
	TopP               float64 `json:"topP"`
	TalkCount          int     `json:"talkCount"` // context window in message rounds
	AutoMemoryOrganize bool    `json:"autoMemoryOrganize"`
}

// UserInfo describes the end user as shown in the chat surface.
type UserInfo struct {
	Avatar          string `json:"avatar"`
	AIAvatar        string `json:"aiAvatar"`
	Name            string `json:"name"`
	BackgroundImage string `json:"backgroundImage,omitempty"`
}

// AutoMessageConfig drives unprompted persona messages. Intervals are in
// minutes.
type AutoMessageConfig struct {
	Enabled     bool   `json:"enabled"`
	MinInterval int    `json:"minInterval"`
	MaxInterval int    `json:"maxInterval"`
	Prompt      string `json:"prompt"`
}

// QuietTimeConfig suppresses auto messages inside a daily window. The
// window may cross midnight ("22:00" to "08:00").
type QuietTimeConfig struct {
	Enabled   bool   `json:"enabled"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// VisionConfig holds the image-recognition endpoint settings.
type VisionConfig struct {
	Enabled    bool   `json:"enabled"`
	APIKey     string `json:"apiKey"`
	APIBaseURL string `json:"apiBaseUrl"`
	Model      string `json:"model"`
}

// OnlineSearchConfig holds the web-search endpoint settings.
type OnlineSearchConfig struct {
	Enabled      bool   `json:"enabled"`
	APIKey       string `json:"apiKey"`
	APIBaseURL   string `json:"apiBaseUrl"`
	Model        string `json:"model"`
	SearchPrompt string `json:"searchPrompt"`
}

// EmojiConfig controls persona emoji sending.
type EmojiConfig struct {
	Enabled     bool `json:"enabled"`
	Probability int  `json:"probability"` // 0-100
}

// AppConfig aggregates all configuration groups. Groups are independent
// and can be merged or replaced one at a time.
type AppConfig struct {
	API          APIConfig          `json:"api"`
	GPT          GPTConfig          `json:"gpt"`
	User         UserInfo           `json:"user"`
	AutoMessage  AutoMessageConfig  `json:"autoMessage"`
	QuietTime    QuietTimeConfig    `json:"quietTime"`
	Vision       VisionConfig       `json:"vision"`
	OnlineSearch OnlineSearchConfig `json:"onlineSearch"`
	Emoji        EmojiConfig        `json:"emoji"`
	PhoneMode    bool               `json:"phoneMode"`
}
