package model

import "time"

// ================ Config ================
type SessionConfig struct {
	Store           string        `envconfig:"SESSION_STORE" default:"memory"`
	TTL             time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	HistoryMaxTurns int           `envconfig:"SESSION_HISTORY_MAX_TURNS" default:"10"`
}

// OracleModelConfig configures the model used for classification, slot matching and SQL repair.
type OracleModelConfig struct {
	Model       string        `envconfig:"ORACLE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int           `envconfig:"ORACLE_MAX_TOKENS" default:"1024"`
	Temperature float32       `envconfig:"ORACLE_TEMPERATURE" default:"0.1"`
	TopP        float32       `envconfig:"ORACLE_TOP_P" default:"0.95"`
	Timeout     time.Duration `envconfig:"ORACLE_TIMEOUT" default:"30s"`
}

// FormatterModelConfig configures the model that narrates result sets.
type FormatterModelConfig struct {
	Model       string  `envconfig:"FORMATTER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"FORMATTER_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"FORMATTER_TEMPERATURE" default:"0.4"`
	Stream      bool    `envconfig:"FORMATTER_STREAM" default:"true"`
	MaxRows     int     `envconfig:"FORMATTER_MAX_ROWS" default:"200"`
}
