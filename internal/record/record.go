package record

import (
	"encoding/json"
	"time"
)

// SubmittedContent is one prompt/response exchange. Rows are never updated.
type SubmittedContent struct {
	// ID is the auto-increment row id
	ID int64 `json:"id"`

	// Prompt is the text sent to the model (required)
	Prompt string `json:"prompt"`

	// Schema is the optional response-shape constraint, kept verbatim (null when absent)
	Schema json.RawMessage `json:"schema"`

	// AIResponse is the model output, if any
	AIResponse *string `json:"ai_response"`

	// Timestamp is the creation time
	Timestamp time.Time `json:"timestamp"`
}

// Formula is a reference formula identified by its natural key.
// At most one row exists per Key; saves replace every mutable field.
type Formula struct {
	ID          int64             `json:"id"`
	Key         string            `json:"key"`
	Category    *string           `json:"category"`
	Subject     *string           `json:"subject"`
	Topic       *string           `json:"topic"`
	SubTopic    *string           `json:"sub_topic"`
	Formula     string            `json:"formula"`
	Description *string           `json:"description"`
	Variables   []json.RawMessage `json:"variables"`
	Connections []json.RawMessage `json:"connections"`
	Examples    []json.RawMessage `json:"examples"`

	// VerifiedByAI is stored as 0/1 and exposed as a boolean
	VerifiedByAI bool    `json:"verified_by_ai"`
	CustomUser   *string `json:"custom_user"`

	// Timestamp is the last write time
	Timestamp time.Time `json:"timestamp"`
}

// Problem is a practice problem. Saves always append a new row.
type Problem struct {
	ID          int64    `json:"id"`
	Text        string   `json:"text"`
	Answer      string   `json:"answer"`
	FormulaKeys []string `json:"formulaKeys"`
	Difficulty  *string  `json:"difficulty"`
	Subject     *string  `json:"subject"`
	Topic       *string  `json:"topic"`
	Analysis    *string  `json:"analysis"`
	Hint        *string  `json:"hint"`
	CustomUser  *string  `json:"custom_user"`

	// Timestamp is the creation time
	Timestamp time.Time `json:"timestamp"`
}
