package ops

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/hpungsan/formulary/internal/db"
	"github.com/hpungsan/formulary/internal/record"
)

// SaveFormulaInput contains parameters for the SaveFormula operation.
// Every save replaces the whole row: omitted fields are stored as NULL.
type SaveFormulaInput struct {
	Key          string            `json:"key" validate:"required"`
	Category     *string           `json:"category,omitempty"`
	Subject      *string           `json:"subject,omitempty"`
	Topic        *string           `json:"topic,omitempty"`
	SubTopic     *string           `json:"sub_topic,omitempty"`
	Formula      string            `json:"formula" validate:"required"`
	Description  *string           `json:"description,omitempty"`
	Variables    []json.RawMessage `json:"variables,omitempty"`
	Connections  []json.RawMessage `json:"connections,omitempty"`
	Examples     []json.RawMessage `json:"examples,omitempty"`
	VerifiedByAI bool              `json:"verified_by_ai,omitempty"`
	CustomUser   *string           `json:"custom_user,omitempty"`
}

// SaveFormulaOutput contains the result of the SaveFormula operation.
type SaveFormulaOutput struct {
	ID      int64  `json:"id"`
	Updated bool   `json:"updated"`
	Message string `json:"message"`
}

// SaveFormula creates the formula for input.Key or replaces the existing one.
func SaveFormula(ctx context.Context, database *sql.DB, input SaveFormulaInput) (*SaveFormulaOutput, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	result, err := db.UpsertFormula(ctx, database, &record.Formula{
		Key:          input.Key,
		Category:     input.Category,
		Subject:      input.Subject,
		Topic:        input.Topic,
		SubTopic:     input.SubTopic,
		Formula:      input.Formula,
		Description:  input.Description,
		Variables:    input.Variables,
		Connections:  input.Connections,
		Examples:     input.Examples,
		VerifiedByAI: input.VerifiedByAI,
		CustomUser:   input.CustomUser,
	})
	if err != nil {
		return nil, err
	}

	out := &SaveFormulaOutput{ID: result.ID, Updated: !result.Inserted, Message: MsgFormulaSaved}
	if out.Updated {
		out.Message = MsgFormulaUpdated
	}
	return out, nil
}

// ListFormulas returns all formulas sorted by key.
func ListFormulas(ctx context.Context, database *sql.DB) ([]record.Formula, error) {
	return db.ListFormulas(ctx, database)
}

// GetFormula returns the formula stored under key.
func GetFormula(ctx context.Context, database *sql.DB, key string) (*record.Formula, error) {
	return db.GetFormulaByKey(ctx, database, key)
}
