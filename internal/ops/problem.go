package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/formulary/internal/db"
	"github.com/hpungsan/formulary/internal/record"
)

// SaveProblemInput contains parameters for the SaveProblem operation.
type SaveProblemInput struct {
	Text        string   `json:"text" validate:"required"`
	Answer      string   `json:"answer" validate:"required"`
	FormulaKeys []string `json:"formulaKeys,omitempty"`
	Difficulty  *string  `json:"difficulty,omitempty"`
	Subject     *string  `json:"subject,omitempty"`
	Topic       *string  `json:"topic,omitempty"`
	Analysis    *string  `json:"analysis,omitempty"`
	Hint        *string  `json:"hint,omitempty"`
	CustomUser  *string  `json:"custom_user,omitempty"`
}

// SaveProblem appends a problem. Repeated text/answer pairs are kept as separate rows.
func SaveProblem(ctx context.Context, database *sql.DB, input SaveProblemInput) (*SaveOutput, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	id, err := db.InsertProblem(ctx, database, &record.Problem{
		Text:        input.Text,
		Answer:      input.Answer,
		FormulaKeys: input.FormulaKeys,
		Difficulty:  input.Difficulty,
		Subject:     input.Subject,
		Topic:       input.Topic,
		Analysis:    input.Analysis,
		Hint:        input.Hint,
		CustomUser:  input.CustomUser,
	})
	if err != nil {
		return nil, err
	}

	return &SaveOutput{ID: id, Message: MsgProblemSaved}, nil
}

// ListProblems returns all problems, newest first.
func ListProblems(ctx context.Context, database *sql.DB) ([]record.Problem, error) {
	return db.ListProblems(ctx, database)
}
