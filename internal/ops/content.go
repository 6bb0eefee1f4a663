package ops

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/hpungsan/formulary/internal/db"
	"github.com/hpungsan/formulary/internal/record"
)

// SaveContentInput contains parameters for the SaveContent operation.
type SaveContentInput struct {
	Prompt     string          `json:"prompt" validate:"required"`
	Schema     json.RawMessage `json:"schema,omitempty"`
	AIResponse *string         `json:"ai_response,omitempty"`
}

// SaveOutput is returned by the append-only save operations.
type SaveOutput struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// SaveContent stores a prompt, optional schema, and optional model response.
func SaveContent(ctx context.Context, database *sql.DB, input SaveContentInput) (*SaveOutput, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	id, err := db.InsertSubmittedContent(ctx, database, &record.SubmittedContent{
		Prompt:     input.Prompt,
		Schema:     input.Schema,
		AIResponse: input.AIResponse,
	})
	if err != nil {
		return nil, err
	}

	return &SaveOutput{ID: id, Message: MsgContentSaved}, nil
}

// ListContent returns all saved exchanges, newest first.
func ListContent(ctx context.Context, database *sql.DB) ([]record.SubmittedContent, error) {
	return db.ListSubmittedContent(ctx, database)
}

// GetContent returns a single saved exchange.
func GetContent(ctx context.Context, database *sql.DB, id int64) (*record.SubmittedContent, error) {
	return db.GetSubmittedContent(ctx, database, id)
}
