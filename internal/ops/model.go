package ops

import (
	"context"
	"encoding/json"

	"github.com/hpungsan/formulary/internal/errors"
	"github.com/hpungsan/formulary/internal/record"
)

// MissingKeyMessage is returned when no model credential is configured.
const MissingKeyMessage = "Gemini API key is missing. Set GEMINI_API_KEY in the server environment."

// Generator produces text for a prompt, optionally constrained by a JSON
// response schema.
type Generator interface {
	Generate(ctx context.Context, prompt string, schema json.RawMessage) (string, error)
}

// ExchangeRecorder persists exchanges in the background. Record must not block.
type ExchangeRecorder interface {
	Record(c record.SubmittedContent)
}

// CallModelInput contains parameters for the CallModel operation.
type CallModelInput struct {
	Prompt string          `json:"prompt" validate:"required"`
	Schema json.RawMessage `json:"schema,omitempty"`
}

// CallModel sends the prompt to the model once and returns its text. A nil
// gen means no credential is configured. On success the exchange is handed
// to rec; whatever happens to it there does not affect the returned text.
func CallModel(ctx context.Context, gen Generator, rec ExchangeRecorder, input CallModelInput) (string, error) {
	if gen == nil {
		return "", errors.NewConfiguration(MissingKeyMessage)
	}
	if err := validateInput(input); err != nil {
		return "", err
	}

	text, err := gen.Generate(ctx, input.Prompt, input.Schema)
	if err != nil {
		return "", errors.NewUpstream(err)
	}

	if rec != nil {
		rec.Record(record.SubmittedContent{
			Prompt:     input.Prompt,
			Schema:     input.Schema,
			AIResponse: &text,
		})
	}

	return text, nil
}
