package mcp

import "github.com/mark3labs/mcp-go/mcp"

var objectItems = map[string]any{"type": "object"}

var formulaSaveToolDef = mcp.NewTool("formula_save",
	mcp.WithDescription("Create or replace the formula stored under key. Every field not supplied is cleared."),
	mcp.WithString("key", mcp.Required(), mcp.Description("Unique natural key of the formula")),
	mcp.WithString("formula", mcp.Required(), mcp.Description("Formula body, e.g. LaTeX")),
	mcp.WithString("category", mcp.Description("Category")),
	mcp.WithString("subject", mcp.Description("Subject")),
	mcp.WithString("topic", mcp.Description("Topic")),
	mcp.WithString("sub_topic", mcp.Description("Sub-topic")),
	mcp.WithString("description", mcp.Description("Free-text description")),
	mcp.WithArray("variables", mcp.Description("Variable entries"), mcp.Items(objectItems)),
	mcp.WithArray("connections", mcp.Description("Related formulas"), mcp.Items(objectItems)),
	mcp.WithArray("examples", mcp.Description("Worked examples"), mcp.Items(objectItems)),
	mcp.WithBoolean("verified_by_ai", mcp.Description("Whether the formula was checked by the model")),
	mcp.WithString("custom_user", mcp.Description("Owner tag")),
)

var formulaListToolDef = mcp.NewTool("formula_list",
	mcp.WithDescription("List all formulas sorted by key."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var problemSaveToolDef = mcp.NewTool("problem_save",
	mcp.WithDescription("Append a problem. Identical problems are stored as separate rows."),
	mcp.WithString("text", mcp.Required(), mcp.Description("Problem statement")),
	mcp.WithString("answer", mcp.Required(), mcp.Description("Expected answer")),
	mcp.WithArray("formulaKeys", mcp.Description("Keys of formulas used"), mcp.Items(map[string]any{"type": "string"})),
	mcp.WithString("difficulty", mcp.Description("Difficulty label")),
	mcp.WithString("subject", mcp.Description("Subject")),
	mcp.WithString("topic", mcp.Description("Topic")),
	mcp.WithString("analysis", mcp.Description("Solution analysis")),
	mcp.WithString("hint", mcp.Description("Hint")),
	mcp.WithString("custom_user", mcp.Description("Owner tag")),
)

var problemListToolDef = mcp.NewTool("problem_list",
	mcp.WithDescription("List all problems, newest first."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var contentSaveToolDef = mcp.NewTool("content_save",
	mcp.WithDescription("Save a prompt with its optional schema and model response."),
	mcp.WithString("prompt", mcp.Required(), mcp.Description("Prompt text")),
	mcp.WithObject("schema", mcp.Description("Response schema sent with the prompt")),
	mcp.WithString("ai_response", mcp.Description("Model response text")),
)

var contentListToolDef = mcp.NewTool("content_list",
	mcp.WithDescription("List saved prompt/response exchanges, newest first."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var modelCallToolDef = mcp.NewTool("model_call",
	mcp.WithDescription("Send a prompt to Gemini and return the text. The exchange is saved in the background."),
	mcp.WithString("prompt", mcp.Required(), mcp.Description("Prompt text")),
	mcp.WithObject("schema", mcp.Description("Optional response schema; the reply is then JSON")),
)
