package web

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/hpungsan/formulary/internal/config"
	"github.com/hpungsan/formulary/internal/errors"
	"github.com/hpungsan/formulary/internal/logging"
	"github.com/hpungsan/formulary/internal/ops"
	"github.com/hpungsan/formulary/internal/record"
)

// Handlers contains HTTP route handlers for the JSON API.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
	gen ops.Generator
	rec ops.ExchangeRecorder
	log *logging.Logger
}

// ClientConfig is the payload of GET /api/config.
type ClientConfig struct {
	FirebaseAPIKey            string `json:"firebaseApiKey"`
	FirebaseAuthDomain        string `json:"firebaseAuthDomain"`
	FirebaseProjectID         string `json:"firebaseProjectId"`
	FirebaseStorageBucket     string `json:"firebaseStorageBucket"`
	FirebaseMessagingSenderID string `json:"firebaseMessagingSenderId"`
	FirebaseAppID             string `json:"firebaseAppId"`
	GeminiAPIKey              string `json:"geminiApiKey"`
}

// ContentDetail is a saved exchange with its response rendered as HTML.
type ContentDetail struct {
	record.SubmittedContent
	AIResponseHTML string `json:"ai_response_html"`
}

// HandleConfig handles GET /api/config. Values are passed through without
// checking that they are set.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	data := ClientConfig{
		FirebaseAPIKey:            h.cfg.FirebaseAPIKey,
		FirebaseAuthDomain:        h.cfg.FirebaseAuthDomain,
		FirebaseProjectID:         h.cfg.FirebaseProjectID,
		FirebaseStorageBucket:     h.cfg.FirebaseStorageBucket,
		FirebaseMessagingSenderID: h.cfg.FirebaseMessagingSenderID,
		FirebaseAppID:             h.cfg.FirebaseAppID,
	}
	if h.cfg.ExposeGeminiKey {
		data.GeminiAPIKey = h.cfg.GeminiAPIKey
	}

	renderSuccess(w, map[string]any{"data": data})
}

// HandleCallGemini handles POST /api/call-gemini.
func (h *Handlers) HandleCallGemini(w http.ResponseWriter, r *http.Request) {
	var input ops.CallModelInput
	if err := decodeJSON(r, &input); err != nil {
		renderError(w, r, h.log, err)
		return
	}

	text, err := ops.CallModel(r.Context(), h.gen, h.rec, input)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}

	renderSuccess(w, map[string]any{"data": text})
}

// HandleSaveContent handles POST /api/save-content.
func (h *Handlers) HandleSaveContent(w http.ResponseWriter, r *http.Request) {
	var input ops.SaveContentInput
	if err := decodeJSON(r, &input); err != nil {
		renderError(w, r, h.log, err)
		return
	}

	out, err := ops.SaveContent(r.Context(), h.db, input)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}

	renderSuccess(w, map[string]any{"message": out.Message, "id": out.ID})
}

// HandleListContent handles GET /api/get-saved-content.
func (h *Handlers) HandleListContent(w http.ResponseWriter, r *http.Request) {
	items, err := ops.ListContent(r.Context(), h.db)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}

	renderSuccess(w, map[string]any{"data": items})
}

// HandleGetContent handles GET /api/get-saved-content/{id}.
func (h *Handlers) HandleGetContent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		renderError(w, r, h.log, errors.NewInvalidRequest("id must be a positive integer"))
		return
	}

	item, err := ops.GetContent(r.Context(), h.db, id)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}

	detail := ContentDetail{SubmittedContent: *item}
	if item.AIResponse != nil {
		detail.AIResponseHTML = renderMarkdown(*item.AIResponse)
	}

	renderSuccess(w, map[string]any{"data": detail})
}

// HandleSaveFormula handles POST /api/save-formula.
func (h *Handlers) HandleSaveFormula(w http.ResponseWriter, r *http.Request) {
	var input ops.SaveFormulaInput
	if err := decodeJSON(r, &input); err != nil {
		renderError(w, r, h.log, err)
		return
	}

	out, err := ops.SaveFormula(r.Context(), h.db, input)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}

	renderSuccess(w, map[string]any{
		"message": out.Message,
		"id":      out.ID,
		"updated": out.Updated,
	})
}

// HandleListFormulas handles GET /api/get-formulas.
func (h *Handlers) HandleListFormulas(w http.ResponseWriter, r *http.Request) {
	items, err := ops.ListFormulas(r.Context(), h.db)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}

	renderSuccess(w, map[string]any{"formulas": items})
}

// HandleSaveProblem handles POST /api/save-problem.
func (h *Handlers) HandleSaveProblem(w http.ResponseWriter, r *http.Request) {
	var input ops.SaveProblemInput
	if err := decodeJSON(r, &input); err != nil {
		renderError(w, r, h.log, err)
		return
	}

	out, err := ops.SaveProblem(r.Context(), h.db, input)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}

	renderSuccess(w, map[string]any{"message": out.Message, "id": out.ID})
}

// HandleListProblems handles GET /api/get-problems.
func (h *Handlers) HandleListProblems(w http.ResponseWriter, r *http.Request) {
	items, err := ops.ListProblems(r.Context(), h.db)
	if err != nil {
		renderError(w, r, h.log, err)
		return
	}

	renderSuccess(w, map[string]any{"problems": items})
}

// HandleNotFound answers unmatched routes with the error envelope.
func (h *Handlers) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	renderError(w, r, h.log, errors.NewNotFound("route "+r.Method+" "+r.URL.Path))
}
