package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/formulary/internal/config"
	"github.com/hpungsan/formulary/internal/db"
	"github.com/hpungsan/formulary/internal/logging"
	"github.com/hpungsan/formulary/internal/ops"
	"github.com/hpungsan/formulary/internal/record"
)

type stubGenerator struct {
	text string
	err  error
}

func (g *stubGenerator) Generate(_ context.Context, _ string, _ json.RawMessage) (string, error) {
	return g.text, g.err
}

// syncRecorder writes straight to the database so tests can observe rows
// without a background worker.
type syncRecorder struct {
	db *sql.DB
	mu sync.Mutex
	n  int
}

func (s *syncRecorder) Record(c record.SubmittedContent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	_, _ = db.InsertSubmittedContent(context.Background(), s.db, &c)
}

type testServer struct {
	handler http.Handler
	h       *Handlers
}

func setupTest(t *testing.T, gen ops.Generator) *testServer {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "formulary.db"))
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.FirebaseAPIKey = "fb-key"
	cfg.FirebaseProjectID = "demo-project"

	h := &Handlers{
		db:  database,
		cfg: cfg,
		gen: gen,
		rec: &syncRecorder{db: database},
		log: logging.Nop(),
	}
	return &testServer{handler: newHandler(h, logging.Nop()), h: h}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
		}
	}
	return w, resp
}

func countRows(t *testing.T, database *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, database.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

// --- /api/config ---

func TestHandleConfig(t *testing.T) {
	ts := setupTest(t, nil)
	ts.h.cfg.GeminiAPIKey = "gm-key"

	w, resp := ts.do(t, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])

	data := resp["data"].(map[string]any)
	assert.Equal(t, "fb-key", data["firebaseApiKey"])
	assert.Equal(t, "demo-project", data["firebaseProjectId"])
	assert.Equal(t, "", data["firebaseAppId"], "unset values are passed through empty")
	assert.Equal(t, "gm-key", data["geminiApiKey"])
}

func TestHandleConfig_KeyWithheld(t *testing.T) {
	ts := setupTest(t, nil)
	ts.h.cfg.GeminiAPIKey = "gm-key"
	ts.h.cfg.ExposeGeminiKey = false

	_, resp := ts.do(t, http.MethodGet, "/api/config", "")
	data := resp["data"].(map[string]any)
	assert.Equal(t, "", data["geminiApiKey"])
}

// --- /api/call-gemini ---

func TestHandleCallGemini_NoCredential(t *testing.T) {
	ts := setupTest(t, nil)

	w, resp := ts.do(t, http.MethodPost, "/api/call-gemini", `{"prompt":"2+2"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.True(t, strings.HasPrefix(resp["error"].(string), "Gemini API key is missing"))
	assert.Equal(t, 0, countRows(t, ts.h.db, "submitted_content"))
}

func TestHandleCallGemini_Success(t *testing.T) {
	ts := setupTest(t, &stubGenerator{text: "4"})

	w, resp := ts.do(t, http.MethodPost, "/api/call-gemini", `{"prompt":"2+2","schema":{"type":"STRING"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "4", resp["data"])

	items, err := ops.ListContent(context.Background(), ts.h.db)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "2+2", items[0].Prompt)
	assert.JSONEq(t, `{"type":"STRING"}`, string(items[0].Schema))
	assert.Equal(t, "4", *items[0].AIResponse)
}

func TestHandleCallGemini_UpstreamFailure(t *testing.T) {
	ts := setupTest(t, &stubGenerator{err: stderrors.New("429 quota exhausted")})

	w, resp := ts.do(t, http.MethodPost, "/api/call-gemini", `{"prompt":"2+2"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "429 quota exhausted", resp["error"])
	assert.Equal(t, 0, countRows(t, ts.h.db, "submitted_content"))
}

func TestHandleCallGemini_PersistenceFailureKeepsSuccess(t *testing.T) {
	ts := setupTest(t, &stubGenerator{text: "fine"})
	require.NoError(t, ts.h.db.Close())

	w, resp := ts.do(t, http.MethodPost, "/api/call-gemini", `{"prompt":"x"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fine", resp["data"])
	assert.Equal(t, 1, ts.h.rec.(*syncRecorder).n)
}

// --- /api/save-content and /api/get-saved-content ---

func TestSaveContentThenList(t *testing.T) {
	ts := setupTest(t, nil)

	w, resp := ts.do(t, http.MethodPost, "/api/save-content", `{"prompt":"2+2"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Content saved successfully.", resp["message"])
	assert.Equal(t, float64(1), resp["id"])

	w, resp = ts.do(t, http.MethodGet, "/api/get-saved-content", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].([]any)
	require.Len(t, data, 1)
	item := data[0].(map[string]any)
	assert.Equal(t, float64(1), item["id"])
	assert.Equal(t, "2+2", item["prompt"])
	assert.Contains(t, item, "schema")
	assert.Nil(t, item["schema"])
	assert.Contains(t, item, "ai_response")
	assert.Nil(t, item["ai_response"])
	assert.NotEmpty(t, item["timestamp"])
}

func TestSaveContent_MissingPrompt(t *testing.T) {
	ts := setupTest(t, nil)

	w, resp := ts.do(t, http.MethodPost, "/api/save-content", `{"ai_response":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "prompt is required.", resp["error"])
}

func TestSaveContent_EmptyBody(t *testing.T) {
	ts := setupTest(t, nil)

	w, resp := ts.do(t, http.MethodPost, "/api/save-content", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "prompt is required.", resp["error"])
}

func TestSaveContent_MalformedJSON(t *testing.T) {
	ts := setupTest(t, nil)

	w, resp := ts.do(t, http.MethodPost, "/api/save-content", `{"prompt":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp["error"], "invalid JSON body")
}

func TestGetSavedContentByID(t *testing.T) {
	ts := setupTest(t, nil)
	ts.do(t, http.MethodPost, "/api/save-content", `{"prompt":"p","ai_response":"**bold**"}`)

	w, resp := ts.do(t, http.MethodGet, "/api/get-saved-content/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]any)
	assert.Equal(t, "**bold**", data["ai_response"])
	assert.Contains(t, data["ai_response_html"], "<strong>bold</strong>")
}

func TestGetSavedContentByID_Errors(t *testing.T) {
	ts := setupTest(t, nil)

	w, resp := ts.do(t, http.MethodGet, "/api/get-saved-content/99", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, resp["success"])

	w, _ = ts.do(t, http.MethodGet, "/api/get-saved-content/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- /api/save-formula and /api/get-formulas ---

func TestSaveFormula_TwiceSameKey(t *testing.T) {
	ts := setupTest(t, nil)

	w, resp := ts.do(t, http.MethodPost, "/api/save-formula",
		`{"key":"speed","formula":"v=d/t","subject":"physics","variables":[{"name":"x","meaning":"speed"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Formula saved successfully.", resp["message"])
	assert.Equal(t, false, resp["updated"])
	firstID := resp["id"]

	w, resp = ts.do(t, http.MethodPost, "/api/save-formula",
		`{"key":"speed","formula":"v=s/t","verified_by_ai":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Formula updated successfully.", resp["message"])
	assert.Equal(t, true, resp["updated"])
	assert.Equal(t, firstID, resp["id"])

	assert.Equal(t, 1, countRows(t, ts.h.db, "formulas"))

	_, resp = ts.do(t, http.MethodGet, "/api/get-formulas", "")
	formulas := resp["formulas"].([]any)
	require.Len(t, formulas, 1)
	f := formulas[0].(map[string]any)
	assert.Equal(t, "v=s/t", f["formula"])
	assert.Equal(t, true, f["verified_by_ai"])
	assert.Nil(t, f["subject"], "full replace clears omitted fields")
	assert.Equal(t, []any{}, f["variables"])
}

func TestSaveFormula_VariablesRoundTrip(t *testing.T) {
	ts := setupTest(t, nil)

	ts.do(t, http.MethodPost, "/api/save-formula",
		`{"key":"speed","formula":"v=d/t","variables":[{"name":"x","meaning":"speed"}]}`)

	w, _ := ts.do(t, http.MethodGet, "/api/get-formulas", "")
	var body struct {
		Formulas []struct {
			Variables   json.RawMessage `json:"variables"`
			Connections json.RawMessage `json:"connections"`
		} `json:"formulas"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Formulas, 1)
	assert.JSONEq(t, `[{"name":"x","meaning":"speed"}]`, string(body.Formulas[0].Variables))
	assert.JSONEq(t, `[]`, string(body.Formulas[0].Connections))
}

func TestSaveFormula_MissingKey(t *testing.T) {
	ts := setupTest(t, nil)

	for _, body := range []string{`{"formula":"v=d/t"}`, `{"key":"","formula":"v=d/t"}`} {
		w, resp := ts.do(t, http.MethodPost, "/api/save-formula", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "key is required.", resp["error"])
	}
	assert.Equal(t, 0, countRows(t, ts.h.db, "formulas"))
}

func TestGetFormulas_SortedByKey(t *testing.T) {
	ts := setupTest(t, nil)
	for _, k := range []string{"gamma", "alpha", "beta"} {
		ts.do(t, http.MethodPost, "/api/save-formula", `{"key":"`+k+`","formula":"f"}`)
	}

	_, resp := ts.do(t, http.MethodGet, "/api/get-formulas", "")
	var keys []string
	for _, f := range resp["formulas"].([]any) {
		keys = append(keys, f.(map[string]any)["key"].(string))
	}
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, keys)
}

// --- /api/save-problem and /api/get-problems ---

func TestSaveProblem_RepeatsCreateRows(t *testing.T) {
	ts := setupTest(t, nil)

	for i := 0; i < 3; i++ {
		w, resp := ts.do(t, http.MethodPost, "/api/save-problem", `{"text":"2+2?","answer":"4"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Problem saved successfully.", resp["message"])
	}
	assert.Equal(t, 3, countRows(t, ts.h.db, "problems"))

	_, resp := ts.do(t, http.MethodGet, "/api/get-problems", "")
	problems := resp["problems"].([]any)
	require.Len(t, problems, 3)
	assert.Equal(t, []any{}, problems[0].(map[string]any)["formulaKeys"])
}

func TestSaveProblem_MissingFields(t *testing.T) {
	ts := setupTest(t, nil)

	w, resp := ts.do(t, http.MethodPost, "/api/save-problem", `{"hint":"think"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "text and answer are required.", resp["error"])
}

func TestGetProblems_Empty(t *testing.T) {
	ts := setupTest(t, nil)

	w, resp := ts.do(t, http.MethodGet, "/api/get-problems", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{}, resp["problems"])
}

// --- storage failures ---

func TestStorageFailureIsServerError(t *testing.T) {
	ts := setupTest(t, nil)
	require.NoError(t, ts.h.db.Close())

	w, resp := ts.do(t, http.MethodGet, "/api/get-formulas", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.Contains(t, resp["error"], "database error")
}

// --- middleware ---

func TestBodyLimit(t *testing.T) {
	ts := setupTest(t, nil)

	big := `{"prompt":"` + strings.Repeat("a", int(MaxBodyBytes)) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/save-content", bytes.NewReader([]byte(big)))
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, 0, countRows(t, ts.h.db, "submitted_content"))
}

func TestCORSPreflight(t *testing.T) {
	ts := setupTest(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/save-formula", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestCommonHeaders(t *testing.T) {
	ts := setupTest(t, nil)

	w, _ := ts.do(t, http.MethodGet, "/api/get-problems", "")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Len(t, w.Header().Get(RequestIDHeader), 26)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestRequestIDPropagated(t *testing.T) {
	ts := setupTest(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestUnknownRoute(t *testing.T) {
	ts := setupTest(t, nil)

	w, resp := ts.do(t, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, resp["success"])
}

func TestNewServer_Addr(t *testing.T) {
	cfg := config.DefaultConfig()
	srv := NewServer(nil, cfg, nil, nil, nil)
	assert.Equal(t, ":3001", srv.Addr)
	assert.NotNil(t, srv.Handler)
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Port = 0
	srv := NewServer(nil, cfg, nil, nil, logging.Nop())
	srv.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, Run(ctx, srv, logging.Nop()))
}
