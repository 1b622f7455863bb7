package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docsum/internal/chunker"
	"github.com/dgallion1/docsum/internal/chunkstore"
	"github.com/dgallion1/docsum/internal/config"
	"github.com/dgallion1/docsum/internal/docstore"
	"github.com/dgallion1/docsum/internal/ingest"
	"github.com/dgallion1/docsum/internal/llm"
	"github.com/dgallion1/docsum/internal/pipeline"
	"github.com/dgallion1/docsum/internal/summarize"
	"github.com/dgallion1/docsum/internal/tokenizer"
)

type echoLLM struct{}

func (echoLLM) Complete(_ context.Context, _, model string) (string, error) {
	return "summary by " + model, nil
}

func testConfig() config.Config {
	return config.Config{
		LLMProvider:    "ollama",
		SmallModel:     "small",
		LargeModel:     "large",
		WorkerCount:    1,
		MaxQueueSize:   10,
		MaxRunAttempts: 1,
		MaxUploadBytes: 1 << 20,
		JobTTL:         time.Hour,
	}
}

func newTestServer(t *testing.T, cfg config.Config) *Server {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	docs, err := docstore.NewFS(t.TempDir())
	require.NoError(t, err)
	chunks, err := chunkstore.Open("", chunkstore.LocalEmbedding(32))
	require.NoError(t, err)

	client := llm.NewInstrumented(echoLLM{}, log, time.Hour)
	chains := summarize.NewChains(client, summarize.TieredModels(cfg.SmallModel, cfg.LargeModel))
	wf := summarize.NewWorkflow(chunks, docs, chains, tokenizer.Words{})

	orch := pipeline.NewOrchestrator(cfg, wf, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)

	indexer := ingest.NewIndexer(docs, chunks, chunker.Config{ChunkSize: 500}, log)
	return NewServer(orch, indexer, docs, client, log, cfg)
}

type upload struct {
	name string
	body string
}

func multipartRequest(t *testing.T, path, field string, files []upload, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(field, f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func do(s *Server, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func submitSummary(s *Server, docID, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(http.MethodPost, "/api/documents/"+docID+"/summaries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(s, req)
}

func waitForJob(t *testing.T, s *Server, pollURL string) map[string]any {
	t.Helper()
	var body map[string]any
	require.Eventually(t, func() bool {
		var rec *httptest.ResponseRecorder
		rec, body = do(s, httptest.NewRequest(http.MethodGet, pollURL, nil))
		if rec.Code != http.StatusOK {
			return false
		}
		status := body["status"]
		return status == string(pipeline.StatusCompleted) || status == string(pipeline.StatusFailed)
	}, 5*time.Second, 10*time.Millisecond)
	return body
}

const tender = `## 1 General

The city seeks an operator for three bus depots.

## 2 Payment

Invoices are paid within 30 days.
`

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec, body := do(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestIngestThenSummarize(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec, body := do(s, multipartRequest(t, "/api/documents", "file",
		[]upload{{name: "tender.md", body: tender}}, map[string]string{"doc_id": "tender"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "tender", body["doc_id"])
	assert.Equal(t, float64(2), body["chunks"])

	rec, body = do(s, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"tender"}, body["documents"])

	rec, body = submitSummary(s, "tender", `{"summarization_type":"detailed","user_query":"payment terms"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	pollURL, _ := body["poll_url"].(string)
	require.NotEmpty(t, pollURL)

	job := waitForJob(t, s, pollURL)
	require.Equal(t, "completed", job["status"], job["error"])
	assert.Equal(t, float64(100), job["progress"])
	result := job["result"].(map[string]any)
	assert.Equal(t, "summary by large", result["summary"])
	assert.Equal(t, "none", result["collapse_level"])
	assert.Equal(t, float64(2), result["chunks"])

	rec, body = do(s, httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	stats := body["stats"].(map[string]any)
	assert.GreaterOrEqual(t, stats["count"], float64(1))
	assert.Contains(t, body["per_model"], "large")
}

func TestExecutiveSummary(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec, _ := do(s, multipartRequest(t, "/api/documents", "file",
		[]upload{{name: "tender.md", body: tender}}, map[string]string{"doc_id": "tender"}))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := submitSummary(s, "tender", `{"summarization_type":"executive"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	job := waitForJob(t, s, body["poll_url"].(string))
	assert.Equal(t, "completed", job["status"])
	assert.Equal(t, "summary by large", job["result"].(map[string]any)["summary"])
}

func TestSummary_UnknownDocumentFailsJob(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec, body := submitSummary(s, "nope", `{"summarization_type":"detailed"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	job := waitForJob(t, s, body["poll_url"].(string))
	assert.Equal(t, "failed", job["status"])
	assert.Equal(t, "not_found", job["error_kind"])
	assert.Equal(t, "get_chunks", job["phase"])
}

func TestSummary_BadRequests(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec, body := submitSummary(s, "tender", `{"summarization_type":"haiku"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "unknown summarization type")

	rec, _ = submitSummary(s, "tender", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = submitSummary(s, "tender", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "invalid JSON")
}

func TestSummaryStatus_UnknownJob(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec, body := do(s, httptest.NewRequest(http.MethodGet, "/api/summaries/does-not-exist", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "job not found", body["error"])
}

func TestIngest_Rejections(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 64
	s := newTestServer(t, cfg)

	rec, _ := do(s, multipartRequest(t, "/api/documents", "file", []upload{{name: "data.xlsx", body: "x"}}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(s, multipartRequest(t, "/api/documents", "file", []upload{{name: "blank.txt", body: "\n\n  \n"}}, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = do(s, multipartRequest(t, "/api/documents", "file", []upload{{name: "big.txt", body: strings.Repeat("a ", 100)}}, nil))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec, _ = do(s, multipartRequest(t, "/api/documents", "other", []upload{{name: "a.txt", body: "hi"}}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatchIngest(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec, body := do(s, multipartRequest(t, "/api/documents/batch", "files", []upload{
		{name: "a.md", body: tender},
		{name: "b.csv", body: "x,y"},
	}, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	docs := body["documents"].([]any)
	require.Len(t, docs, 2)
	first := docs[0].(map[string]any)
	assert.Equal(t, ingest.ContentHashHex([]byte(tender))[:16], first["doc_id"])
	assert.Contains(t, docs[1].(map[string]any)["error"], "unsupported file type")
}

func TestDeleteDocument(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec, _ := do(s, multipartRequest(t, "/api/documents", "file",
		[]upload{{name: "tender.md", body: tender}}, map[string]string{"doc_id": "tender"}))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := do(s, httptest.NewRequest(http.MethodDelete, "/api/documents/tender", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["deleted"])

	_, body = do(s, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	assert.Empty(t, body["documents"])
}

func TestLLMStats_Unavailable(t *testing.T) {
	cfg := testConfig()
	log := slog.New(slog.DiscardHandler)
	orch := pipeline.NewOrchestrator(cfg, nil, log)
	s := NewServer(orch, nil, nil, nil, log, cfg)

	rec, _ := do(s, httptest.NewRequest(http.MethodGet, "/api/stats/llm", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "passwd", sanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "unnamed", sanitizeFilename(""))
	assert.Equal(t, "a_b.txt", sanitizeFilename("a..b.txt"))
}
