package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageglot/pageglot/internal/cache"
	"github.com/pageglot/pageglot/internal/dom"
	"github.com/pageglot/pageglot/internal/scheduler"
	"github.com/pageglot/pageglot/internal/session"
)

type echoTranslator struct {
	mu    sync.Mutex
	calls int
}

func (e *echoTranslator) Translate(ctx context.Context, texts []string, sourceLang, targetLang string) (map[string]string, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	out := make(map[string]string, len(texts))
	for _, text := range texts {
		out[text] = "[" + targetLang + "] " + text
	}
	return out, nil
}

type fixedSummarizer struct {
	summary cache.Summary
}

func (f *fixedSummarizer) Summarize(ctx context.Context, content, targetLang, pageURL string) cache.Summary {
	return f.summary
}

func testServer(t *testing.T, opts ...Option) (*Server, *session.Manager) {
	t.Helper()
	manager := session.NewManager(&echoTranslator{}, cache.New(nil), session.Config{
		SettleDelay: time.Millisecond,
		Scheduler:   scheduler.Config{InterBatchDelay: time.Millisecond},
	})
	return NewServer(manager, opts...), manager
}

func attachPage(manager *session.Manager, pageID, text string) {
	doc := dom.NewDocument("https://example.test",
		dom.NewElement("body").Append(dom.NewElement("p").Append(dom.NewText(text))))
	manager.Attach(pageID, doc)
}

func doRequest(t *testing.T, server *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_ListSessions(t *testing.T) {
	server, manager := testServer(t)
	attachPage(manager, "page-1", "Hello world")

	rec := doRequest(t, server, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snaps []session.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snaps))
	require.Len(t, snaps, 1)
	assert.Equal(t, "page-1", snaps[0].PageID)
	assert.Equal(t, session.PhaseIdle, snaps[0].Phase)
}

func TestServer_PageSnapshot(t *testing.T) {
	server, manager := testServer(t)
	attachPage(manager, "page-1", "Hello world")

	rec := doRequest(t, server, http.MethodGet, "/api/pages/page-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "page-1", snap.PageID)
}

func TestServer_UnknownPage(t *testing.T) {
	server, _ := testServer(t)
	rec := doRequest(t, server, http.MethodGet, "/api/pages/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_StartIsAsynchronous(t *testing.T) {
	server, manager := testServer(t)
	attachPage(manager, "page-1", "Hello world")

	rec := doRequest(t, server, http.MethodPost, "/api/pages/page-1/start", map[string]string{
		"target_language": "fr",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	controller, ok := manager.Session("page-1")
	require.True(t, ok)
	require.Eventually(t, func() bool {
		return controller.Phase() == session.PhaseActive
	}, time.Second, 10*time.Millisecond)

	controller.Stop()
}

func TestServer_StartRequiresTargetLanguage(t *testing.T) {
	server, manager := testServer(t)
	attachPage(manager, "page-1", "Hello world")

	rec := doRequest(t, server, http.MethodPost, "/api/pages/page-1/start", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_LanguageDefaultsSourceToAuto(t *testing.T) {
	server, manager := testServer(t)
	attachPage(manager, "page-1", "Hello world")

	controller, ok := manager.Session("page-1")
	require.True(t, ok)
	require.NoError(t, controller.Start("en", "fr"))

	rec := doRequest(t, server, http.MethodPut, "/api/pages/page-1/language", map[string]string{
		"target_language": "es",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		snap := controller.Snapshot()
		return snap.Phase == session.PhaseActive &&
			snap.SourceLanguage == "auto" &&
			snap.TargetLanguage == "es"
	}, time.Second, 10*time.Millisecond)

	controller.Stop()
}

func TestServer_LanguageRequiresTargetLanguage(t *testing.T) {
	server, manager := testServer(t)
	attachPage(manager, "page-1", "Hello world")

	rec := doRequest(t, server, http.MethodPut, "/api/pages/page-1/language", map[string]string{
		"source_language": "en",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_StopReturnsSnapshot(t *testing.T) {
	server, manager := testServer(t)
	attachPage(manager, "page-1", "Hello world")

	rec := doRequest(t, server, http.MethodPost, "/api/pages/page-1/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, session.PhaseIdle, snap.Phase)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	server, manager := testServer(t)
	attachPage(manager, "page-1", "Hello world")

	assert.Equal(t, http.StatusMethodNotAllowed,
		doRequest(t, server, http.MethodPost, "/api/sessions", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed,
		doRequest(t, server, http.MethodGet, "/api/pages/page-1/start", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed,
		doRequest(t, server, http.MethodPost, "/api/pages/page-1/language", nil).Code)
}

func TestServer_Summarize(t *testing.T) {
	summary := cache.Summary{
		Title:  "Overview",
		Points: []cache.SummaryPoint{{Emoji: "📌", Text: "One point"}},
	}
	server, _ := testServer(t, WithSummarizer(&fixedSummarizer{summary: summary}))

	rec := doRequest(t, server, http.MethodPost, "/api/summarize", map[string]string{
		"content":         "page body",
		"target_language": "en",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var got cache.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, summary, got)
}

func TestServer_SummarizeUnconfigured(t *testing.T) {
	server, _ := testServer(t)
	rec := doRequest(t, server, http.MethodPost, "/api/summarize", map[string]string{
		"content":         "page body",
		"target_language": "en",
	})
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}
