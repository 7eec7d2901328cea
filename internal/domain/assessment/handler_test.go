package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fhirspective/fhirspective/internal/platform/fhir"
)

func newTestHandler() (*Handler, Repository, *ProgressStore, *echo.Echo) {
	repo := NewMemoryRepo()
	progress := NewProgressStore(time.Hour)
	fetcher := &fakeFetcher{resources: map[string][]fhir.Resource{"Patient": nil}}
	engine := NewEngine(repo, fetcher, progress, zerolog.Nop(), 10, 0)
	h := NewHandler(engine, repo, progress)
	return h, repo, progress, echo.New()
}

func TestHandler_CreateAssessment(t *testing.T) {
	h, _, _, e := newTestHandler()

	body := `{
		"server": {"baseUrl": "http://fhir.example.org/r4"},
		"resourceTypes": ["Patient"],
		"sampleSize": 10
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/assessments", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateAssessment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected 202, got %d", rec.Code)
	}

	var a Assessment
	json.Unmarshal(rec.Body.Bytes(), &a)
	if a.ID == uuid.Nil {
		t.Error("response carries no assessment id")
	}
}

func TestHandler_CreateAssessment_BadRequest(t *testing.T) {
	h, _, _, e := newTestHandler()

	// no resource types
	body := `{"server": {"baseUrl": "http://fhir.example.org/r4"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/assessments", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.CreateAssessment(c)
	if err == nil {
		t.Fatal("expected error for missing resource types")
	}
	var httpErr *echo.HTTPError
	if ok := errors.As(err, &httpErr); !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_GetAssessment(t *testing.T) {
	h, repo, _, e := newTestHandler()

	a := newTestAssessment("Patient")
	repo.CreateAssessment(context.Background(), a)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if err := h.GetAssessment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_GetAssessment_NotFound(t *testing.T) {
	h, _, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.GetAssessment(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_GetAssessment_InvalidID(t *testing.T) {
	h, _, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := h.GetAssessment(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_GetProgress(t *testing.T) {
	h, repo, progress, e := newTestHandler()

	a := newTestAssessment("Patient")
	repo.CreateAssessment(context.Background(), a)
	progress.Init(a.ID, a.ResourceTypes, provisionalTotal(a))
	progress.StartType(a.ID, "Patient", 10)
	progress.SetCompleted(a.ID, "Patient", 5)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if err := h.GetProgress(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var state ProgressState
	json.Unmarshal(rec.Body.Bytes(), &state)
	if state.OverallProgress != 50 {
		t.Errorf("progress = %d, want 50", state.OverallProgress)
	}
}

func TestHandler_GetProgress_AfterEviction(t *testing.T) {
	h, repo, _, e := newTestHandler()

	a := newTestAssessment("Patient")
	a.Status = StatusCompleted
	repo.CreateAssessment(context.Background(), a)
	repo.UpdateAssessmentStatus(context.Background(), a.ID, StatusCompleted)

	// No progress entry: the persisted status answers instead.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if err := h.GetProgress(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var state ProgressState
	json.Unmarshal(rec.Body.Bytes(), &state)
	if state.Status != StatusCompleted {
		t.Errorf("status = %s, want %s", state.Status, StatusCompleted)
	}
	if state.OverallProgress != 100 {
		t.Errorf("progress = %d, want 100", state.OverallProgress)
	}
}

func TestHandler_GetResults(t *testing.T) {
	h, repo, _, e := newTestHandler()
	ctx := context.Background()

	a := newTestAssessment("Patient", "Observation")
	repo.CreateAssessment(ctx, a)
	// saved out of configured order
	repo.SaveResult(ctx, &AssessmentResult{AssessmentID: a.ID, ResourceType: "Observation", QualityScore: 80})
	repo.SaveResult(ctx, &AssessmentResult{AssessmentID: a.ID, ResourceType: "Patient", QualityScore: 95})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if err := h.GetResults(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp struct {
		Results []AssessmentResult `json:"results"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	if resp.Results[0].ResourceType != "Patient" {
		t.Errorf("results not in configured type order: first = %s", resp.Results[0].ResourceType)
	}
}

func TestHandler_GetLogs(t *testing.T) {
	h, repo, _, e := newTestHandler()
	ctx := context.Background()

	a := newTestAssessment("Patient")
	repo.CreateAssessment(ctx, a)
	repo.SaveLog(ctx, &LogEntry{AssessmentID: a.ID, Level: "info", Message: "assessment started"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())

	if err := h.GetLogs(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var logs []LogEntry
	json.Unmarshal(rec.Body.Bytes(), &logs)
	if len(logs) != 1 || logs[0].Message != "assessment started" {
		t.Fatalf("unexpected logs: %+v", logs)
	}
}
