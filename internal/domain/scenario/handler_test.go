package scenario

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/exermed/exermed/internal/sim"
)

func newTestHandler() (*Handler, *mockRepo) {
	svc, repo := newTestService()
	return NewHandler(svc), repo
}

func TestCreateTemplateEndpoint(t *testing.T) {
	h, _ := newTestHandler()
	e := echo.New()

	body, _ := json.Marshal(Template{Name: "northern-front", Config: sim.DefaultScenario()})
	req := httptest.NewRequest(http.MethodPost, "/scenarios", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateTemplate(c); err != nil {
		t.Fatalf("CreateTemplate() error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}

	var created Template
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("response decode failed: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Error("created template has no id")
	}
	if created.Builtin {
		t.Error("API-created template must not be builtin")
	}
}

func TestCreateTemplateEndpointRejectsInvalidConfig(t *testing.T) {
	h, _ := newTestHandler()
	e := echo.New()

	body, _ := json.Marshal(Template{Name: "broken", Config: sim.ScenarioConfig{}})
	req := httptest.NewRequest(http.MethodPost, "/scenarios", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.CreateTemplate(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", httpErr.Code, http.StatusBadRequest)
	}
}

func TestGetTemplateEndpointNotFound(t *testing.T) {
	h, _ := newTestHandler()
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	err := h.GetTemplate(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", httpErr.Code, http.StatusNotFound)
	}
}

func TestListTemplatesEndpoint(t *testing.T) {
	h, repo := newTestHandler()
	e := echo.New()

	for _, name := range []string{"alpha", "bravo"} {
		repo.Create(context.Background(), &Template{Name: name, Config: sim.DefaultScenario()})
	}

	req := httptest.NewRequest(http.MethodGet, "/scenarios?limit=10", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListTemplates(c); err != nil {
		t.Fatalf("ListTemplates() error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Data  []*Template `json:"data"`
		Total int         `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response decode failed: %v", err)
	}
	if resp.Total != 2 || len(resp.Data) != 2 {
		t.Errorf("total = %d, data = %d, want 2 and 2", resp.Total, len(resp.Data))
	}
}

func TestValidateConfigEndpoint(t *testing.T) {
	h, _ := newTestHandler()
	e := echo.New()

	body, _ := json.Marshal(sim.DefaultScenario())
	req := httptest.NewRequest(http.MethodPost, "/scenarios/validate", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ValidateConfig(c); err != nil {
		t.Fatalf("ValidateConfig() error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestValidateConfigEndpointReportsViolations(t *testing.T) {
	h, _ := newTestHandler()
	e := echo.New()

	body, _ := json.Marshal(sim.ScenarioConfig{})
	req := httptest.NewRequest(http.MethodPost, "/scenarios/validate", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.ValidateConfig(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", httpErr.Code, http.StatusUnprocessableEntity)
	}
}
