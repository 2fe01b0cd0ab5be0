package followup

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestHandler_List(t *testing.T) {
	store := NewMemoryStore()
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	seedFollowUps(t, store,
		FollowUp{ServiceName: "QUIMIOTERAPIA", DateRequest: day, Status: StatusRealizado},
		FollowUp{ServiceName: "CONSULTA", DateRequest: day},
		FollowUp{ServiceName: "TAC", DateRequest: day},
	)
	h := NewHandler(store)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/follow-ups?status=pendiente&limit=1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Data    []FollowUp `json:"data"`
		Total   int        `json:"total"`
		HasMore bool       `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 2 || len(body.Data) != 1 || !body.HasMore {
		t.Errorf("unexpected page: total=%d items=%d hasMore=%v", body.Total, len(body.Data), body.HasMore)
	}
	if body.Data[0].ServiceName != "CONSULTA" {
		t.Errorf("expected CONSULTA first, got %s", body.Data[0].ServiceName)
	}
}

func TestHandler_List_Empty(t *testing.T) {
	h := NewHandler(NewMemoryStore())
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/follow-ups", nil), rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if string(body["data"]) != "[]" {
		t.Errorf("expected empty array, got %s", body["data"])
	}
}

func TestHandler_List_BadStatus(t *testing.T) {
	h := NewHandler(NewMemoryStore())
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/follow-ups?status=LOST", nil), httptest.NewRecorder())

	err := h.List(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
