package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/oncofollow/oncofollow/internal/domain/followup"
)

func uploadRequest(t *testing.T, field, name string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, name)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	return req
}

func TestHandler_Import(t *testing.T) {
	store := followup.NewMemoryStore()
	h := NewHandler(newTestService(store, Options{ClassifyAfterImport: true}))
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(uploadRequest(t, "file", "seguimiento.csv", []byte(scenarioCSV)), rec)

	if err := h.Import(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var sum Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.PatientsCreated != 1 || sum.FollowUpsCreated != 1 {
		t.Errorf("unexpected summary %+v", sum)
	}
}

func TestHandler_Import_Errors(t *testing.T) {
	tests := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		locked bool
		want   int
	}{
		{
			name: "missing file",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "other", "a.csv", []byte(scenarioCSV))
			},
			want: http.StatusBadRequest,
		},
		{
			name: "unreadable",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "a.csv", []byte("x;y\n1;2\n"))
			},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "locked",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "a.csv", []byte(scenarioCSV))
			},
			locked: true,
			want:   http.StatusConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(followup.NewMemoryStore(), Options{})
			if tt.locked {
				release, err := svc.locker.Acquire(context.Background(), lockKey)
				if err != nil {
					t.Fatal(err)
				}
				defer release(context.Background())
			}
			h := NewHandler(svc)
			c := echo.New().NewContext(tt.req(t), httptest.NewRecorder())

			err := h.Import(c)
			he, ok := err.(*echo.HTTPError)
			if !ok || he.Code != tt.want {
				t.Errorf("expected %d, got %v", tt.want, err)
			}
		})
	}
}

func TestHandler_Audit(t *testing.T) {
	h := NewHandler(newTestService(followup.NewMemoryStore(), Options{}))
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil)
	rec := httptest.NewRecorder()

	if err := h.Audit(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
