package pagination

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(newContext("/"))

	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := FromContext(newContext("/?limit=20&offset=10"))

	if p.Limit != 20 {
		t.Errorf("expected limit 20, got %d", p.Limit)
	}
	if p.Offset != 10 {
		t.Errorf("expected offset 10, got %d", p.Offset)
	}
}

func TestFromContext_Clamps(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"/?limit=5000", MaxLimit, 0},
		{"/?limit=-3", DefaultLimit, 0},
		{"/?limit=abc&offset=xyz", DefaultLimit, 0},
		{"/?offset=-5", DefaultLimit, 0},
	}
	for _, tt := range tests {
		p := FromContext(newContext(tt.query))
		if p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
			t.Errorf("%s: got limit=%d offset=%d, want %d/%d", tt.query, p.Limit, p.Offset, tt.wantLimit, tt.wantOffset)
		}
	}
}

func TestParams_HasNext(t *testing.T) {
	tests := []struct {
		offset, limit, total int
		want                 bool
	}{
		{0, 10, 25, true},
		{20, 10, 25, false},
		{10, 10, 20, false},
		{0, 10, 0, false},
	}
	for _, tt := range tests {
		p := Params{Limit: tt.limit, Offset: tt.offset}
		if got := p.HasNext(tt.total); got != tt.want {
			t.Errorf("HasNext(offset=%d, limit=%d, total=%d) = %v, want %v", tt.offset, tt.limit, tt.total, got, tt.want)
		}
	}
}

func TestParams_PreviousOffset(t *testing.T) {
	if got := (Params{Limit: 10, Offset: 25}).PreviousOffset(); got != 15 {
		t.Errorf("expected 15, got %d", got)
	}
	if got := (Params{Limit: 10, Offset: 5}).PreviousOffset(); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestParams_Links_MiddlePage(t *testing.T) {
	p := Params{Limit: 10, Offset: 10}
	query := url.Values{"status": {"PENDIENTE"}, "offset": {"10"}}

	links := p.Links("/api/v1/follow-ups", query, 35)

	if links.Self != "/api/v1/follow-ups?limit=10&offset=10&status=PENDIENTE" {
		t.Errorf("unexpected self link %q", links.Self)
	}
	if !strings.Contains(links.Next, "offset=20") || !strings.Contains(links.Next, "status=PENDIENTE") {
		t.Errorf("unexpected next link %q", links.Next)
	}
	if !strings.Contains(links.Previous, "offset=0") {
		t.Errorf("unexpected previous link %q", links.Previous)
	}
	if query.Get("limit") != "" {
		t.Error("Links must not modify the caller's query")
	}
}

func TestParams_Links_SinglePage(t *testing.T) {
	links := Params{Limit: 50}.Links("/x", nil, 3)
	if links.Next != "" || links.Previous != "" {
		t.Errorf("expected no neighbours, got %+v", links)
	}
}

func TestNewResponse(t *testing.T) {
	c := newContext("/api/v1/follow-ups?limit=2")
	p := FromContext(c)

	resp := NewResponse(c, []string{"a", "b"}, 5, p)

	if resp.Total != 5 || resp.Limit != 2 || resp.Offset != 0 {
		t.Errorf("unexpected response %+v", resp)
	}
	if !resp.HasMore {
		t.Error("expected HasMore")
	}
	if !strings.HasPrefix(resp.Links.Next, "/api/v1/follow-ups?") {
		t.Errorf("unexpected next link %q", resp.Links.Next)
	}
}
