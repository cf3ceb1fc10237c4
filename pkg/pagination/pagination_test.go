package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, target string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor(t, "/api/v1/patients")
	if p.Limit != DefaultLimit {
		t.Errorf("limit = %d, want default %d", p.Limit, DefaultLimit)
	}
	if p.Offset != 0 {
		t.Errorf("offset = %d, want 0", p.Offset)
	}
}

func TestFromContext_ExplicitParams(t *testing.T) {
	p := paramsFor(t, "/api/v1/patients?limit=50&offset=100")
	if p.Limit != 50 {
		t.Errorf("limit = %d, want 50", p.Limit)
	}
	if p.Offset != 100 {
		t.Errorf("offset = %d, want 100", p.Offset)
	}
}

func TestFromContext_ClampsAndSanitizes(t *testing.T) {
	p := paramsFor(t, "/api/v1/patients?limit=5000&offset=-3")
	if p.Limit != MaxLimit {
		t.Errorf("limit = %d, want clamp to %d", p.Limit, MaxLimit)
	}
	if p.Offset != 0 {
		t.Errorf("offset = %d, want 0 for negative input", p.Offset)
	}

	p = paramsFor(t, "/api/v1/patients?limit=abc&offset=xyz")
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Errorf("garbage params: got %+v, want defaults", p)
	}
}

func TestParams_SQL(t *testing.T) {
	p := Params{Limit: 25, Offset: 50}
	if got := p.SQL(); got != "LIMIT 25 OFFSET 50" {
		t.Errorf("SQL() = %q", got)
	}
}

func TestParams_Paging(t *testing.T) {
	p := Params{Limit: 10, Offset: 20}
	if !p.HasNext(31) {
		t.Error("expected another page when total exceeds offset+limit")
	}
	if p.HasNext(30) {
		t.Error("expected no next page when the current page is the last")
	}
	if p.NextOffset() != 30 {
		t.Errorf("NextOffset() = %d, want 30", p.NextOffset())
	}
}

func TestNewResponse(t *testing.T) {
	data := []string{"a", "b"}
	r := NewResponse(data, 12, 10, 0)
	if !r.HasMore {
		t.Error("expected HasMore with 12 total and first page of 10")
	}

	r = NewResponse(data, 12, 10, 10)
	if r.HasMore {
		t.Error("expected HasMore false on the last page")
	}
	if r.Total != 12 || r.Limit != 10 || r.Offset != 10 {
		t.Errorf("response fields = %+v", r)
	}
}
