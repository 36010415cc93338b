package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", DefaultLimit, 0},
		{"explicit", "limit=50&offset=10", 50, 10},
		{"limit capped", "limit=5000", MaxLimit, 0},
		{"negative ignored", "limit=-1&offset=-5", DefaultLimit, 0},
		{"garbage ignored", "limit=abc&offset=xyz", DefaultLimit, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := paramsFor(t, tc.query)
			if p.Limit != tc.wantLimit || p.Offset != tc.wantOffset {
				t.Errorf("got {%d %d}, want {%d %d}", p.Limit, p.Offset, tc.wantLimit, tc.wantOffset)
			}
		})
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	r := NewResponse([]int{1, 2, 3}, 10, 3, 0)
	if !r.HasMore {
		t.Error("expected HasMore with 7 remaining")
	}
	r = NewResponse([]int{1}, 1, 20, 0)
	if r.HasMore {
		t.Error("expected no more results")
	}
}

func TestParams_Offsets(t *testing.T) {
	p := Params{Limit: 20, Offset: 20}
	if p.NextOffset() != 40 {
		t.Errorf("NextOffset: got %d", p.NextOffset())
	}
	if p.PreviousOffset() != 0 {
		t.Errorf("PreviousOffset: got %d", p.PreviousOffset())
	}
	p = Params{Limit: 20, Offset: 10}
	if p.PreviousOffset() != 0 {
		t.Errorf("PreviousOffset clamps at 0: got %d", p.PreviousOffset())
	}
	if !p.HasNext(100) {
		t.Error("expected HasNext")
	}
	if p.HasNext(25) {
		t.Error("expected no next page")
	}
}
