package models

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestProductRow(t *testing.T) {
	p := Product{
		"product_title":  "Widget",
		"product_rating": "4",
		"unlisted":       "dropped",
	}
	got := p.Row([]string{"product_title", "line_description", "product_rating"})
	want := []string{"Widget", "", "4"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("row mismatch (-want +got):\n%s", diff)
	}
}

func TestScrapeResultStatus(t *testing.T) {
	item := RawItem{"FinalPrice": "1"}
	tests := []struct {
		name   string
		result ScrapeResult
		want   RunStatus
	}{
		{name: "no pages", result: ScrapeResult{}, want: RunSkipped},
		{
			name:   "empty pages",
			result: ScrapeResult{Pages: []FetchResult{{PageIndex: 1, Status: FetchEmpty}}},
			want:   RunEmpty,
		},
		{
			name: "complete",
			result: ScrapeResult{
				Pages: []FetchResult{{PageIndex: 1, Status: FetchOK}},
				Items: []RawItem{item},
			},
			want: RunComplete,
		},
		{
			name: "partial",
			result: ScrapeResult{
				Pages: []FetchResult{
					{PageIndex: 1, Status: FetchOK},
					{PageIndex: 2, Status: FetchFailed, Err: errors.New("boom")},
				},
				Items:      []RawItem{item},
				ErrorCount: 1,
			},
			want: RunPartial,
		},
		{
			name: "failed",
			result: ScrapeResult{
				Pages:      []FetchResult{{PageIndex: 1, Status: FetchFailed}},
				ErrorCount: 1,
			},
			want: RunFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Status(); got != tt.want {
				t.Fatalf("status = %q, want %q", got, tt.want)
			}
		})
	}
}
