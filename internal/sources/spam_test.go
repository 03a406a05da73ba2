package sources

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

const talosPayload = `{
  "spam_country": [
    {"country_info": {"code": "us", "name": "United States"}, "day_magnitude_x10": 85},
    {"country_info": {"code": "CN", "name": "China"}, "day_magnitude_x10": 80},
    {"country_info": {"code": "xx", "name": "Unattributed"}}
  ]
}`

func TestSpamFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(talosPayload))
	}))
	defer srv.Close()

	f := &SpamFetcher{URL: srv.URL, Client: srv.Client()}
	rows, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2 (nil magnitude skipped)", len(rows))
	}

	us := rows[0]
	if us.ISO2 != "US" || us.Country != "United States" {
		t.Errorf("row 0 = %+v", us)
	}
	if us.Magnitude != 8.5 {
		t.Errorf("magnitude = %v, want 8.5", us.Magnitude)
	}
	wantPct := 100.0 * math.Pow(10, 8.5-10.0)
	if math.Abs(us.GlobalPct-wantPct) > 1e-9 {
		t.Errorf("global pct = %v, want %v", us.GlobalPct, wantPct)
	}
}

func TestSpamFetcherNestedData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"spam_country": [{"country_info": {"code": "br", "name": "Brazil"}, "day_magnitude_x10": 78}]}}`))
	}))
	defer srv.Close()

	f := &SpamFetcher{URL: srv.URL, Client: srv.Client()}
	rows, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].ISO2 != "BR" || rows[0].Magnitude != 7.8 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestSpamFetcherBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>blocked</html>"))
	}))
	defer srv.Close()

	f := &SpamFetcher{URL: srv.URL, Client: srv.Client()}
	if _, err := f.Fetch(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}
