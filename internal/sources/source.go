// Package sources fetches and tabulates the secondary per-country datasets.
// Every fetcher is an independent collaborator: it may fail without taking
// the pipeline down, in which case its columns stay missing.
package sources

import (
	"context"
	"net/http"
	"time"
)

// NCSIRow is one tabulated row of the national cybersecurity index.
type NCSIRow struct {
	Country string  `json:"country"`
	Score   float64 `json:"ncsi_score"`
	Rank    *int    `json:"ncsi_rank,omitempty"`
}

// SpamRow is one tabulated row of the spam-sending-magnitude feed.
type SpamRow struct {
	ISO2      string  `json:"iso2"`
	Country   string  `json:"country"`
	Magnitude float64 `json:"spam_magnitude"`
	GlobalPct float64 `json:"spam_global_pct"`
}

// ExploitRow is one tabulated row of the exploited-host ranking feed.
type ExploitRow struct {
	ISO2       string `json:"iso2"`
	Rank       int    `json:"exploit_rank"`
	TotalToday *int   `json:"exploit_total_today,omitempty"`
}

const fetchTimeout = 30 * time.Second

func newClient() *http.Client {
	return &http.Client{Timeout: fetchTimeout}
}

func newRequest(ctx context.Context, url string, headers map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}
