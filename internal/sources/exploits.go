package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ExploitsURL is the Spamhaus exploited-IP country ranking dataset.
const ExploitsURL = "https://www.spamhaus.org/api/v1/stats/country/datasets/exploit"

// The endpoint rejects non-browser clients.
var exploitHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/127.0.0.0 Safari/537.36",
	"Accept":  "application/json, text/javascript, */*; q=0.01",
	"Referer": "https://www.spamhaus.org/statistics/country/",
	"Origin":  "https://www.spamhaus.org",
}

// ExploitFetcher pulls the exploited-host country rankings.
type ExploitFetcher struct {
	URL    string
	Client *http.Client
}

// NewExploitFetcher builds a fetcher for the default dataset endpoint.
func NewExploitFetcher() *ExploitFetcher {
	return &ExploitFetcher{URL: ExploitsURL, Client: newClient()}
}

type spamhausResponse struct {
	Data struct {
		Rankings []struct {
			Key  string `json:"key"`
			Rank *int   `json:"rank"`
			Hits struct {
				TotalToday *int `json:"total_today"`
			} `json:"hits"`
		} `json:"rankings"`
		LatestDate string `json:"latest_date"`
	} `json:"data"`
}

// Fetch returns one row per ranked country. Entries without a two-letter
// key or a rank are skipped.
func (f *ExploitFetcher) Fetch(ctx context.Context) ([]ExploitRow, error) {
	req, err := newRequest(ctx, f.URL, exploitHeaders)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exploit feed: unexpected status %s", resp.Status)
	}

	var body spamhausResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("exploit feed: decode: %w", err)
	}

	rows := make([]ExploitRow, 0, len(body.Data.Rankings))
	for _, item := range body.Data.Rankings {
		key := strings.TrimSpace(item.Key)
		if len(key) != 2 || item.Rank == nil {
			continue
		}
		rows = append(rows, ExploitRow{
			ISO2:       strings.ToUpper(key),
			Rank:       *item.Rank,
			TotalToday: item.Hits.TotalToday,
		})
	}
	return rows, nil
}
