package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/xBurningGiraffe/ThreatAtlas/internal/identity"
)

// SpamURL is the Talos top spam senders feed.
const SpamURL = "https://www.talosintelligence.com/cloud_intel/top_senders_list"

// SpamFetcher pulls the per-country spam magnitude feed.
type SpamFetcher struct {
	URL    string
	Client *http.Client
}

// NewSpamFetcher builds a fetcher for the default feed endpoint.
func NewSpamFetcher() *SpamFetcher {
	return &SpamFetcher{URL: SpamURL, Client: newClient()}
}

type talosEntry struct {
	CountryInfo struct {
		Code string `json:"code"`
		Name string `json:"name"`
	} `json:"country_info"`
	DayMagnitudeX10 *float64 `json:"day_magnitude_x10"`
}

type talosResponse struct {
	SpamCountry []talosEntry `json:"spam_country"`
	Data        struct {
		SpamCountry []talosEntry `json:"spam_country"`
	} `json:"data"`
}

// Fetch returns one row per sending country. The feed reports magnitude
// scaled by ten on a log10 scale; the global share follows from it.
func (f *SpamFetcher) Fetch(ctx context.Context) ([]SpamRow, error) {
	req, err := newRequest(ctx, f.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spam feed: unexpected status %s", resp.Status)
	}

	var body talosResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("spam feed: decode: %w", err)
	}
	entries := body.SpamCountry
	if len(entries) == 0 {
		entries = body.Data.SpamCountry
	}

	rows := make([]SpamRow, 0, len(entries))
	for _, e := range entries {
		if e.DayMagnitudeX10 == nil {
			continue
		}
		mag := *e.DayMagnitudeX10 / 10.0
		rows = append(rows, SpamRow{
			ISO2:      strings.ToUpper(strings.TrimSpace(e.CountryInfo.Code)),
			Country:   identity.CleanName(e.CountryInfo.Name),
			Magnitude: mag,
			GlobalPct: 100.0 * math.Pow(10, mag-10.0),
		})
	}
	return rows, nil
}
