package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/xBurningGiraffe/ThreatAtlas/internal/identity"
)

// NCSIURL is the national cybersecurity index country listing.
const NCSIURL = "https://ncsi.ega.ee/ncsi-index/?order=rank&type=c"

var ncsiHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (compatible; NCSI-Scrape/1.0)",
	"Accept":     "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
}

var scoreRE = regexp.MustCompile(`(\d{1,3}(?:[.,]\d+)?)\s*%?`)

// NCSIFetcher scrapes the index table, with an optional on-disk CSV cache
// read before fetching and written best-effort after.
type NCSIFetcher struct {
	URL       string
	CachePath string
	Client    *http.Client
}

// NewNCSIFetcher builds a fetcher; cachePath may be empty to disable the
// cache.
func NewNCSIFetcher(cachePath string) *NCSIFetcher {
	return &NCSIFetcher{URL: NCSIURL, CachePath: cachePath, Client: newClient()}
}

// Fetch returns the tabulated index rows, deduplicated by normalized
// country name, preferring the better (smaller) rank.
func (f *NCSIFetcher) Fetch(ctx context.Context) ([]NCSIRow, error) {
	if f.CachePath != "" {
		if rows, err := readNCSICache(f.CachePath); err == nil && len(rows) > 0 {
			return rows, nil
		}
	}

	req, err := newRequest(ctx, f.URL, ncsiHeaders)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ncsi: unexpected status %s", resp.Status)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, err
	}
	rows, err := parseNCSI(doc)
	if err != nil {
		return nil, err
	}

	if f.CachePath != "" {
		if err := writeNCSICache(f.CachePath, rows); err != nil {
			slog.Warn("ncsi: cache write failed", "path", f.CachePath, "error", err)
		}
	}
	return rows, nil
}

// parseNCSI extracts (country, score, rank) rows from the index page. It
// prefers the dedicated countries table but falls back to scanning every
// table row on the page.
func parseNCSI(doc *html.Node) ([]NCSIRow, error) {
	table := findNode(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "table" &&
			(attr(n, "id") == "full-countries-table" ||
				strings.Contains(attr(n, "class"), "full-countries-table"))
	})
	root := doc
	if table != nil {
		root = table
	}

	var out []NCSIRow
	for _, tr := range findNodes(root, isElement("tr")) {
		country := countryFromRow(tr)
		if country == "" {
			continue
		}
		score, ok := scoreFromRow(tr)
		if !ok {
			continue
		}
		out = append(out, NCSIRow{Country: country, Score: score, Rank: rankFromRow(tr)})
	}
	if len(out) == 0 {
		return nil, errors.New("ncsi: parsed zero rows; page structure may have changed")
	}
	return dedupeNCSI(out), nil
}

// countryFromRow picks the country link with visible text, skipping the
// flag-icon anchor.
func countryFromRow(tr *html.Node) string {
	var fallback string
	for _, a := range findNodes(tr, isElement("a")) {
		if !strings.HasPrefix(attr(a, "href"), "/country/") {
			continue
		}
		text := strings.TrimSpace(nodeText(a))
		if text == "" {
			continue
		}
		if strings.Contains(attr(a, "class"), "flag-icon") {
			fallback = text
			continue
		}
		cleaned := identity.CleanName(text)
		if cleaned != "" {
			return cleaned
		}
	}
	return identity.CleanName(fallback)
}

// scoreFromRow tries the dedicated score markup in priority order before
// falling back to the row text.
func scoreFromRow(tr *html.Node) (float64, bool) {
	preferred := []func(*html.Node) bool{
		func(n *html.Node) bool {
			return isElement("strong")(n) && insideClass(n, tr, "td", "blue-frame")
		},
		func(n *html.Node) bool { return hasClass(n, "value-size") },
		func(n *html.Node) bool { return hasClass(n, "c-blue-light") },
		func(n *html.Node) bool { return isElement("strong")(n) && insideClass(n, tr, "td", "") },
		func(n *html.Node) bool { return isElement("span")(n) && insideClass(n, tr, "td", "") },
	}
	for _, pred := range preferred {
		for _, n := range findNodes(tr, pred) {
			if v, ok := parseScore(nodeText(n)); ok {
				return v, true
			}
		}
	}
	return parseScore(nodeText(tr))
}

func hasClass(n *html.Node, class string) bool {
	return n.Type == html.ElementNode && strings.Contains(attr(n, "class"), class) && class != ""
}

// insideClass reports whether n sits under an ancestor element (up to stop)
// with the given name and, when class is non-empty, that class.
func insideClass(n *html.Node, stop *html.Node, name, class string) bool {
	for p := n.Parent; p != nil && p != stop.Parent; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == name {
			if class == "" || strings.Contains(attr(p, "class"), class) {
				return true
			}
		}
	}
	return false
}

func rankFromRow(tr *html.Node) *int {
	tds := findNodes(tr, isElement("td"))
	if len(tds) == 0 {
		return nil
	}
	m := regexp.MustCompile(`\d+`).FindString(nodeText(tds[0]))
	if m == "" {
		return nil
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &v
}

// parseScore extracts a 0-100 value, tolerating a trailing percent sign and
// a comma decimal separator.
func parseScore(text string) (float64, bool) {
	m := scoreRE.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	x := m[1]
	if strings.Count(x, ",") == 1 && !strings.Contains(x, ".") {
		x = strings.ReplaceAll(x, ",", ".")
	} else {
		x = strings.ReplaceAll(x, ",", "")
	}
	v, err := strconv.ParseFloat(x, 64)
	if err != nil || v < 0 || v > 100 {
		return 0, false
	}
	return v, true
}

// dedupeNCSI keeps one row per normalized name, preferring a present,
// smaller rank.
func dedupeNCSI(rows []NCSIRow) []NCSIRow {
	best := make(map[string]NCSIRow)
	var order []string
	for _, r := range rows {
		key := identity.Normalize(r.Country)
		cur, seen := best[key]
		if !seen {
			best[key] = r
			order = append(order, key)
			continue
		}
		if betterRank(r.Rank, cur.Rank) {
			best[key] = r
		}
	}
	out := make([]NCSIRow, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

func betterRank(a, b *int) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return *a < *b
}

// LoadNCSICSV reads a previously cached (or hand-curated) index CSV.
func LoadNCSICSV(path string) ([]NCSIRow, error) {
	return readNCSICache(path)
}

func readNCSICache(path string) ([]NCSIRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rec, err := csv.NewReader(f).ReadAll()
	if err != nil || len(rec) < 2 {
		return nil, errors.New("ncsi: invalid cache")
	}
	head := indexHeader(rec[0])
	ci, okCountry := head["Country"]
	si, okScore := head["NCSI_Score"]
	if !okCountry || !okScore {
		return nil, errors.New("ncsi: invalid cache header")
	}
	ri, hasRank := head["NCSI_Rank"]

	var rows []NCSIRow
	for _, r := range rec[1:] {
		if ci >= len(r) || si >= len(r) {
			continue
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(r[si]), 64)
		if err != nil {
			continue
		}
		row := NCSIRow{Country: r[ci], Score: score}
		if hasRank && ri < len(r) {
			if v, err := strconv.Atoi(strings.TrimSpace(r[ri])); err == nil {
				row.Rank = &v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func writeNCSICache(path string, rows []NCSIRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Country", "NCSI_Score", "NCSI_Rank"}); err != nil {
		return err
	}
	for _, r := range rows {
		rank := ""
		if r.Rank != nil {
			rank = strconv.Itoa(*r.Rank)
		}
		if err := w.Write([]string{r.Country, strconv.FormatFloat(r.Score, 'f', -1, 64), rank}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func indexHeader(head []string) map[string]int {
	m := make(map[string]int, len(head))
	for i, h := range head {
		m[strings.TrimSpace(h)] = i
	}
	return m
}

// ---- minimal HTML helpers ----

func isElement(name string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == name
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findNode(root *html.Node, pred func(*html.Node) bool) *html.Node {
	if pred(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, pred); found != nil {
			return found
		}
	}
	return nil
}

func findNodes(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n != root && pred(n) {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
