// Package discovery enumerates the record-dates each source claims to
// offer. Sources with a remote index are scraped; the rest declare a
// static coverage window and never touch the network here.
package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/gchickering21/downballot/internal/config"
	"github.com/gchickering21/downballot/internal/dataset"
	dberrors "github.com/gchickering21/downballot/internal/errors"
	"github.com/gchickering21/downballot/internal/logging"
	"github.com/gchickering21/downballot/internal/sources"
)

// archivePattern matches the per-election precinct archive names on the
// results index page, e.g. results_pct_20241105.zip.
var archivePattern = regexp.MustCompile(`results_pct_(\d{8})\.zip$`)

// Service implements sources.Discoverer over plain HTTP.
type Service struct {
	client  *http.Client
	limiter *rate.Limiter
	ua      string
	logger  *logging.Logger
}

// NewService builds a discovery service with the transport politeness
// settings shared by all outbound HTTP.
func NewService(cfg config.TransportConfig, logger *logging.Logger) *Service {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &Service{
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		ua:      cfg.UserAgent,
		logger:  logger,
	}
}

// Discover returns the universe of record-dates for one (source,
// jurisdiction) pair. Remote failures return DISCOVERY_UNAVAILABLE so the
// caller can degrade to its snapshot.
func (s *Service) Discover(ctx context.Context, profile *sources.Profile, jurisdiction string) (*sources.Universe, error) {
	stateCfg, err := profile.StateConfigFor(jurisdiction)
	if err != nil {
		return nil, err
	}

	if !profile.DiscoverableUniverse {
		return staticUniverse(stateCfg.MinSupportedDate), nil
	}

	indexURL := stateCfg.BaseURL + stateCfg.SearchPath
	events, err := s.scrapeIndex(ctx, indexURL)
	if err != nil {
		return nil, dberrors.New(
			dberrors.DiscoveryUnavailable,
			fmt.Sprintf("could not enumerate record dates for %s/%s from %s", profile.ID, jurisdiction, indexURL),
			err,
		)
	}

	dates := dataset.NewDateSet()
	for _, ev := range events {
		dates.Add(ev.Date)
	}
	s.logger.Debug("Discovered remote universe", map[string]interface{}{
		"source":       profile.ID,
		"jurisdiction": jurisdiction,
		"events":       len(events),
	})
	return &sources.Universe{Dates: dates, Events: events}, nil
}

// staticUniverse synthesizes a year-indexed window [floor, today] as
// first-of-year markers. Year-indexed sources cannot enumerate their
// record-dates remotely, so any requested range that reaches past the
// snapshot's covered span resolves to a refetch; merge dedup absorbs the
// overlap.
func staticUniverse(floor dataset.Date) *sources.Universe {
	dates := dataset.NewDateSet()
	for year := floor.Year(); year <= dataset.Today().Year(); year++ {
		dates.Add(dataset.NewDate(year, time.January, 1))
	}
	return &sources.Universe{Dates: dates, Static: true}
}

func (s *Service) scrapeIndex(ctx context.Context, indexURL string) ([]sources.DiscoveredEvent, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, indexURL, nil)
	if err != nil {
		return nil, err
	}
	if s.ua != "" {
		req.Header.Set("User-Agent", s.ua)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index page returned status %d", resp.StatusCode)
	}

	base, err := url.Parse(indexURL)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, err
	}
	return collectArchiveLinks(doc, base), nil
}

// collectArchiveLinks walks the parsed document and normalizes every
// archive anchor into a uniform event. Fields degrade independently: a
// missing label falls back to the file name, a relative href is resolved
// against the page URL, and anchors whose embedded date does not parse
// are skipped rather than failing the whole enumeration.
func collectArchiveLinks(doc *html.Node, base *url.URL) []sources.DiscoveredEvent {
	var events []sources.DiscoveredEvent
	seen := map[string]bool{}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if ev, ok := eventFromAnchor(n, base); ok && !seen[ev.URL] {
				seen[ev.URL] = true
				events = append(events, ev)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	sort.Slice(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
	return events
}

func eventFromAnchor(n *html.Node, base *url.URL) (sources.DiscoveredEvent, bool) {
	var href string
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			href = strings.TrimSpace(attr.Val)
			break
		}
	}
	m := archivePattern.FindStringSubmatch(href)
	if m == nil {
		return sources.DiscoveredEvent{}, false
	}

	date, err := parseCompactDate(m[1])
	if err != nil {
		return sources.DiscoveredEvent{}, false
	}

	resolved := href
	if u, err := url.Parse(href); err == nil {
		resolved = base.ResolveReference(u).String()
	}

	label := dataset.CleanText(anchorText(n))
	if label == "" {
		label = m[0]
	}

	return sources.DiscoveredEvent{Date: date, URL: resolved, Label: label}, true
}

// parseCompactDate parses the YYYYMMDD form embedded in archive names.
func parseCompactDate(s string) (dataset.Date, error) {
	t, err := time.Parse("20060102", s)
	if err != nil {
		return dataset.Date{}, err
	}
	return dataset.NewDate(t.Year(), t.Month(), t.Day()), nil
}

func anchorText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
