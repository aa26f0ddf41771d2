package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
)

const steamBaseURL = "https://steamcommunity.com"

// Steam listing pages embed the full price history as a JS literal:
// var line1=[["Dec 18 2013 01: +0",1.611,"277"], ...];
var line1Pattern = regexp.MustCompile(`var line1=(\[\[.*?\]\]);`)

const steamPointLayout = "Jan 02 2006 15: +0"

// Steam collects per-case price history from Steam Community Market
// listing pages.
type Steam struct {
	client   *resty.Client
	appID    int
	items    []string
	lookback time.Duration
	delay    time.Duration
}

// NewSteam creates a Steam Market collector for the given case names.
func NewSteam(appID int, items []string, lookbackDays int, delay time.Duration) *Steam {
	if appID == 0 {
		appID = 730
	}
	if lookbackDays <= 0 {
		lookbackDays = 365
	}
	if delay <= 0 {
		delay = 5 * time.Second
	}

	client := resty.New().
		SetBaseURL(steamBaseURL).
		SetTimeout(20 * time.Second).
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36").
		SetHeader("Accept-Language", "en-US,en;q=0.5").
		SetHeader("Referer", steamBaseURL+"/").
		SetRetryCount(3).
		SetRetryWaitTime(time.Minute).
		SetRetryMaxWaitTime(3 * time.Minute).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r.StatusCode() == http.StatusTooManyRequests
		})

	return &Steam{
		client:   client,
		appID:    appID,
		items:    items,
		lookback: time.Duration(lookbackDays) * 24 * time.Hour,
		delay:    delay,
	}
}

func (s *Steam) Name() SourceType { return SourceSteam }

// Collect fetches price history for every configured case. A failed case is
// skipped, not fatal: long scrape runs should keep whatever they got.
func (s *Steam) Collect(ctx context.Context) (*Result, error) {
	res := &Result{}
	cutoff := time.Now().Add(-s.lookback)

	for i, name := range s.items {
		obs, err := s.collectItem(ctx, name, cutoff)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  steam %q error: %v\n", name, err)
		} else {
			res.Prices = append(res.Prices, obs...)
		}

		if i < len(s.items)-1 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(s.delay):
			}
		}
	}

	return res, nil
}

func (s *Steam) collectItem(ctx context.Context, name string, cutoff time.Time) ([]PriceObservation, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/market/listings/%d/%s", s.appID, url.PathEscape(name)))
	if err != nil {
		return nil, fmt.Errorf("fetch listing %q: %w", name, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("listing %q status %d", name, resp.StatusCode())
	}

	points, err := extractPriceHistory(resp.String())
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", name, err)
	}

	return aggregateDaily(name, points, cutoff), nil
}

// pricePoint is one raw entry of the embedded line1 array. Recent days carry
// hourly points, older history one median point per day.
type pricePoint struct {
	At     time.Time
	Price  float64
	Volume int
}

// extractPriceHistory pulls the line1 JS array out of a listing page.
func extractPriceHistory(html string) ([]pricePoint, error) {
	m := line1Pattern.FindStringSubmatch(html)
	if m == nil {
		return nil, fmt.Errorf("price history not found in page")
	}

	var raw [][]any
	if err := json.Unmarshal([]byte(m[1]), &raw); err != nil {
		return nil, fmt.Errorf("parse price history: %w", err)
	}

	points := make([]pricePoint, 0, len(raw))
	for _, entry := range raw {
		if len(entry) < 2 {
			continue
		}
		dateStr, ok := entry[0].(string)
		if !ok {
			continue
		}
		price, ok := entry[1].(float64)
		if !ok {
			continue
		}
		at, err := time.Parse(steamPointLayout, dateStr)
		if err != nil {
			continue
		}

		volume := 0
		if len(entry) > 2 {
			if v, ok := entry[2].(string); ok {
				fmt.Sscanf(v, "%d", &volume)
			}
		}

		points = append(points, pricePoint{At: at.UTC(), Price: price, Volume: volume})
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("price history empty")
	}
	return points, nil
}

// aggregateDaily folds raw points into one mean-price observation per
// calendar day, dropping days before the cutoff.
func aggregateDaily(name string, points []pricePoint, cutoff time.Time) []PriceObservation {
	type acc struct {
		sum    float64
		volume int
		n      int
	}
	days := make(map[string]*acc)

	for _, p := range points {
		if p.At.Before(cutoff) {
			continue
		}
		key := DayKey(p.At)
		a := days[key]
		if a == nil {
			a = &acc{}
			days[key] = a
		}
		a.sum += p.Price
		a.volume += p.Volume
		a.n++
	}

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := time.Now().UTC()
	obs := make([]PriceObservation, 0, len(keys))
	for _, k := range keys {
		day, _ := ParseDayKey(k)
		a := days[k]
		obs = append(obs, PriceObservation{
			ItemName:    name,
			Date:        day,
			Price:       a.sum / float64(a.n),
			Volume:      a.volume,
			CollectedAt: now,
		})
	}
	return obs
}
