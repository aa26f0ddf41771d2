package collect

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
)

const steamChartsURL = "https://steamcharts.com"

// Players collects daily average concurrent player counts for one app from
// the steamcharts chart-data endpoint.
type Players struct {
	client   *resty.Client
	appID    int
	lookback time.Duration
}

// NewPlayers creates a player-count collector.
func NewPlayers(appID int, lookbackDays int) *Players {
	if appID == 0 {
		appID = 730
	}
	if lookbackDays <= 0 {
		lookbackDays = 365
	}

	client := resty.New().
		SetBaseURL(steamChartsURL).
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", "caseradar/1.0").
		SetRetryCount(2).
		SetRetryWaitTime(10 * time.Second)

	return &Players{
		client:   client,
		appID:    appID,
		lookback: time.Duration(lookbackDays) * 24 * time.Hour,
	}
}

func (p *Players) Name() SourceType { return SourcePlayers }

// Collect fetches the [millisecond-timestamp, players] series and averages
// it per calendar day.
func (p *Players) Collect(ctx context.Context) (*Result, error) {
	var samples [][2]float64
	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&samples).
		Get(fmt.Sprintf("/app/%d/chart-data.json", p.appID))
	if err != nil {
		return nil, fmt.Errorf("fetch player chart: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("player chart status %d", resp.StatusCode())
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("player chart empty")
	}

	cutoff := time.Now().Add(-p.lookback)

	type acc struct {
		sum float64
		n   int
	}
	days := make(map[string]*acc)

	for _, s := range samples {
		at := time.UnixMilli(int64(s[0])).UTC()
		if at.Before(cutoff) {
			continue
		}
		key := DayKey(at)
		a := days[key]
		if a == nil {
			a = &acc{}
			days[key] = a
		}
		a.sum += s[1]
		a.n++
	}

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	res := &Result{}
	for _, k := range keys {
		day, _ := ParseDayKey(k)
		a := days[k]
		res.Players = append(res.Players, PlayerCount{
			Date:           day,
			AveragePlayers: int(a.sum / float64(a.n)),
		})
	}
	return res, nil
}
