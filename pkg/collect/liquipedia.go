package collect

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const liquipediaURL = "https://liquipedia.net"

var (
	// Date ranges render like "Nov 24 - Dec 14, 2025" or "Jan 22 - 28, 2024".
	eventDatePattern = regexp.MustCompile(`([A-Z][a-z]{2}\s+\d{1,2}(?:\s*-\s*(?:[A-Z][a-z]{2}\s+)?\d{1,2})?,\s*\d{4})`)
	prizePattern     = regexp.MustCompile(`\$[\d,]+`)
)

// Liquipedia collects the S-Tier tournament calendar.
type Liquipedia struct {
	client   *resty.Client
	page     string
	lookback time.Duration
}

// NewLiquipedia creates an S-tier event collector.
func NewLiquipedia(page string, lookbackDays int) *Liquipedia {
	if page == "" {
		page = "/counterstrike/S-Tier_Tournaments"
	}
	if lookbackDays <= 0 {
		lookbackDays = 365
	}

	client := resty.New().
		SetBaseURL(liquipediaURL).
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36").
		SetRetryCount(2).
		SetRetryWaitTime(15 * time.Second)

	return &Liquipedia{
		client:   client,
		page:     page,
		lookback: time.Duration(lookbackDays) * 24 * time.Hour,
	}
}

func (l *Liquipedia) Name() SourceType { return SourceEvents }

// Collect scrapes the tournament grid and keeps events whose end date falls
// inside the lookback window, sorted by start date.
func (l *Liquipedia) Collect(ctx context.Context) (*Result, error) {
	resp, err := l.client.R().SetContext(ctx).Get(l.page)
	if err != nil {
		return nil, fmt.Errorf("fetch tournaments: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("tournaments status %d", resp.StatusCode())
	}

	tournaments, err := parseTournaments(resp.Body())
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-l.lookback)
	res := &Result{}
	for _, t := range tournaments {
		if t.End.Before(cutoff) {
			continue
		}
		res.Tournaments = append(res.Tournaments, t)
	}

	sort.Slice(res.Tournaments, func(i, j int) bool {
		return res.Tournaments[i].Start.Before(res.Tournaments[j].Start)
	})
	return res, nil
}

// parseTournaments extracts tournaments from the page's gridRow divs. Rows
// missing a name or a parsable date range are skipped silently: the grid
// carries header and spacer rows too.
func parseTournaments(html []byte) ([]Tournament, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse tournaments page: %w", err)
	}

	var tournaments []Tournament
	doc.Find("div.gridRow").Each(func(_ int, row *goquery.Selection) {
		name := tournamentName(row)
		if name == "" {
			return
		}

		text := row.Text()
		dateStr := eventDatePattern.FindString(text)
		if dateStr == "" {
			return
		}
		start, end, err := parseDateRange(dateStr)
		if err != nil {
			return
		}

		t := Tournament{
			Name:      name,
			Start:     start,
			End:       end,
			PrizePool: prizePattern.FindString(text),
			Location:  rowLocation(row),
		}
		tournaments = append(tournaments, t)
	})

	if len(tournaments) == 0 {
		return nil, fmt.Errorf("no tournaments found, page structure may have changed")
	}
	return tournaments, nil
}

func tournamentName(row *goquery.Selection) string {
	name := ""
	row.Find("div.Tournament a[href*='/counterstrike/']").Each(func(_ int, link *goquery.Selection) {
		text := strings.TrimSpace(link.Text())
		if len(text) > 3 {
			name = text
		}
	})
	return name
}

func rowLocation(row *goquery.Selection) string {
	loc := ""
	row.Find("img[src*='hd.png']").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if alt, ok := img.Attr("alt"); ok && alt != "" {
			loc = alt
			return false
		}
		return true
	})
	return loc
}

// parseDateRange parses the grid's date formats: a plain date "Feb 10, 2024",
// a same-month range "Jan 22 - 28, 2024", and a cross-month range
// "Nov 24 - Dec 14, 2025".
func parseDateRange(s string) (start, end time.Time, err error) {
	const layout = "Jan 2, 2006"
	s = strings.TrimSpace(s)

	if !strings.Contains(s, " - ") {
		d, err := time.Parse(layout, s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse event date %q: %w", s, err)
		}
		return d, d, nil
	}

	parts := strings.SplitN(s, " - ", 2)
	left := strings.TrimSpace(parts[0])   // "Nov 24"
	right := strings.TrimSpace(parts[1])  // "Dec 14, 2025" or "28, 2024"
	yearIdx := strings.LastIndex(right, ", ")
	if yearIdx < 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("parse event date %q: no year", s)
	}
	year := strings.TrimSpace(right[yearIdx+2:])

	start, err = time.Parse(layout, left+", "+year)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse event start %q: %w", s, err)
	}

	endPart := strings.TrimSpace(right[:yearIdx])
	if !strings.ContainsAny(endPart, "JFMASOND") {
		// Day only: same month as the start.
		endPart = left[:strings.Index(left, " ")] + " " + endPart
	}
	end, err = time.Parse(layout, endPart+", "+year)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse event end %q: %w", s, err)
	}

	return start, end, nil
}
