package collect

import (
	"testing"
	"time"
)

func TestParseDateRange(t *testing.T) {
	d := func(y int, m time.Month, day int) time.Time {
		return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		in         string
		start, end time.Time
		wantErr    bool
	}{
		{"Feb 10, 2024", d(2024, 2, 10), d(2024, 2, 10), false},
		{"Jan 22 - 28, 2024", d(2024, 1, 22), d(2024, 1, 28), false},
		{"Nov 24 - Dec 14, 2025", d(2025, 11, 24), d(2025, 12, 14), false},
		{"Mar 17 - 31, 2024", d(2024, 3, 17), d(2024, 3, 31), false},
		{"garbage", time.Time{}, time.Time{}, true},
		{"Jan 22 - 28", time.Time{}, time.Time{}, true},
	}
	for _, tt := range tests {
		start, end, err := parseDateRange(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDateRange(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		if !start.Equal(tt.start) || !end.Equal(tt.end) {
			t.Errorf("parseDateRange(%q) = %s .. %s, want %s .. %s",
				tt.in, start, end, tt.start, tt.end)
		}
	}
}

const sampleGrid = `<html><body>
<div class="gridTable">
<div class="gridRow">
  <div class="Tournament">
    <a href="/counterstrike/PGL">PGL</a>
    <a href="/counterstrike/PGL/Major/Copenhagen_2024">PGL Major Copenhagen 2024</a>
  </div>
  <div class="EventDetails">Mar 17 - 31, 2024</div>
  <div class="Prize">$1,250,000</div>
  <div class="Location"><img src="/commons/images/dk_hd.png" alt="Denmark"> Copenhagen</div>
</div>
<div class="gridRow">
  <div class="Tournament">
    <a href="/counterstrike/Intel_Extreme_Masters/2024/Dallas">IEM Dallas 2024</a>
  </div>
  <div class="EventDetails">May 27 - Jun 2, 2024</div>
  <div class="Prize">$250,000</div>
</div>
<div class="gridRow">
  <div class="EventDetails">header row without a tournament link</div>
</div>
</div>
</body></html>`

func TestParseTournaments(t *testing.T) {
	tournaments, err := parseTournaments([]byte(sampleGrid))
	if err != nil {
		t.Fatalf("parseTournaments: %v", err)
	}
	if len(tournaments) != 2 {
		t.Fatalf("got %d tournaments, want 2", len(tournaments))
	}

	major := tournaments[0]
	if major.Name != "PGL Major Copenhagen 2024" {
		t.Errorf("name = %q", major.Name)
	}
	if DayKey(major.Start) != "2024-03-17" || DayKey(major.End) != "2024-03-31" {
		t.Errorf("dates = %s .. %s", DayKey(major.Start), DayKey(major.End))
	}
	if major.PrizePool != "$1,250,000" {
		t.Errorf("prize pool = %q", major.PrizePool)
	}
	if major.Location != "Denmark" {
		t.Errorf("location = %q", major.Location)
	}

	iem := tournaments[1]
	if iem.Name != "IEM Dallas 2024" || DayKey(iem.End) != "2024-06-02" {
		t.Errorf("second tournament = %+v", iem)
	}
}

func TestParseTournamentsEmptyPage(t *testing.T) {
	if _, err := parseTournaments([]byte("<html><body></body></html>")); err == nil {
		t.Fatal("expected error for page without tournament rows")
	}
}
