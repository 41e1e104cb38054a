package campaign

import (
	"testing"
	"time"

	"github.com/volatiletech/null/v8"
)

func TestCampaignStatus(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	bounded := Campaign{StampStart: null.TimeFrom(start), StampEnd: null.TimeFrom(end)}

	tests := []struct {
		name string
		camp Campaign
		now  time.Time
		want Status
	}{
		{name: "no bounds", camp: Campaign{}, now: start, want: StatusDisabled},
		{name: "missing start", camp: Campaign{StampEnd: null.TimeFrom(end)}, now: start, want: StatusDisabled},
		{name: "missing end", camp: Campaign{StampStart: null.TimeFrom(start)}, now: start, want: StatusDisabled},
		{name: "before start", camp: bounded, now: start.Add(-time.Second), want: StatusBefore},
		{name: "start is inclusive", camp: bounded, now: start, want: StatusActive},
		{name: "mid window", camp: bounded, now: start.AddDate(0, 0, 15), want: StatusActive},
		{name: "last instant", camp: bounded, now: end.Add(-time.Nanosecond), want: StatusActive},
		{name: "end is exclusive", camp: bounded, now: end, want: StatusAfter},
		{name: "after end", camp: bounded, now: end.AddDate(0, 1, 0), want: StatusAfter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.camp.Status(tt.now); got != tt.want {
				t.Errorf("Status() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCampaignIsActive(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	camp := Campaign{StampStart: null.TimeFrom(start), StampEnd: null.TimeFrom(end)}

	if !camp.IsActive(start) {
		t.Error("IsActive() = false at start, want true")
	}
	if camp.IsActive(end) {
		t.Error("IsActive() = true at end, want false")
	}
	if (Campaign{}).IsActive(start) {
		t.Error("IsActive() = true without bounds, want false")
	}
}
