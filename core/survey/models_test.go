package survey

import (
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/mobashi/surv/core"
	"github.com/mobashi/surv/core/campaign"
)

func TestNextStatus(t *testing.T) {
	content := core.Document{"orig_stamp": "2024-01-01T08:00:00"}

	tests := []struct {
		name         string
		current      Status
		content      core.Document
		wantStatus   Status
		wantWritable bool
	}{
		{name: "empty stays empty on empty content", current: StatusEmpty, content: core.Document{}, wantStatus: StatusEmpty, wantWritable: true},
		{name: "empty becomes filled on content", current: StatusEmpty, content: content, wantStatus: StatusFilled, wantWritable: true},
		{name: "filled reverts to empty when cleared", current: StatusFilled, content: nil, wantStatus: StatusEmpty, wantWritable: true},
		{name: "filled stays filled", current: StatusFilled, content: content, wantStatus: StatusFilled, wantWritable: true},
		{name: "used locks content", current: StatusUsed, content: content, wantStatus: StatusUsed, wantWritable: false},
		{name: "used locks even with empty content", current: StatusUsed, content: nil, wantStatus: StatusUsed, wantWritable: false},
		{name: "cancelled locks content", current: StatusCancelled, content: content, wantStatus: StatusCancelled, wantWritable: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, writable := NextStatus(tt.current, tt.content)
			if st != tt.wantStatus {
				t.Errorf("NextStatus() status = %v, want %v", st, tt.wantStatus)
			}
			if writable != tt.wantWritable {
				t.Errorf("NextStatus() contentWritable = %v, want %v", writable, tt.wantWritable)
			}
		})
	}
}

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	active := campaign.Campaign{
		StampStart: null.TimeFrom(now.AddDate(0, 0, -1)),
		StampEnd:   null.TimeFrom(now.AddDate(0, 0, 1)),
	}
	ended := campaign.Campaign{
		StampStart: null.TimeFrom(now.AddDate(0, -2, 0)),
		StampEnd:   null.TimeFrom(now.AddDate(0, -1, 0)),
	}

	tests := []struct {
		name string
		s    Survey
		want Status
	}{
		{name: "open under active campaign", s: Survey{Status: StatusFilled, Campaign: active}, want: StatusFilled},
		{name: "empty under active campaign", s: Survey{Status: StatusEmpty, Campaign: active}, want: StatusEmpty},
		{name: "open under ended campaign reads cancelled", s: Survey{Status: StatusFilled, Campaign: ended}, want: StatusCancelled},
		{name: "empty under disabled campaign reads cancelled", s: Survey{Status: StatusEmpty}, want: StatusCancelled},
		{name: "used passes through", s: Survey{Status: StatusUsed, Campaign: ended}, want: StatusUsed},
		{name: "cancelled passes through", s: Survey{Status: StatusCancelled, Campaign: active}, want: StatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.EffectiveStatus(now); got != tt.want {
				t.Errorf("EffectiveStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMustFilloutCanEdit(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	active := campaign.Campaign{
		StampStart: null.TimeFrom(now.AddDate(0, 0, -1)),
		StampEnd:   null.TimeFrom(now.AddDate(0, 0, 1)),
	}

	s := Survey{Status: StatusEmpty, Campaign: active}
	if !s.MustFillout(now) {
		t.Error("MustFillout() = false for empty survey under active campaign, want true")
	}
	if !s.CanEdit(now) {
		t.Error("CanEdit() = false for empty survey under active campaign, want true")
	}

	s.Status = StatusFilled
	if s.MustFillout(now) {
		t.Error("MustFillout() = true for filled survey, want false")
	}
	if !s.CanEdit(now) {
		t.Error("CanEdit() = false for filled survey under active campaign, want true")
	}

	s.Status = StatusUsed
	if s.CanEdit(now) {
		t.Error("CanEdit() = true for used survey, want false")
	}

	s = Survey{Status: StatusEmpty} // disabled campaign
	if s.MustFillout(now) {
		t.Error("MustFillout() = true under disabled campaign, want false")
	}
	if s.CanEdit(now) {
		t.Error("CanEdit() = true under disabled campaign, want false")
	}
}
