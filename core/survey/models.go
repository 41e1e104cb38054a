package survey

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/mobashi/surv/core"
	"github.com/mobashi/surv/core/campaign"
	"github.com/mobashi/surv/core/school"
)

// Kind is the trip direction a survey records.
type Kind string

const (
	KindForth Kind = "forth"
	KindBack  Kind = "back"
)

// Status is the survey lifecycle state.
type Status int

const (
	StatusCancelled Status = -100
	StatusEmpty     Status = 0
	StatusFilled    Status = 50
	StatusUsed      Status = 100
)

func (s Status) String() string {
	switch s {
	case StatusCancelled:
		return "cancelled"
	case StatusEmpty:
		return "empty"
	case StatusFilled:
		return "filled"
	case StatusUsed:
		return "used"
	}
	return "unknown"
}

// IsFinal reports whether the status freezes content: once a survey is USED or
// CANCELLED its content can no longer be modified.
func (s Status) IsFinal() bool {
	return s == StatusUsed || s == StatusCancelled
}

type Survey struct {
	ID         int           `json:"id"`
	Kind       Kind          `json:"kind"`
	UserID     int           `json:"user"`
	CampaignID int           `json:"-"`
	SchoolID   int           `json:"-"`
	Status     Status        `json:"status"`
	Stamp      null.Time     `json:"stamp"` // last modified; auto-updated on every save
	Content    core.Document `json:"content"`

	// joined relations, populated on reads
	Campaign campaign.Campaign `json:"-"`
	School   school.School     `json:"-"`
}

// NextStatus applies the state machine to a content mutation attempt. It
// returns the status to persist and whether the content change may be
// persisted at all:
//   - USED and CANCELLED are one-way locks: the mutation is accepted but the
//     content change is discarded and the status kept.
//   - EMPTY and FILLED are recomputed from the resulting content, overriding
//     any caller-supplied status.
//
// Pure transform, applied before commit; it never fails.
func NextStatus(current Status, content core.Document) (st Status, contentWritable bool) {
	if current.IsFinal() {
		return current, false
	}
	if content.IsEmpty() {
		return StatusEmpty, true
	}
	return StatusFilled, true
}

// EffectiveStatus is the status reported to callers: a survey still open
// (EMPTY/FILLED) under a campaign that is not ACTIVE reads as CANCELLED.
// USED and CANCELLED pass through unchanged. Derived, never persisted.
func (s Survey) EffectiveStatus(now time.Time) Status {
	if !s.Status.IsFinal() && !s.Campaign.IsActive(now) {
		return StatusCancelled
	}
	return s.Status
}

// MustFillout reports whether the respondent still has to fill the survey in.
func (s Survey) MustFillout(now time.Time) bool {
	return s.Status == StatusEmpty && s.Campaign.IsActive(now)
}

// CanEdit reports whether content edits are currently possible.
func (s Survey) CanEdit(now time.Time) bool {
	return !s.Status.IsFinal() && s.Campaign.IsActive(now)
}
