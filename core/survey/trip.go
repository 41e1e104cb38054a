package survey

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/mobashi/surv/core"
	"github.com/mobashi/surv/core/school"
)

// GeoPoint is a place referenced by a trip stage. The school geo projection
// and respondent-picked points share this shape.
type GeoPoint struct {
	Name    string   `json:"name,omitempty"`
	Address string   `json:"address,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

// Stage is one normalized leg of a trip: origin and destination with
// timezone-resolved timestamps.
type Stage struct {
	Orig      *GeoPoint `json:"orig"`
	OrigStamp string    `json:"orig_stamp"`
	Dest      *GeoPoint `json:"dest"`
	DestStamp string    `json:"dest_stamp"`
}

// tripContent is the strict intermediate shape the normalizer reads out of the
// schema-less content blob. Nothing else in the system interprets the blob.
type tripContent struct {
	TZ        string            `json:"TZ"`
	Orig      *GeoPoint         `json:"orig"`
	OrigStamp string            `json:"orig_stamp"`
	Stages    []json.RawMessage `json:"stages"`
}

// Emitted timestamps carry an explicit numeric offset (",+00:00" for UTC, not
// "Z"), matching what survey clients send back.
const stampLayout = "2006-01-02T15:04:05-07:00"

// naive layouts, most specific first
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// TripStages normalizes a survey's content into an ordered sequence of travel
// legs. Each stage inherits its origin from the previous stage's destination
// (seeded from the content's `orig`/`orig_stamp`, defaulting to the school
// geo) and defaults its destination to the school geo. Stages lacking an
// inherited origin or origin timestamp, and stages that are not well-formed
// objects, are omitted. Naive timestamps get the content's timezone attached;
// an absent or unresolvable TZ falls back to UTC.
//
// The result is fully materialized; consumers need random access and a count.
// Malformed timestamps fail the whole normalization: they indicate corrupt
// survey content and must surface as a request-level error.
func TripStages(content core.Document, schoolGeo school.Geo) ([]Stage, error) {
	res := make([]Stage, 0)

	raw, err := json.Marshal(content)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling survey content")
	}
	var tc tripContent
	if err = json.Unmarshal(raw, &tc); err != nil {
		// content not shaped like a trip: nothing to normalize
		return res, nil
	}

	loc := resolveTZ(tc.TZ)
	defGeo := geoPoint(schoolGeo)

	orig := tc.Orig
	if orig == nil {
		orig = defGeo
	}
	origStamp := tc.OrigStamp

	for _, rawStage := range tc.Stages {
		if orig == nil || origStamp == "" {
			// broken chain: skip the rest of the stages too
			orig, origStamp = nil, ""
			continue
		}

		// `null` and scalar stages unmarshal into a zero Stage without error;
		// only objects count as stages.
		if !isJSONObject(rawStage) {
			continue
		}
		var stage Stage
		if err := json.Unmarshal(rawStage, &stage); err != nil {
			continue // not a well-formed stage object
		}

		if stage.Orig == nil {
			stage.Orig = orig
		}
		if stage.OrigStamp == "" {
			stage.OrigStamp = origStamp
		}
		if stage.Dest == nil {
			stage.Dest = defGeo
		}

		// advance the chain before normalization mutates the stamps
		orig = stage.Dest
		origStamp = stage.DestStamp

		if stage.OrigStamp, err = normalizeStamp(stage.OrigStamp, loc); err != nil {
			return nil, err
		}
		if stage.DestStamp, err = normalizeStamp(stage.DestStamp, loc); err != nil {
			return nil, err
		}

		res = append(res, stage)
	}
	return res, nil
}

func isJSONObject(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b == '{'
	}
	return false
}

// resolveTZ resolves a timezone name, falling back to UTC when the name is
// missing or unknown.
func resolveTZ(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// normalizeStamp parses an ISO datetime, attaches loc if the value is
// timezone-naive and re-emits it as ISO-8601.
func normalizeStamp(s string, loc *time.Location) (string, error) {
	t, err := parseISO(s, loc)
	if err != nil {
		return "", core.NewValidationError(
			errors.Errorf("malformed trip timestamp: %q", s),
			core.FieldError{Field: "content", Error: "malformed trip timestamp"},
		)
	}
	return t.Format(stampLayout), nil
}

func parseISO(s string, loc *time.Location) (time.Time, error) {
	// timezone-aware forms first
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	// naive forms get loc attached
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("unparseable timestamp %q", s)
}

func geoPoint(g school.Geo) *GeoPoint {
	p := &GeoPoint{Name: g.Name}
	if g.Address.Valid {
		p.Address = g.Address.String
	}
	if g.Lat.Valid {
		lat := g.Lat.Float64
		p.Lat = &lat
	}
	if g.Lng.Valid {
		lng := g.Lng.Float64
		p.Lng = &lng
	}
	return p
}
