// Package classify turns raw roster text into on-shift / working booleans.
//
// Everything here is a pure function of its inputs: the capture timestamp is
// always passed in explicitly and no rule ever reads the wall clock, so the
// whole decision tree is unit-testable at exact boundary instants.
package classify

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Rule names which branch of the decision tree produced a result. They show
// up in the debug surface and in metrics labels.
type Rule string

const (
	// On-shift determination.
	RuleNotScheduled     Rule = "not_scheduled"      // rest/adjustment sentinel in shift text
	RuleShiftParseFailed Rule = "shift_parse_failed" // shift text is not a time range
	RuleOffShift         Rule = "off_shift"          // reference outside the shift window

	// Working determination (only reached while on shift).
	RuleFutureResume     Rule = "future_resume"      // "next available at T", T after reference
	RulePastResume       Rule = "past_resume"        // free since T, T at or before reference
	RuleFullyBooked      Rule = "fully_booked"       // no open slots, shift still has time left
	RuleShiftEnding      Rule = "shift_ending"       // no open slots but shift ends within threshold
	RuleNoMarker         Rule = "no_marker"          // availability text not recognized
)

// Result is the classifier output. Trace carries one line per decision step
// for the operational debug surface; control flow never depends on it.
type Result struct {
	OnShift bool
	Working bool
	Rule    Rule
	Trace   []string
}

// Options tunes the classifier. The zero value is unusable; start from
// DefaultOptions.
type Options struct {
	// RestSentinels mark a staff member as not scheduled today regardless of
	// any time range in the text.
	RestSentinels []string

	// FullyBookedMarkers mean "no open reception slots" (sold out).
	FullyBookedMarkers []string

	// EndWindow is the shift-end proximity threshold for the fully-booked
	// rule: with no open slots and less than this left on the shift, the
	// roster is read as "closing down" rather than "fully engaged".
	//
	// The 60-minute default is a heuristic inferred from operational notes,
	// not a confirmed business rule; keep it configurable.
	EndWindow time.Duration
}

// DefaultOptions returns the marker vocabulary observed on the supported
// roster sites and the default shift-end threshold.
func DefaultOptions() Options {
	return Options{
		RestSentinels: []string{
			"お休み", "出勤調整中", "次回", "出勤予定", "調整中", "OFF", "お疲れ様",
		},
		FullyBookedMarkers: []string{"受付終了"},
		EndWindow:          60 * time.Minute,
	}
}

// Classifier applies the availability rules with a fixed Options set.
type Classifier struct {
	opts Options
}

func New(opts Options) *Classifier {
	return &Classifier{opts: opts}
}

var clockPattern = regexp.MustCompile(`(\d{1,2}):(\d{2})`)

// Classify evaluates one staff entry at the reference instant.
//
// shiftText is the scheduled-presence annotation ("10:30～02:00", "お休み", ...).
// availText is the availability annotation ("次回 22:10～", "受付終了", ...).
// Only the wall-clock components of ref participate; the date is irrelevant
// because roster pages only ever describe the current business day.
func (c *Classifier) Classify(shiftText, availText string, ref time.Time) Result {
	res := Result{}
	refMin := minuteOf(ref)

	for _, sentinel := range c.opts.RestSentinels {
		if strings.Contains(shiftText, sentinel) {
			res.Rule = RuleNotScheduled
			res.tracef("shift text %q contains rest sentinel %q", shiftText, sentinel)
			return res
		}
	}

	start, end, ok := parseRange(shiftText)
	if !ok {
		res.Rule = RuleShiftParseFailed
		res.tracef("shift text %q is not a recognizable time range", shiftText)
		return res
	}
	if end <= start {
		res.tracef("shift %s-%s crosses midnight", start, end)
	}

	if !withinWindow(refMin, start, end) {
		res.Rule = RuleOffShift
		res.tracef("reference %s outside shift window [%s, %s)", refMin, start, end)
		return res
	}
	res.OnShift = true
	res.tracef("reference %s within shift window [%s, %s)", refMin, start, end)

	res.Working, res.Rule = c.working(availText, refMin, start, end, &res)
	return res
}

// working evaluates the availability text of an on-shift staff member. The
// three recognized shapes are checked in priority order: resume-time markers
// first, then the fully-booked marker, then the miss default.
func (c *Classifier) working(availText string, ref, start, end minuteOfDay, res *Result) (bool, Rule) {
	if resume, found := c.latestResumeTime(availText, start, end); found {
		nref, _, _ := normalize(ref, start, end)
		if resume > nref {
			res.tracef("resume time %s is after reference %s: engaged until then", resume, nref)
			return true, RuleFutureResume
		}
		res.tracef("resume time %s at or before reference %s: free since then", resume, nref)
		return false, RulePastResume
	}

	for _, marker := range c.opts.FullyBookedMarkers {
		if strings.Contains(availText, marker) {
			remaining := minutesToEnd(ref, start, end)
			threshold := int(c.opts.EndWindow / time.Minute)
			if remaining <= threshold {
				res.tracef("fully booked (%q) with %d min left on shift (<= %d): shift ending", marker, remaining, threshold)
				return false, RuleShiftEnding
			}
			res.tracef("fully booked (%q) with %d min left on shift (> %d): engaged", marker, remaining, threshold)
			return true, RuleFullyBooked
		}
	}

	if strings.TrimSpace(availText) == "" {
		res.tracef("availability text is empty")
	} else {
		res.tracef("availability text %q matches no known marker", availText)
	}
	return false, RuleNoMarker
}

// latestResumeTime extracts clock times from the availability text and
// returns the latest one, projected into the shift's rolling frame: on an
// overnight shift a time-of-day earlier than the shift start belongs to the
// next calendar day.
func (c *Classifier) latestResumeTime(availText string, start, end minuteOfDay) (minuteOfDay, bool) {
	matches := clockPattern.FindAllStringSubmatch(availText, -1)
	if len(matches) == 0 {
		return 0, false
	}
	overnight := end <= start
	var latest minuteOfDay
	found := false
	for _, m := range matches {
		h, min := atoi2(m[1]), atoi2(m[2])
		if min > 59 {
			continue
		}
		t := minuteOfDay((h%24)*60 + min)
		if overnight && t < start {
			t += minutesPerDay
		}
		if !found || t > latest {
			latest = t
			found = true
		}
	}
	return latest, found
}

func (r *Result) tracef(format string, args ...interface{}) {
	r.Trace = append(r.Trace, fmt.Sprintf(format, args...))
}
