package classify

import (
	"fmt"
	"regexp"
	"time"
)

// minuteOfDay counts minutes since midnight. Values at or above 1440 mean
// "the following calendar day" inside a rolling 24h+ frame; all the
// midnight-crossing arithmetic in this package happens on this type so it can
// be tested at exact boundary instants without any wall clock.
type minuteOfDay int

const minutesPerDay = 1440

func minuteOf(t time.Time) minuteOfDay {
	return minuteOfDay(t.Hour()*60 + t.Minute())
}

func (m minuteOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", (m/60)%24, m%60)
}

var rangePattern = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*[～〜~\-–]+\s*(\d{1,2}):(\d{2})`)

// parseRange extracts a start-end time-of-day pair from loosely formatted
// shift text such as "10:30～02:00" or "12:00-18:00". Hours of 24 and above
// wrap; the source sites write "24:00" for midnight.
func parseRange(text string) (start, end minuteOfDay, ok bool) {
	m := rangePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	sh, sm := atoi2(m[1]), atoi2(m[2])
	eh, em := atoi2(m[3]), atoi2(m[4])
	if sm > 59 || em > 59 {
		return 0, 0, false
	}
	start = minuteOfDay((sh%24)*60 + sm)
	end = minuteOfDay((eh%24)*60 + em)
	return start, end, true
}

func atoi2(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// normalize projects a start-end pair and a reference instant into one
// rolling frame: when end <= start the interval crosses midnight and end is
// pushed into the next day; a reference before start is likewise pushed, so
// 01:00 tests correctly against a 22:00-06:00 shift.
func normalize(ref, start, end minuteOfDay) (nref, nstart, nend minuteOfDay) {
	nstart, nend, nref = start, end, ref
	if nend <= nstart {
		nend += minutesPerDay
	}
	if nref < nstart {
		nref += minutesPerDay
	}
	return nref, nstart, nend
}

// withinWindow reports whether ref lies inside [start, end) after midnight
// normalization. The interval is half-open: being exactly at the end instant
// means the shift is over.
func withinWindow(ref, start, end minuteOfDay) bool {
	nref, nstart, nend := normalize(ref, start, end)
	return nref >= nstart && nref < nend
}

// minutesToEnd returns how many minutes remain until end, measured in the
// same rolling frame as withinWindow. Only meaningful when ref is within the
// window.
func minutesToEnd(ref, start, end minuteOfDay) int {
	nref, _, nend := normalize(ref, start, end)
	return int(nend - nref)
}
