package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CityheavenDialect reads the sugunavi roster layout: one div.sugunavi_wrapper
// per staff member, with the shift range in a shukkin_detail_time element and
// the availability annotation inside the sugunavibox block. Wrappers without
// a sugunavibox are decoration and are ignored entirely; wrappers that have
// one but are missing the staff link or shift text count as skipped.
type CityheavenDialect struct{}

func NewCityheavenDialect() *CityheavenDialect {
	return &CityheavenDialect{}
}

func (d *CityheavenDialect) Name() string { return "cityheaven" }

var girlIDPattern = regexp.MustCompile(`girlid-(\d+)`)

func (d *CityheavenDialect) Extract(markup string) ([]Entry, int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse cityheaven markup: %w", err)
	}

	var entries []Entry
	skipped := 0

	doc.Find("div.sugunavi_wrapper").Each(func(_ int, wrapper *goquery.Selection) {
		box := wrapper.Find(".sugunavibox")
		if box.Length() == 0 {
			return
		}

		staffID := d.staffID(wrapper)
		shiftText := d.shiftText(wrapper)
		if staffID == "" || shiftText == "" {
			skipped++
			return
		}

		entries = append(entries, Entry{
			StaffID:          staffID,
			ShiftTimeText:    shiftText,
			AvailabilityText: d.availabilityText(box),
		})
	})

	return entries, skipped, nil
}

// staffID pulls the girlid-NNNNN fragment out of any link in the wrapper.
func (d *CityheavenDialect) staffID(wrapper *goquery.Selection) string {
	id := ""
	wrapper.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if m := girlIDPattern.FindStringSubmatch(href); m != nil {
			id = m[1]
			return false
		}
		return true
	})
	return id
}

// shiftText finds the shukkin_detail_time element. The class carries style
// suffixes that vary between pages, so it is matched by substring.
func (d *CityheavenDialect) shiftText(wrapper *goquery.Selection) string {
	return strings.TrimSpace(wrapper.Find(`[class*="shukkin_detail_time"]`).First().Text())
}

// availabilityText prefers the title elements inside the sugunavibox; when
// there are none (sold-out pages render a bare 受付終了 banner) it falls back
// to the whole box text.
func (d *CityheavenDialect) availabilityText(box *goquery.Selection) string {
	titles := box.Find(".title")
	if titles.Length() == 0 {
		return strings.TrimSpace(box.Text())
	}
	parts := make([]string, 0, titles.Length())
	titles.Each(func(_ int, title *goquery.Selection) {
		if text := strings.TrimSpace(title.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}
