package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DtownDialect reads the cast-list roster layout used by the second supported
// source: a ul.cast-list with one li.cast-item per staff member, the staff id
// in the profile link path, the shift range in a .cast-shift cell and the
// availability annotation in a .cast-status cell.
type DtownDialect struct{}

func NewDtownDialect() *DtownDialect {
	return &DtownDialect{}
}

func (d *DtownDialect) Name() string { return "dtown" }

var castIDPattern = regexp.MustCompile(`/cast/(\d+)`)

func (d *DtownDialect) Extract(markup string) ([]Entry, int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse dtown markup: %w", err)
	}

	var entries []Entry
	skipped := 0

	doc.Find("ul.cast-list li.cast-item").Each(func(_ int, item *goquery.Selection) {
		staffID := ""
		item.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if m := castIDPattern.FindStringSubmatch(href); m != nil {
				staffID = m[1]
				return false
			}
			return true
		})

		shiftText := strings.TrimSpace(item.Find(".cast-shift").First().Text())
		if staffID == "" || shiftText == "" {
			skipped++
			return
		}

		entries = append(entries, Entry{
			StaffID:          staffID,
			ShiftTimeText:    shiftText,
			AvailabilityText: strings.TrimSpace(item.Find(".cast-status").First().Text()),
		})
	})

	return entries, skipped, nil
}
