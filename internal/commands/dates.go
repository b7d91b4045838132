package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var dueParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// dueLayouts are tried first: ISO dates and the short month/day forms the
// original curses tool accepted (dots and spaces work like slashes).
var dueLayouts = []string{"2006-01-02", "2006/1/2", "1/2", "1.2", "1 2"}

// parseDue turns user input into a due date at day granularity, UTC.
// Accepts an ISO date, a month/day pair (current year assumed), or
// natural language ("next friday"). Empty input means no due date.
func parseDue(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "none" {
		return time.Time{}, nil
	}

	for _, layout := range dueLayouts {
		d, err := time.ParseInLocation(layout, s, time.UTC)
		if err != nil {
			continue
		}
		if d.Year() == 0 {
			d = time.Date(time.Now().Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		}
		return d, nil
	}

	if r, err := dueParser.Parse(s, time.Now()); err == nil && r != nil {
		t := r.Time
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized date: %s", s)
}
