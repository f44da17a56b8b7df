package domain

import (
	"slices"
	"strings"
	"time"
)

const (
	// ISO8601Date is the catalog date format.
	ISO8601Date = "2006-01-02"

	// LabelDate is the format of the date label next to the slider.
	LabelDate = "02/01/2006"
)

// FormatDateLabel turns a catalog date into the slider label: "2021-07-09"
// becomes "09/07/2021". Keys that are not ISO dates have their dash-separated
// parts reversed and joined with slashes.
func FormatDateLabel(date string) string {
	if t, err := time.Parse(ISO8601Date, date); err == nil {
		return t.Format(LabelDate)
	}
	parts := strings.Split(date, "-")
	slices.Reverse(parts)
	return strings.Join(parts, "/")
}
