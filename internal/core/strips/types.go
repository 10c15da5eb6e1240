package strips

import "time"

// Strip is one scraped strip. It never changes once scraped.
type Strip struct {
	Title       string `json:"title"`
	ImageURL    string `json:"img_url"`
	ImageWidth  int    `json:"img_width"`
	ImageHeight int    `json:"img_height"`
	Permalink   string `json:"permalink"`
}

// latestDateInfo is the cached latest strip date and when it was last checked.
type latestDateInfo struct {
	Date      string    `json:"date"`
	LastCheck time.Time `json:"last_check"`
}

// Resolution is the outcome of resolving a requested date.
type Resolution struct {
	Strip Strip
	// Date is the date of the strip being shown. It differs from the
	// requested date when the latest strip was substituted.
	Date time.Time
	// LatestDate is the most recent strip date known after this request.
	LatestDate time.Time
}

// Navigation is the set of neighbouring dates for a shown strip, clamped to
// the range of published strips.
type Navigation struct {
	First    time.Time
	Previous time.Time
	Next     time.Time
	Latest   time.Time
	AtFirst  bool
	AtLatest bool
}

// NewNavigation computes navigation for date given the latest strip date.
// Dates outside [FirstStripDate, latest] are clamped into it.
func NewNavigation(date, latest time.Time) Navigation {
	date, latest = normalizeDate(date), normalizeDate(latest)
	if latest.Before(FirstStripDate) {
		latest = FirstStripDate
	}

	previous := date.AddDate(0, 0, -1)
	if previous.Before(FirstStripDate) {
		previous = FirstStripDate
	}
	if previous.After(latest) {
		previous = latest
	}

	next := date.AddDate(0, 0, 1)
	if next.After(latest) {
		next = latest
	}
	if next.Before(FirstStripDate) {
		next = FirstStripDate
	}

	return Navigation{
		First:    FirstStripDate,
		Previous: previous,
		Next:     next,
		Latest:   latest,
		AtFirst:  !date.After(FirstStripDate),
		AtLatest: !date.Before(latest),
	}
}
