package cli

import (
	"encoding/json"
	"io"

	"github.com/rharish101/dilbert-viewer/internal/core/strips"
)

type navigationOutput struct {
	First    string `json:"first"`
	Previous string `json:"previous"`
	Next     string `json:"next"`
	Latest   string `json:"latest"`
	AtFirst  bool   `json:"at_first"`
	AtLatest bool   `json:"at_latest"`
}

type stripOutput struct {
	Date        string           `json:"date"`
	LatestDate  string           `json:"latest_date"`
	Title       string           `json:"title"`
	ImageURL    string           `json:"img_url"`
	ImageWidth  int              `json:"img_width"`
	ImageHeight int              `json:"img_height"`
	Permalink   string           `json:"permalink"`
	Navigation  navigationOutput `json:"navigation"`
}

func newStripOutput(res *strips.Resolution) stripOutput {
	nav := strips.NewNavigation(res.Date, res.LatestDate)
	return stripOutput{
		Date:        strips.FormatDate(res.Date),
		LatestDate:  strips.FormatDate(res.LatestDate),
		Title:       res.Strip.Title,
		ImageURL:    res.Strip.ImageURL,
		ImageWidth:  res.Strip.ImageWidth,
		ImageHeight: res.Strip.ImageHeight,
		Permalink:   res.Strip.Permalink,
		Navigation: navigationOutput{
			First:    strips.FormatDate(nav.First),
			Previous: strips.FormatDate(nav.Previous),
			Next:     strips.FormatDate(nav.Next),
			Latest:   strips.FormatDate(nav.Latest),
			AtFirst:  nav.AtFirst,
			AtLatest: nav.AtLatest,
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
