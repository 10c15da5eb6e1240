package strips

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// CSS classes identifying the strip on a source page.
const (
	titleClass = "comic-title-name"
	imageClass = "img-comic"
)

// parseStrip extracts a strip from a source page. A page without a title is
// valid; older strips have none.
func parseStrip(page []byte) (Strip, error) {
	if !utf8.Valid(page) {
		return Strip{}, fmt.Errorf("%w: response is not UTF-8", ErrScrapeFailed)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return Strip{}, fmt.Errorf("%w: failed to parse HTML: %v", ErrScrapeFailed, err)
	}

	title := strings.TrimSpace(doc.Find("." + titleClass).First().Text())

	img := doc.Find("." + imageClass).First()
	if img.Length() == 0 {
		return Strip{}, fmt.Errorf("%w: no element with class %q", ErrScrapeFailed, imageClass)
	}

	width, err := positiveIntAttr(img, "width")
	if err != nil {
		return Strip{}, err
	}
	height, err := positiveIntAttr(img, "height")
	if err != nil {
		return Strip{}, err
	}

	src := strings.TrimSpace(img.AttrOr("src", ""))
	if src == "" {
		return Strip{}, fmt.Errorf("%w: image has no src attribute", ErrScrapeFailed)
	}
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}

	return Strip{
		Title:       title,
		ImageURL:    src,
		ImageWidth:  width,
		ImageHeight: height,
	}, nil
}

func positiveIntAttr(sel *goquery.Selection, name string) (int, error) {
	raw, ok := sel.Attr(name)
	if !ok {
		return 0, fmt.Errorf("%w: image has no %s attribute", ErrScrapeFailed, name)
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: invalid image %s %q", ErrScrapeFailed, name, raw)
	}
	return n, nil
}
