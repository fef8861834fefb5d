package worker

import (
	"fmt"
	"strconv"
	"strings"
)

// splitPages breaks a document into pages on form-feed boundaries.
// A document without form feeds is a single page.
func splitPages(doc string) []string {
	pages := strings.Split(doc, "\f")
	// A trailing form feed produces an empty last page; drop it.
	if n := len(pages); n > 1 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return pages
}

// selectPages applies a 1-based page range like "1-5" or "1,3,5" (or a
// mix, "1-2,5"). An empty spec selects all pages.
func selectPages(pages []string, spec string) ([]string, error) {
	if strings.TrimSpace(spec) == "" {
		out := make([]string, len(pages))
		copy(out, pages)
		return out, nil
	}
	var out []string
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		lo, hi, err := parseRangePart(part)
		if err != nil {
			return nil, err
		}
		if lo < 1 || hi > len(pages) || lo > hi {
			return nil, fmt.Errorf("page range %q out of bounds for %d pages", part, len(pages))
		}
		for i := lo; i <= hi; i++ {
			out = append(out, pages[i-1])
		}
	}
	return out, nil
}

func parseRangePart(part string) (lo, hi int, err error) {
	if a, b, ok := strings.Cut(part, "-"); ok {
		lo, err = strconv.Atoi(strings.TrimSpace(a))
		if err != nil {
			return 0, 0, fmt.Errorf("invalid page range %q", part)
		}
		hi, err = strconv.Atoi(strings.TrimSpace(b))
		if err != nil {
			return 0, 0, fmt.Errorf("invalid page range %q", part)
		}
		return lo, hi, nil
	}
	lo, err = strconv.Atoi(part)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid page range %q", part)
	}
	return lo, lo, nil
}
