package worker

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// renderHTML converts one page of markdown to HTML wrapped in a page div.
func renderHTML(page string) (string, error) {
	var buf strings.Builder
	if err := md.Convert([]byte(page), &buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("<div class=\"page\">\n%s</div>", buf.String()), nil
}
