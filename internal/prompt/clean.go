package prompt

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// noise is markup that carries no extractable content.
const noise = "script, style, meta, link, noscript"

// Clean strips scripts, styles, head metadata and comments from raw and
// truncates the result to maxChars runes when maxChars > 0.
func Clean(raw string, maxChars int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", err
	}
	doc.Find(noise).Remove()
	for _, n := range doc.Nodes {
		removeComments(n)
	}

	out, err := doc.Html()
	if err != nil {
		return "", err
	}
	return truncate(out, maxChars), nil
}

func removeComments(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode {
			n.RemoveChild(c)
		} else {
			removeComments(c)
		}
		c = next
	}
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
