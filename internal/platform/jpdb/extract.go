package jpdb

import (
	"io"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// page is a parsed document flattened into document order so "the next
// element after X" queries are a forward scan.
type page struct {
	order []*html.Node
}

func parsePage(r io.Reader) (*page, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	p := &page{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.order = append(p.order, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return p, nil
}

// extractKeyword returns the text of the first div following the "Keyword"
// heading.
func extractKeyword(p *page) string {
	for i, n := range p.order {
		if n.Data != "h6" || strings.TrimSpace(textOf(n)) != "Keyword" {
			continue
		}
		for _, next := range p.order[i+1:] {
			if next.Data == "div" {
				return collapse(textOf(next))
			}
		}
		return ""
	}
	return ""
}

// extractMnemonic returns the inner markup of the mnemonic block. The markup
// is kept so emphasis in the mnemonic survives into the card.
func extractMnemonic(p *page) string {
	for _, n := range p.order {
		if n.Data == "div" && hasClass(n, "mnemonic") {
			return strings.TrimSpace(innerHTML(n))
		}
	}
	return ""
}

// extractDescription returns the first meaning description on a search page.
func extractDescription(p *page) string {
	for _, n := range p.order {
		if n.Data != "div" || !hasClass(n, "subsection-meanings") {
			continue
		}
		if d := find(n, func(c *html.Node) bool { return c.Data == "div" && hasClass(c, "description") }); d != nil {
			return collapse(textOf(d))
		}
		return ""
	}
	return ""
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			return c
		}
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" && slices.Contains(strings.Fields(a.Val), class) {
			return true
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func innerHTML(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&sb, c)
	}
	return sb.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
