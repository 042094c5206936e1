package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Clean strips script elements, style elements and comment nodes from the
// fragment, in that order, and returns the remaining markup. The head of a
// full-page fragment is dropped with the wrapper: it carries no domain
// content, only the noise this pass exists to remove.
func Clean(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("failed to parse fragment: %w", err)
	}

	doc.Find("script").Remove()
	doc.Find("style").Remove()

	for _, root := range doc.Nodes {
		removeComments(root)
	}

	body := doc.Find("body")
	cleaned, err := body.Html()
	if err != nil {
		return "", fmt.Errorf("failed to serialize cleaned fragment: %w", err)
	}

	return strings.TrimSpace(cleaned), nil
}

// removeComments unlinks comment nodes from the tree in place.
func removeComments(n *html.Node) {
	child := n.FirstChild
	for child != nil {
		next := child.NextSibling
		if child.Type == html.CommentNode {
			n.RemoveChild(child)
		} else {
			removeComments(child)
		}
		child = next
	}
}
