// Package extract locates the smallest fragment of an authenticated page
// likely to carry the booking content, bounding the payload handed to the
// interpreter. An ordered set of strategies is evaluated against the live
// page and the first match wins; there is no scoring across strategies.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/entrhq/porter/pkg/browser"
	"github.com/entrhq/porter/pkg/logging"
)

// Default ranked lists. Most specific first; all of it is configuration
// data replaceable via the YAML profile.
var (
	DefaultPhrases = []string{
		"upcoming bookings",
		"my bookings",
		"booking history",
		"your bookings",
	}

	DefaultContentSelectors = []string{
		`[class*="booking"]`,
		`[id*="booking"]`,
		`[class*="reservation"]`,
		`[data-testid*="booking"]`,
	}

	DefaultMainSelectors = []string{
		`main`,
		`[role="main"]`,
		`#content`,
		`#main`,
		`.content`,
		`.main`,
		`.container`,
	}
)

const (
	// DefaultMinContentSize rejects empty containers that merely carry a
	// matching class name.
	DefaultMinContentSize = 200

	// DefaultMinMainSize is the larger threshold for the generic layout
	// fallback.
	DefaultMinMainSize = 1000
)

// MethodFullPage tags the ultimate fallback: the entire page markup,
// a degraded but non-failing result.
const MethodFullPage = "full_page"

// Config holds the pipeline's ranked lists and thresholds.
type Config struct {
	Phrases          []string
	ContentSelectors []string
	MainSelectors    []string
	MinContentSize   int
	MinMainSize      int
}

func (c *Config) applyDefaults() {
	if len(c.Phrases) == 0 {
		c.Phrases = DefaultPhrases
	}
	if len(c.ContentSelectors) == 0 {
		c.ContentSelectors = DefaultContentSelectors
	}
	if len(c.MainSelectors) == 0 {
		c.MainSelectors = DefaultMainSelectors
	}
	if c.MinContentSize <= 0 {
		c.MinContentSize = DefaultMinContentSize
	}
	if c.MinMainSize <= 0 {
		c.MinMainSize = DefaultMinMainSize
	}
}

// Result is the extraction output contract. Content is the cleaned fragment;
// RawSize and CleanedSize let callers observe the reduction ratio.
type Result struct {
	Content     string `json:"content"`
	Method      string `json:"method"`
	RawSize     int    `json:"rawSize"`
	CleanedSize int    `json:"cleanedSize"`
}

// Pipeline evaluates the strategies in order against one page.
type Pipeline struct {
	cfg Config
	log *logging.Logger
}

// New creates a pipeline. log may be nil.
func New(cfg Config, log *logging.Logger) *Pipeline {
	cfg.applyDefaults()
	return &Pipeline{cfg: cfg, log: log}
}

// Run evaluates the strategies in order, short-circuiting on the first
// match. A strategy that errors (the page may have navigated away mid-read)
// counts as no match for that strategy only. When everything misses, the
// entire page markup is returned as a degraded result; only a failure to
// read even that is pipeline-fatal.
func (p *Pipeline) Run(page browser.Page) (*Result, error) {
	strategies := []struct {
		name string
		fn   func(*goquery.Document) (string, string, bool)
	}{
		{"phrase", p.phraseStrategy},
		{"selector", p.selectorStrategy},
		{"main", p.mainStrategy},
	}

	var fragment, method string
	matched := false

	for _, strategy := range strategies {
		doc, err := loadDocument(page)
		if err != nil {
			p.warnf("strategy %s: page read failed, treating as no match: %v", strategy.name, err)
			continue
		}

		frag, m, ok := strategy.fn(doc)
		if ok {
			p.infof("strategy %s matched via %s (%d bytes)", strategy.name, m, len(frag))
			fragment, method = frag, m
			matched = true
			break
		}
		p.debugf("strategy %s: no match", strategy.name)
	}

	if !matched {
		content, err := page.Content()
		if err != nil {
			return nil, fmt.Errorf("extraction failed: full-page fallback unreadable at %s: %w", page.URL(), err)
		}
		p.warnf("no strategy matched, falling back to full page (%d bytes)", len(content))
		fragment, method = content, MethodFullPage
	}

	cleaned, err := Clean(fragment)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: cleanup of %s fragment: %w", method, err)
	}

	return &Result{
		Content:     cleaned,
		Method:      method,
		RawSize:     len(fragment),
		CleanedSize: len(cleaned),
	}, nil
}

func loadDocument(page browser.Page) (*goquery.Document, error) {
	content, err := page.Content()
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(content))
}

// phraseStrategy scans every element for ones whose text contains a ranked
// domain phrase and that have at least one child element, excluding single
// leaf captions. Among elements matching the same phrase the largest
// serialized one wins: the true content container is usually larger than an
// incidental mention. The first phrase yielding any match short-circuits.
// The document root chain is excluded, otherwise largest-wins would always
// degenerate to the whole page.
func (p *Pipeline) phraseStrategy(doc *goquery.Document) (string, string, bool) {
	for _, phrase := range p.cfg.Phrases {
		needle := strings.ToLower(phrase)
		var best string

		doc.Find("*").Each(func(_ int, sel *goquery.Selection) {
			if goquery.NodeName(sel) == "html" || goquery.NodeName(sel) == "head" || goquery.NodeName(sel) == "body" {
				return
			}
			if sel.Children().Length() == 0 {
				return
			}
			if !strings.Contains(strings.ToLower(sel.Text()), needle) {
				return
			}

			markup, err := goquery.OuterHtml(sel)
			if err != nil {
				return
			}
			if len(markup) > len(best) {
				best = markup
			}
		})

		if best != "" {
			return best, fmt.Sprintf("phrase:%s", phrase), true
		}
	}

	return "", "", false
}

// selectorStrategy evaluates ranked structural selectors naming the content
// domain. The largest element matched by a selector is accepted only above
// the minimum content size.
func (p *Pipeline) selectorStrategy(doc *goquery.Document) (string, string, bool) {
	for _, selector := range p.cfg.ContentSelectors {
		best := largestMatch(doc, selector)
		if len(best) > p.cfg.MinContentSize {
			return best, fmt.Sprintf("selector:%s", selector), true
		}
	}
	return "", "", false
}

// mainStrategy falls back to generic layout landmarks, accepting the first
// whose serialized size clears the larger threshold.
func (p *Pipeline) mainStrategy(doc *goquery.Document) (string, string, bool) {
	for _, selector := range p.cfg.MainSelectors {
		best := largestMatch(doc, selector)
		if len(best) > p.cfg.MinMainSize {
			return best, fmt.Sprintf("main:%s", selector), true
		}
	}
	return "", "", false
}

// largestMatch returns the serialized markup of the largest element matched
// by selector, or "" when nothing matches.
func largestMatch(doc *goquery.Document, selector string) string {
	var best string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		markup, err := goquery.OuterHtml(sel)
		if err != nil {
			return
		}
		if len(markup) > len(best) {
			best = markup
		}
	})
	return best
}

func (p *Pipeline) debugf(format string, v ...interface{}) {
	if p.log != nil {
		p.log.Debugf(format, v...)
	}
}

func (p *Pipeline) infof(format string, v ...interface{}) {
	if p.log != nil {
		p.log.Infof(format, v...)
	}
}

func (p *Pipeline) warnf(format string, v ...interface{}) {
	if p.log != nil {
		p.log.Warnf(format, v...)
	}
}
