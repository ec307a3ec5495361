// Package sitemap classifies sitemap documents, extracts their loc entries
// and resolves index trees into flat URL lists.
package sitemap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/temoto/robotstxt"
	"golang.org/x/net/html/charset"
)

// Kind tells index documents apart from leaf documents.
type Kind int

const (
	KindLeaf Kind = iota
	KindIndex
)

func (k Kind) String() string {
	if k == KindIndex {
		return "index"
	}
	return "leaf"
}

// Node is a parsed and classified sitemap document. For an index, Locs are
// child source identifiers; for a leaf they are the terminal URLs.
type Node struct {
	Kind      Kind
	Root      string
	Namespace string
	Locs      []string
}

// ParseError reports a document that is not well-formed XML.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("parse sitemap: %v", e.Err)
	}
	return fmt.Sprintf("parse sitemap %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	errNoRoot          = errors.New("document has no root element")
	errJunkAfterRoot   = errors.New("junk after document element")
	errTextOutsideRoot = errors.New("text outside the document element")
)

var utf8BOM = []byte("\ufeff")

// ParseDocument parses the document fetched for source. robots.txt sources
// become an index over their Sitemap directives; everything else is XML.
func ParseDocument(source, content string) (*Node, error) {
	if IsRobotsTxt(source) {
		return parseRobots(source, content)
	}
	node, err := Parse(content)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Source = source
		}
		return nil, err
	}
	return node, nil
}

// Parse classifies an XML sitemap and extracts its loc entries in one pass.
//
// The root's local name decides the kind: anything ending in "sitemapindex"
// is an index. A loc element counts when it lives in the root's namespace,
// so unqualified and default-namespace documents behave the same while
// extension elements like image:loc are ignored. Only text that precedes the
// first child element of a loc is used; whitespace-only entries are dropped.
func Parse(content string) (*Node, error) {
	dec := xml.NewDecoder(strings.NewReader(content))
	dec.CharsetReader = charset.NewReaderLabel

	var (
		node     *Node
		depth    int
		locDepth int
		locDone  bool
		closed   bool
		text     strings.Builder
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if closed {
				return nil, &ParseError{Err: errJunkAfterRoot}
			}
			depth++
			if node == nil {
				node = &Node{Root: t.Name.Local, Namespace: t.Name.Space}
				if strings.HasSuffix(t.Name.Local, "sitemapindex") {
					node.Kind = KindIndex
				}
				continue
			}
			if locDepth > 0 {
				locDone = true
				continue
			}
			if t.Name.Local == "loc" && t.Name.Space == node.Namespace {
				locDepth = depth
				locDone = false
				text.Reset()
			}

		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(bytes.TrimPrefix(t, utf8BOM))) > 0 {
				if closed {
					return nil, &ParseError{Err: errJunkAfterRoot}
				}
				return nil, &ParseError{Err: errTextOutsideRoot}
			}
			if locDepth > 0 && depth == locDepth && !locDone {
				text.Write(t)
			}

		case xml.EndElement:
			if locDepth > 0 && depth == locDepth {
				if loc := strings.TrimSpace(text.String()); loc != "" {
					node.Locs = append(node.Locs, loc)
				}
				locDepth = 0
			}
			depth--
			if depth == 0 {
				closed = true
			}
		}
	}

	if node == nil {
		return nil, &ParseError{Err: errNoRoot}
	}
	return node, nil
}

// IsRobotsTxt reports whether source names a robots.txt file.
func IsRobotsTxt(source string) bool {
	path := source
	if u, err := url.Parse(source); err == nil && u.Scheme != "" && u.Path != "" {
		path = u.Path
	}
	return strings.HasSuffix(strings.ToLower(path), "robots.txt")
}

func parseRobots(source, content string) (*Node, error) {
	robots, err := robotstxt.FromString(content)
	if err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}

	node := &Node{Kind: KindIndex, Root: "robots.txt"}
	for _, sm := range robots.Sitemaps {
		if sm = strings.TrimSpace(sm); sm != "" {
			node.Locs = append(node.Locs, sm)
		}
	}
	return node, nil
}
