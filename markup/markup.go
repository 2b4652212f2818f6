package markup

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Node is a read-only view over one element of a parsed document tree.
// Both the offline snapshot backing and the live page backing satisfy it,
// so extraction code never knows which one it is walking.
type Node interface {
	// Text returns the concatenated text of the node and its descendants.
	Text() string

	// Attr looks up an attribute by name.
	Attr(name string) (string, bool)

	// QueryAll returns every descendant matching the CSS selector.
	QueryAll(selector string) []Node

	// Closest returns the nearest ancestor (starting from the node itself)
	// matching the CSS selector.
	Closest(selector string) (Node, bool)

	// Children returns the element children of the node.
	Children() []Node

	// Contains reports whether other sits inside this node's subtree.
	Contains(other Node) bool

	// Raw exposes the underlying parse node. It serves as the identity key
	// for card deduplication; never mutate it.
	Raw() *html.Node
}

// Clickable is the extra capability carried by nodes of a live page.
// Nodes parsed from raw markup do not implement it. Clicking may trigger
// asynchronous page mutation outside this package's control.
type Clickable interface {
	Click(ctx context.Context) error
}

// clicker replays a click for a node path against whatever rendered the
// document. The offline backing has none.
type clicker interface {
	clickPath(ctx context.Context, path string) error
}

// Document wraps a parsed HTML tree.
type Document struct {
	doc   *goquery.Document
	click clicker
}

// Parse builds a read-only document from a raw markup string.
func Parse(raw string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}
	return &Document{doc: doc}, nil
}

// QueryAll returns every node in the document matching the CSS selector.
func (d *Document) QueryAll(selector string) []Node {
	return d.wrap(d.doc.Find(selector))
}

// Text returns the full text content of the document.
func (d *Document) Text() string {
	return d.doc.Text()
}

func (d *Document) wrap(sel *goquery.Selection) []Node {
	nodes := make([]Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, d.node(s))
	})
	return nodes
}

func (d *Document) node(sel *goquery.Selection) Node {
	n := snapNode{doc: d, sel: sel}
	if d.click != nil {
		return liveNode{snapNode: n}
	}
	return n
}

// snapNode is the read-only backing over a parsed snapshot.
type snapNode struct {
	doc *Document
	sel *goquery.Selection
}

func (n snapNode) Text() string {
	return n.sel.Text()
}

func (n snapNode) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n snapNode) QueryAll(selector string) []Node {
	return n.doc.wrap(n.sel.Find(selector))
}

func (n snapNode) Closest(selector string) (Node, bool) {
	c := n.sel.Closest(selector)
	if c.Length() == 0 {
		return nil, false
	}
	return n.doc.node(c.First()), true
}

func (n snapNode) Children() []Node {
	return n.doc.wrap(n.sel.Children())
}

func (n snapNode) Contains(other Node) bool {
	for p := other.Raw(); p != nil; p = p.Parent {
		if p == n.Raw() {
			return true
		}
	}
	return false
}

func (n snapNode) Raw() *html.Node {
	return n.sel.Nodes[0]
}

// liveNode adds click capability to a snapshot node; the click is replayed
// against the live session the snapshot came from.
type liveNode struct {
	snapNode
}

func (n liveNode) Click(ctx context.Context) error {
	return n.doc.click.clickPath(ctx, NodePath(n.Raw()))
}

// NodePath builds a CSS selector that uniquely addresses n inside its
// document, so an action on a snapshot node can be replayed against the
// live page the snapshot was taken from.
func NodePath(n *html.Node) string {
	var parts []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		idx := 1
		for sib := cur.PrevSibling; sib != nil; sib = sib.PrevSibling {
			if sib.Type == html.ElementNode {
				idx++
			}
		}
		parts = append(parts, fmt.Sprintf("%s:nth-child(%d)", cur.Data, idx))
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}
