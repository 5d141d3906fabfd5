// Package reconcile patches live HTML node trees to match freshly rendered
// markup while keeping node identity where it can.
//
// Children carrying a key attribute (data-key by default) are matched by
// key wherever they moved; children without one are matched in order
// against the previous unkeyed children of the same parent. A matched node
// is moved into place and patched: its attributes are reconciled and its own
// children go through the same matching. Everything else is inserted fresh,
// and previous children that were never matched are removed.
//
// The live tree is the golang.org/x/net/html node tree held by the caller;
// a node's identity is its *html.Node pointer.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync"
	"weak"

	"github.com/a-h/templ"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultKeyAttr is the attribute holding a node's identity key.
const DefaultKeyAttr = "data-key"

var ErrNilContainer = errors.New("reconcile: nil container")

// Stats counts the work done by a Reconciler since it was created.
type Stats struct {
	Renders     int `json:"renders"`      // renders that patched the tree
	Skips       int `json:"skips"`        // renders skipped because the markup was unchanged
	Inserts     int `json:"inserts"`      // freshly parsed nodes inserted
	Moves       int `json:"moves"`        // existing nodes relocated
	Removes     int `json:"removes"`      // existing nodes removed
	AttrSets    int `json:"attr_sets"`    // attributes added or changed
	AttrRemoves int `json:"attr_removes"` // attributes removed
	TextUpdates int `json:"text_updates"` // text or comment data replaced
}

// Mutations is the number of tree mutations counted in s.
func (s Stats) Mutations() int {
	return s.Inserts + s.Moves + s.Removes + s.AttrSets + s.AttrRemoves + s.TextUpdates
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithKeyAttr changes the identity attribute.
func WithKeyAttr(name string) Option {
	return func(r *Reconciler) {
		r.keyAttr = name
	}
}

// WithLogger sets the logger used for render diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = l
	}
}

type Reconciler struct {
	mu sync.Mutex

	keyAttr string
	logger  *slog.Logger

	// last markup applied per container; weakly keyed so a dropped
	// container is collected and its entry removed
	memo  map[weak.Pointer[html.Node]]string
	stats Stats
}

func New(opts ...Option) *Reconciler {
	r := &Reconciler{
		keyAttr: DefaultKeyAttr,
		logger:  slog.Default(),
		memo:    make(map[weak.Pointer[html.Node]]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default is the reconciler used by the package-level Render.
var Default = New()

// Render patches container's children to match markup using Default.
func Render(container *html.Node, markup string) error {
	return Default.Render(container, markup)
}

// Render patches container's children to match markup.
// It does nothing when markup equals the string last applied to container.
// Malformed markup is repaired the way the HTML parser repairs it.
func (r *Reconciler) Render(container *html.Node, markup string) error {
	if container == nil {
		return ErrNilContainer
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := weak.Make(container)
	last, seen := r.memo[key]
	if seen && last == markup {
		r.stats.Skips++
		r.logger.Debug("render: markup unchanged, skipping", "container", container.Data)
		return nil
	}

	nodes, err := Parse(markup, container)
	if err != nil {
		return fmt.Errorf("reconcile: parse markup: %w", err)
	}

	before := r.stats.Mutations()
	r.children(container, nodes)
	r.stats.Renders++
	if !seen {
		runtime.AddCleanup(container, r.drop, key)
	}
	r.memo[key] = markup

	r.logger.Debug("render: patched", "container", container.Data, "mutations", r.stats.Mutations()-before)
	return nil
}

// RenderComponent renders c to markup and patches it into container.
func (r *Reconciler) RenderComponent(ctx context.Context, container *html.Node, c templ.Component) error {
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		return fmt.Errorf("reconcile: render component: %w", err)
	}

	return r.Render(container, sb.String())
}

// Forget drops the memo for container, so the next Render always patches.
// Containers that become unreachable are forgotten automatically.
func (r *Reconciler) Forget(container *html.Node) {
	r.drop(weak.Make(container))
}

func (r *Reconciler) drop(key weak.Pointer[html.Node]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.memo, key)
}

func (r *Reconciler) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.stats
}

// children reconciles parent's current children against next.
func (r *Reconciler) children(parent *html.Node, next []*html.Node) {
	old := childNodes(parent)

	keyed := make(map[string]*html.Node)
	var unkeyed []*html.Node
	for _, n := range old {
		if k, ok := r.key(n); ok {
			keyed[k] = n
		} else {
			unkeyed = append(unkeyed, n)
		}
	}

	consumed := make(map[*html.Node]bool, len(old))
	cursor := 0

	var prev *html.Node
	for _, n := range next {
		var match *html.Node

		if k, ok := r.key(n); ok {
			if o := keyed[k]; o != nil && !consumed[o] && sameType(o, n) {
				match = o
			}
		} else {
			for cursor < len(unkeyed) && consumed[unkeyed[cursor]] {
				cursor++
			}
			// a candidate of another type stays available for the next unkeyed node
			if cursor < len(unkeyed) && sameType(unkeyed[cursor], n) {
				match = unkeyed[cursor]
				cursor++
			}
		}

		node := n
		if match != nil {
			node = match
			consumed[match] = true
		}

		ref := parent.FirstChild
		if prev != nil {
			ref = prev.NextSibling
		}

		if node != ref {
			if node.Parent != nil {
				node.Parent.RemoveChild(node)
			}
			parent.InsertBefore(node, ref)

			if match != nil {
				r.stats.Moves++
			} else {
				r.stats.Inserts++
			}
		}
		prev = node

		if match != nil {
			r.patch(match, n)
		}
	}

	for _, o := range old {
		if !consumed[o] && o.Parent == parent {
			parent.RemoveChild(o)
			r.stats.Removes++
		}
	}
}

// patch makes old look like n. Both have the same node type and tag.
func (r *Reconciler) patch(old, n *html.Node) {
	switch old.Type {
	case html.TextNode, html.CommentNode:
		if old.Data != n.Data {
			old.Data = n.Data
			r.stats.TextUpdates++
		}
	case html.ElementNode:
		r.attrs(old, n)
		r.children(old, childNodes(n))
	}
}

func (r *Reconciler) attrs(old, n *html.Node) {
	old.Attr = slices.DeleteFunc(old.Attr, func(a html.Attribute) bool {
		if attrIndex(n.Attr, a) < 0 {
			r.stats.AttrRemoves++
			return true
		}
		return false
	})

	for _, a := range n.Attr {
		i := attrIndex(old.Attr, a)
		switch {
		case i < 0:
			old.Attr = append(old.Attr, a)
			r.stats.AttrSets++
		case old.Attr[i].Val != a.Val:
			old.Attr[i].Val = a.Val
			r.stats.AttrSets++
		}
	}
}

func (r *Reconciler) key(n *html.Node) (string, bool) {
	if n.Type != html.ElementNode {
		return "", false
	}

	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == r.keyAttr && a.Val != "" {
			return a.Val, true
		}
	}
	return "", false
}

func attrIndex(attrs []html.Attribute, a html.Attribute) int {
	return slices.IndexFunc(attrs, func(b html.Attribute) bool {
		return b.Namespace == a.Namespace && b.Key == a.Key
	})
}

func sameType(a, b *html.Node) bool {
	if a.Type != b.Type {
		return false
	}
	if a.Type == html.ElementNode {
		return a.DataAtom == b.DataAtom && a.Data == b.Data && a.Namespace == b.Namespace
	}
	return true
}

func childNodes(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// Parse parses markup as the inner HTML of an element shaped like context.
// Leading and trailing whitespace is trimmed. The returned nodes are detached.
func Parse(markup string, context *html.Node) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	if context != nil && context.Type == html.ElementNode {
		ctx = &html.Node{
			Type:      html.ElementNode,
			Data:      context.Data,
			DataAtom:  context.DataAtom,
			Namespace: context.Namespace,
		}
	}

	return html.ParseFragment(strings.NewReader(strings.TrimSpace(markup)), ctx)
}

// NewContainer returns a detached element to render into.
func NewContainer(tag string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
}

// Serialize renders the children of container back to markup.
func Serialize(container *html.Node) (string, error) {
	var sb strings.Builder
	for c := container.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}
