package dom

import (
	"fmt"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var (
	selectorMu    sync.Mutex
	selectorCache = map[string]cascadia.Matcher{}
)

// Compile parses a selector list, caching the result.
func Compile(sel string) (cascadia.Matcher, error) {
	selectorMu.Lock()
	defer selectorMu.Unlock()
	if m, ok := selectorCache[sel]; ok {
		return m, nil
	}
	g, err := cascadia.ParseGroup(sel)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", sel, err)
	}
	selectorCache[sel] = g
	return g, nil
}

// newNode makes the html.Node mirror selectors are matched against.
func newNode(tag string) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag}
}

// setAttr writes an attribute to e and its mirror node.
func (e *Element) setAttr(name, value string) {
	e.attrs[name] = value
	for i := range e.node.Attr {
		if e.node.Attr[i].Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

func (e *Element) matches(m cascadia.Matcher) bool {
	return m.Match(e.node)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
