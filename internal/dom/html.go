package dom

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// RectAttr carries an element's page-space box in HTML fixtures as
// "left top width height".
const RectAttr = "data-rect"

// ParseHTML builds a headless document from markup. Elements take their
// layout box from RectAttr and their initial inline styles from the style
// attribute.
func ParseHTML(r io.Reader, opts ...DocumentOption) (*Document, error) {
	parsed, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	d := NewDocument(opts...)
	var htmlNode *html.Node
	for c := parsed.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "html" {
			htmlNode = c
		}
	}
	if htmlNode == nil {
		return nil, fmt.Errorf("parse html: no <html> element")
	}

	root := d.CreateElement("html", nil)
	if err := copyAttrs(root, htmlNode); err != nil {
		return nil, err
	}
	if err := d.convertChildren(root, htmlNode); err != nil {
		return nil, err
	}
	d.root = root
	d.updateScrollSize()
	return d, nil
}

func (d *Document) convertChildren(dst *Element, src *html.Node) error {
	for c := src.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.Data == "head" {
			continue
		}
		e := d.CreateElement(c.Data, nil)
		if err := copyAttrs(e, c); err != nil {
			return err
		}
		dst.Append(e)
		if err := d.convertChildren(e, c); err != nil {
			return err
		}
	}
	return nil
}

func copyAttrs(e *Element, n *html.Node) error {
	for _, a := range n.Attr {
		switch a.Key {
		case RectAttr:
			box, err := ParseRect(a.Val)
			if err != nil {
				return fmt.Errorf("<%s %s=%q>: %w", n.Data, RectAttr, a.Val, err)
			}
			e.Box = box
		case "style":
			for prop, val := range parseStyleAttr(a.Val) {
				e.style[prop] = val
			}
		default:
			e.setAttr(a.Key, a.Val)
		}
	}
	return nil
}

// ParseRect parses "left top width height".
func ParseRect(s string) (Rect, error) {
	fields := strings.Fields(s)
	if len(fields) != 4 {
		return Rect{}, fmt.Errorf("want 4 numbers, got %d", len(fields))
	}
	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Rect{}, err
		}
		v[i] = n
	}
	return Rect{Left: v[0], Top: v[1], Width: v[2], Height: v[3]}, nil
}

func parseStyleAttr(s string) map[string]string {
	out := map[string]string{}
	for _, decl := range strings.Split(s, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.TrimSpace(prop)
		val = strings.TrimSpace(val)
		if prop != "" {
			out[prop] = val
		}
	}
	return out
}
