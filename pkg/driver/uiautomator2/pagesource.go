package uiautomator2

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/devicelab-dev/cartpilot/pkg/core"
)

type xmlNode struct {
	Text        string    `xml:"text,attr"`
	ResourceID  string    `xml:"resource-id,attr"`
	ContentDesc string    `xml:"content-desc,attr"`
	Class       string    `xml:"class,attr"`
	Bounds      string    `xml:"bounds,attr"`
	Enabled     string    `xml:"enabled,attr"`
	Displayed   string    `xml:"displayed,attr"`
	Clickable   string    `xml:"clickable,attr"`
	Scrollable  string    `xml:"scrollable,attr"`
	Children    []xmlNode `xml:"node"`
}

// ParsePageSource parses Android UI hierarchy XML into a node tree. The
// returned root stands for the <hierarchy> element and spans the union of
// its top-level windows.
func ParsePageSource(xmlData string) (*core.Node, error) {
	var hierarchy struct {
		XMLName xml.Name  `xml:"hierarchy"`
		Nodes   []xmlNode `xml:"node"`
	}

	if err := xml.Unmarshal([]byte(xmlData), &hierarchy); err != nil {
		return nil, fmt.Errorf("parse XML: %w", err)
	}

	root := &core.Node{Class: "hierarchy", IsEnabled: true}
	for _, n := range hierarchy.Nodes {
		if n.Displayed == "false" {
			continue
		}
		child := appendNode(root, n)
		root.Rect = union(root.Rect, child.Rect)
	}
	return root, nil
}

func appendNode(parent *core.Node, n xmlNode) *core.Node {
	node := parent.AppendChild(&core.Node{
		Label:        n.Text,
		ContentDesc:  n.ContentDesc,
		Class:        n.Class,
		ResourceID:   n.ResourceID,
		Rect:         parseBounds(n.Bounds),
		IsClickable:  n.Clickable == "true",
		IsScrollable: n.Scrollable == "true",
		IsEnabled:    n.Enabled != "false",
	})
	for _, c := range n.Children {
		if c.Displayed == "false" {
			continue
		}
		appendNode(node, c)
	}
	return node
}

// parseBounds parses Android bounds string "[x1,y1][x2,y2]" to Bounds.
func parseBounds(s string) core.Bounds {
	s = strings.ReplaceAll(s, "][", ",")
	s = strings.Trim(s, "[]")
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return core.Bounds{}
	}

	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return core.Bounds{}
		}
		v[i] = n
	}
	if v[2] < v[0] || v[3] < v[1] {
		return core.Bounds{}
	}
	return core.BoundsFromCorners(v[0], v[1], v[2], v[3])
}

func union(a, b core.Bounds) core.Bounds {
	if a.Empty() {
		return b
	}
	if b.Empty() {
		return a
	}
	left, top := min(a.X, b.X), min(a.Y, b.Y)
	right, bottom := max(a.Right(), b.Right()), max(a.Bottom(), b.Bottom())
	return core.BoundsFromCorners(left, top, right, bottom)
}
