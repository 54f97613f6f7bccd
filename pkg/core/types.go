// Package core defines the device-facing contracts shared by every
// cartpilot component: screen geometry, the accessibility element model
// and the capability interfaces a concrete driver has to provide.
package core

import "math"

// Bounds is an on-screen rectangle in device pixels.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BoundsFromCorners builds Bounds from left/top/right/bottom edges.
func BoundsFromCorners(left, top, right, bottom int) Bounds {
	return Bounds{X: left, Y: top, Width: right - left, Height: bottom - top}
}

// Center returns the center point.
func (b Bounds) Center() (int, int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Right returns the right edge.
func (b Bounds) Right() int { return b.X + b.Width }

// Bottom returns the bottom edge.
func (b Bounds) Bottom() int { return b.Y + b.Height }

// Area returns width*height, 0 for degenerate rectangles.
func (b Bounds) Area() int {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// Empty reports whether the rectangle has no area.
func (b Bounds) Empty() bool { return b.Area() == 0 }

// Contains reports whether the point lies inside the rectangle.
func (b Bounds) Contains(x, y int) bool {
	return x >= b.X && x < b.Right() && y >= b.Y && y < b.Bottom()
}

// Inside reports whether b lies fully within outer.
func (b Bounds) Inside(outer Bounds) bool {
	return b.X >= outer.X && b.Y >= outer.Y && b.Right() <= outer.Right() && b.Bottom() <= outer.Bottom()
}

// Distance returns the Euclidean distance between two points.
func Distance(x1, y1, x2, y2 int) float64 {
	dx := float64(x1 - x2)
	dy := float64(y1 - y2)
	return math.Sqrt(dx*dx + dy*dy)
}

// Element is a read-only view of one accessibility node. Handles are only
// valid for the snapshot they came from: never keep one across a click,
// swipe or back.
type Element interface {
	Text() string
	Desc() string
	ClassName() string
	ID() string
	Bounds() Bounds
	Clickable() bool
	Scrollable() bool
	ChildCount() int
	Parent() Element
	Children() []Element
}

// Node is the concrete Element produced by page-source parsing.
type Node struct {
	Label        string
	ContentDesc  string
	Class        string
	ResourceID   string
	Rect         Bounds
	IsClickable  bool
	IsScrollable bool
	IsEnabled    bool
	Depth        int

	parent   *Node
	children []*Node
}

// AppendChild attaches child under n and returns the child.
func (n *Node) AppendChild(child *Node) *Node {
	child.parent = n
	child.setDepth(n.Depth + 1)
	n.children = append(n.children, child)
	return child
}

func (n *Node) setDepth(d int) {
	n.Depth = d
	for _, c := range n.children {
		c.setDepth(d + 1)
	}
}

func (n *Node) Text() string      { return n.Label }
func (n *Node) Desc() string      { return n.ContentDesc }
func (n *Node) ClassName() string { return n.Class }
func (n *Node) ID() string        { return n.ResourceID }
func (n *Node) Bounds() Bounds    { return n.Rect }
func (n *Node) Clickable() bool   { return n.IsClickable }
func (n *Node) Scrollable() bool  { return n.IsScrollable }
func (n *Node) ChildCount() int   { return len(n.children) }

// Parent returns nil for the root.
func (n *Node) Parent() Element {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *Node) Children() []Element {
	out := make([]Element, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

// Flatten returns root and all its descendants in document order.
func Flatten(root *Node) []Element {
	if root == nil {
		return nil
	}
	out := []Element{root}
	for _, c := range root.children {
		out = append(out, Flatten(c)...)
	}
	return out
}

// TextOf returns the element's text, falling back to its description.
func TextOf(e Element) string {
	if t := e.Text(); t != "" {
		return t
	}
	return e.Desc()
}
