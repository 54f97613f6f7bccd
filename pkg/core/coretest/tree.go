package coretest

import "github.com/devicelab-dev/cartpilot/pkg/core"

// Root returns a full-screen FrameLayout holding children.
func Root(children ...*core.Node) *core.Node {
	root := &core.Node{
		Class:     "android.widget.FrameLayout",
		Rect:      core.Bounds{Width: 1080, Height: 2400},
		IsEnabled: true,
	}
	for _, c := range children {
		root.AppendChild(c)
	}
	return root
}

// Text returns a TextView with the given label and bounds.
func Text(label string, x, y, w, h int) *core.Node {
	return &core.Node{
		Label:     label,
		Class:     "android.widget.TextView",
		Rect:      core.Bounds{X: x, Y: y, Width: w, Height: h},
		IsEnabled: true,
	}
}

// Button returns a clickable TextView.
func Button(label string, x, y, w, h int) *core.Node {
	n := Text(label, x, y, w, h)
	n.IsClickable = true
	return n
}

// Image returns an ImageView.
func Image(desc string, x, y, w, h int, clickable bool) *core.Node {
	return &core.Node{
		ContentDesc: desc,
		Class:       "android.widget.ImageView",
		Rect:        core.Bounds{X: x, Y: y, Width: w, Height: h},
		IsClickable: clickable,
		IsEnabled:   true,
	}
}

// Group returns a ViewGroup with children attached.
func Group(x, y, w, h int, clickable bool, children ...*core.Node) *core.Node {
	g := &core.Node{
		Class:       "android.view.ViewGroup",
		Rect:        core.Bounds{X: x, Y: y, Width: w, Height: h},
		IsClickable: clickable,
		IsEnabled:   true,
	}
	for _, c := range children {
		g.AppendChild(c)
	}
	return g
}

// WithID sets the resource id and returns n.
func WithID(n *core.Node, id string) *core.Node {
	n.ResourceID = id
	return n
}
