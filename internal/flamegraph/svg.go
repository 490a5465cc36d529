package flamegraph

import (
	"fmt"
	"hash/fnv"
	"html"
	"io"
	"sort"
	"strings"
)

const (
	svgWidth    = 1200
	frameHeight = 16
	padSide     = 10
	padTop      = 40
	padBottom   = 20
	fontSize    = 12
	charWidth   = fontSize * 0.59
)

type node struct {
	name     string
	weight   int
	children []*node
	byName   map[string]*node
}

func (n *node) child(name string) *node {
	if c, ok := n.byName[name]; ok {
		return c
	}
	c := &node{name: name, byName: map[string]*node{}}
	n.byName[name] = c
	n.children = append(n.children, c)
	return c
}

func (n *node) sort() {
	sort.Slice(n.children, func(i, j int) bool { return n.children[i].name < n.children[j].name })
	for _, c := range n.children {
		c.sort()
	}
}

func (n *node) depth() int {
	d := 0
	for _, c := range n.children {
		if cd := c.depth(); cd > d {
			d = cd
		}
	}
	return d + 1
}

// merge folds stacks into a tree under a synthetic "all" frame. Sibling
// frames are ordered by name.
func merge(stacks []Stack) *node {
	root := &node{name: "all", byName: map[string]*node{}}
	for _, s := range stacks {
		if s.Weight <= 0 {
			continue
		}
		root.weight += s.Weight
		n := root
		for _, f := range s.Frames {
			n = n.child(f)
			n.weight += s.Weight
		}
	}
	root.sort()
	return root
}

// RenderSVG writes a flame graph of stacks to w.
func RenderSVG(w io.Writer, title string, stacks []Stack) error {
	root := merge(stacks)
	levels := root.depth()
	height := padTop + levels*frameHeight + padBottom

	var b strings.Builder
	fmt.Fprintf(&b, `<?xml version="1.0" standalone="no"?>`+"\n")
	fmt.Fprintf(&b, `<svg version="1.1" width="%d" height="%d" viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg">`+"\n",
		svgWidth, height, svgWidth, height)
	fmt.Fprintf(&b, `<rect x="0" y="0" width="%d" height="%d" fill="#f8f8f8"/>`+"\n", svgWidth, height)
	fmt.Fprintf(&b, `<text x="%d" y="24" font-size="17" font-family="Verdana" text-anchor="middle">%s</text>`+"\n",
		svgWidth/2, html.EscapeString(title))

	if root.weight == 0 {
		fmt.Fprintf(&b, `<text x="%d" y="%d" font-size="%d" font-family="Verdana" text-anchor="middle">no trace data</text>`+"\n",
			svgWidth/2, padTop+frameHeight, fontSize)
	} else {
		scale := float64(svgWidth-2*padSide) / float64(root.weight)
		drawNode(&b, root, root.weight, padSide, height-padBottom-frameHeight, scale)
	}

	b.WriteString("</svg>\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// drawNode renders n at (x, y) and its children on the row above.
func drawNode(b *strings.Builder, n *node, total int, x float64, y int, scale float64) {
	width := float64(n.weight) * scale
	pct := 100 * float64(n.weight) / float64(total)
	label := fmt.Sprintf("%s (%d samples, %.2f%%)", n.name, n.weight, pct)

	b.WriteString("<g>\n")
	fmt.Fprintf(b, "<title>%s</title>\n", html.EscapeString(label))
	fmt.Fprintf(b, `<rect x="%.1f" y="%d" width="%.1f" height="%d" fill="%s" rx="2" ry="2"/>`+"\n",
		x, y, width, frameHeight-1, color(n.name))
	if text := fit(n.name, width); text != "" {
		fmt.Fprintf(b, `<text x="%.1f" y="%d" font-size="%d" font-family="Verdana">%s</text>`+"\n",
			x+3, y+frameHeight-4, fontSize, html.EscapeString(text))
	}
	b.WriteString("</g>\n")

	cx := x
	for _, c := range n.children {
		drawNode(b, c, total, cx, y-frameHeight, scale)
		cx += float64(c.weight) * scale
	}
}

// fit shortens name to the frame width, or returns "" when even a short
// label would not fit.
func fit(name string, width float64) string {
	chars := int((width - 6) / charWidth)
	if chars < 3 {
		return ""
	}
	if len(name) <= chars {
		return name
	}
	return name[:chars-2] + ".."
}

// color picks a stable warm color for a frame name.
func color(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name)) //nolint:errcheck // hash writes never fail
	v := h.Sum32()
	r := 205 + int(v%50)
	g := int((v >> 8) % 230)
	bl := int((v >> 16) % 55)
	return fmt.Sprintf("rgb(%d,%d,%d)", r, g, bl)
}
