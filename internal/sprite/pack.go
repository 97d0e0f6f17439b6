package sprite

import "sort"

// Block is a rectangle to place. X and Y are set by Pack.
type Block struct {
	Name string
	W, H int
	X, Y int
}

type treeNode struct {
	x, y, w, h  int
	used        bool
	right, down *treeNode
}

// Pack places blocks with a growing binary-tree packer and returns the
// sheet size. Blocks are placed largest first (max side, then height, then
// name) so equal inputs give equal layouts; the slice is reordered.
func Pack(blocks []*Block) (width, height int) {
	if len(blocks) == 0 {
		return 0, 0
	}
	sort.SliceStable(blocks, func(i, j int) bool {
		a, b := blocks[i], blocks[j]
		if ma, mb := max(a.W, a.H), max(b.W, b.H); ma != mb {
			return ma > mb
		}
		if a.H != b.H {
			return a.H > b.H
		}
		return a.Name < b.Name
	})

	root := &treeNode{w: blocks[0].W, h: blocks[0].H}
	for _, b := range blocks {
		n := find(root, b.W, b.H)
		if n == nil {
			root = grow(root, b.W, b.H)
			n = find(root, b.W, b.H)
		}
		split(n, b.W, b.H)
		b.X, b.Y = n.x, n.y
	}
	return root.w, root.h
}

func find(n *treeNode, w, h int) *treeNode {
	if n.used {
		if r := find(n.right, w, h); r != nil {
			return r
		}
		return find(n.down, w, h)
	}
	if w <= n.w && h <= n.h {
		return n
	}
	return nil
}

func split(n *treeNode, w, h int) {
	n.used = true
	n.down = &treeNode{x: n.x, y: n.y + h, w: n.w, h: n.h - h}
	n.right = &treeNode{x: n.x + w, y: n.y, w: n.w - w, h: h}
}

// grow extends the root right or down, preferring whichever keeps the
// sheet closer to square.
func grow(root *treeNode, w, h int) *treeNode {
	canDown := w <= root.w
	canRight := h <= root.h
	shouldRight := canRight && root.h >= root.w+w
	shouldDown := canDown && root.w >= root.h+h

	switch {
	case shouldRight:
		return growRight(root, w)
	case shouldDown:
		return growDown(root, h)
	case canRight:
		return growRight(root, w)
	case canDown:
		return growDown(root, h)
	}
	return growDown(growRight(root, w), h)
}

func growRight(root *treeNode, w int) *treeNode {
	return &treeNode{
		used:  true,
		w:     root.w + w,
		h:     root.h,
		down:  root,
		right: &treeNode{x: root.w, y: 0, w: w, h: root.h},
	}
}

func growDown(root *treeNode, h int) *treeNode {
	return &treeNode{
		used:  true,
		w:     root.w,
		h:     root.h + h,
		down:  &treeNode{x: 0, y: root.h, w: root.w, h: h},
		right: root,
	}
}
