package span

import sitter "github.com/smacker/go-tree-sitter"

// node is a syntax node copied out of the parser's tree. Children are
// indices into the owning arena.
type node struct {
	start    uint32
	end      uint32
	line     int
	children []int
}

// arena holds a whole syntax tree; index 0 is the root.
type arena []node

func newNode(n *sitter.Node) node {
	return node{
		start: n.StartByte(),
		end:   n.EndByte(),
		line:  int(n.StartPoint().Row) + 1,
	}
}

// buildArena copies the tree rooted at root using an explicit work stack, so
// deeply nested sources cannot exhaust the goroutine stack.
func buildArena(root *sitter.Node) arena {
	type pending struct {
		src *sitter.Node
		idx int
	}

	a := arena{newNode(root)}
	stack := []pending{{src: root, idx: 0}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		count := int(top.src.ChildCount())
		if count == 0 {
			continue
		}
		kids := make([]int, 0, count)
		for i := 0; i < count; i++ {
			child := top.src.Child(i)
			if child == nil {
				continue
			}
			idx := len(a)
			a = append(a, newNode(child))
			kids = append(kids, idx)
			stack = append(stack, pending{src: child, idx: idx})
		}
		a[top.idx].children = kids
	}
	return a
}

// postOrder emits one span per node, children before their parent and
// siblings left to right.
func (a arena) postOrder(code string) []Span {
	if len(a) == 0 {
		return nil
	}

	type frame struct {
		idx  int
		next int
	}

	spans := make([]Span, 0, len(a))
	stack := []frame{{idx: 0}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		n := a[top.idx]
		if top.next < len(n.children) {
			child := n.children[top.next]
			top.next++
			stack = append(stack, frame{idx: child})
			continue
		}
		spans = append(spans, Span{Text: slice(code, n.start, n.end), Line: n.line})
		stack = stack[:len(stack)-1]
	}
	return spans
}

func slice(code string, start, end uint32) string {
	s, e := int(start), int(end)
	if e > len(code) {
		e = len(code)
	}
	if s > e {
		return ""
	}
	return code[s:e]
}
