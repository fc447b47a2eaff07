package accounts

import (
	"strings"

	"github.com/beandash/beandash/internal/model"
)

// BuildTree converts colon-delimited account names into a forest. Each
// segment becomes one level; shared prefixes appear once. Roots keep the
// order in which they were first seen.
func BuildTree(names []string) []*model.AccountNode {
	var roots []*model.AccountNode
	byPath := make(map[string]*model.AccountNode)

	for _, name := range names {
		segments := strings.Split(name, model.AccountSeparator)
		var parent *model.AccountNode
		path := ""
		for i, seg := range segments {
			if i == 0 {
				path = seg
			} else {
				path += model.AccountSeparator + seg
			}

			node, ok := byPath[path]
			if !ok {
				node = &model.AccountNode{Name: seg, FullName: path}
				byPath[path] = node
				if parent == nil {
					roots = append(roots, node)
				} else {
					parent.Children = append(parent.Children, node)
				}
			}
			parent = node
		}
	}
	return roots
}

// BuildTreeWithRoot wraps the forest in a synthetic "All Accounts" node.
func BuildTreeWithRoot(names []string) *model.AccountNode {
	return &model.AccountNode{
		Name:     model.AllAccountsName,
		IsRoot:   true,
		Children: BuildTree(names),
	}
}

// Walk visits every node in pre-order with its depth (roots are depth 0).
func Walk(forest []*model.AccountNode, fn func(node *model.AccountNode, depth int)) {
	var visit func(n *model.AccountNode, depth int)
	visit = func(n *model.AccountNode, depth int) {
		fn(n, depth)
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	for _, n := range forest {
		visit(n, 0)
	}
}

// LeafNames returns the full names of all leaves in depth-first order.
func LeafNames(forest []*model.AccountNode) []string {
	var names []string
	Walk(forest, func(n *model.AccountNode, _ int) {
		if n.IsLeaf() && !n.IsRoot {
			names = append(names, n.FullName)
		}
	})
	return names
}

// Find returns the node with the given full name, or nil.
func Find(forest []*model.AccountNode, fullName string) *model.AccountNode {
	var found *model.AccountNode
	Walk(forest, func(n *model.AccountNode, _ int) {
		if found == nil && !n.IsRoot && n.FullName == fullName {
			found = n
		}
	})
	return found
}
