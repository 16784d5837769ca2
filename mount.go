package modsh

import (
	"fmt"
)

// Mount attaches a schema node to the live resolution tree at the given
// path relative to the root. Every path element except the last must
// already resolve to a nested-node field; the last element becomes a new
// field pointing at the mounted node.
//
// Mounting is a structural edit of the tree. It must not interleave with a
// resolution pass; handlers that mount through the injected shell are safe
// because the invoking line's frame chain is fully built before dispatch.
func (s *Shell) Mount(node *Node, path []string, description string) error {
	if len(path) == 0 {
		return fmt.Errorf("mount: empty path")
	}
	parent := s.root
	for i, elem := range path {
		last := i == len(path)-1
		f := parent.Field(elem)
		if f == nil {
			if !last {
				return fmt.Errorf("mount: %q is not part of %q fields, but remaining path is not empty: %v",
					elem, parent.Name, path[i+1:])
			}
			return parent.Add(&Field{
				Name:        elem,
				Description: description,
				Kind:        KindNode,
				Node:        node,
			})
		}
		if last {
			return fmt.Errorf("mount: %q already exists on %q", elem, parent.Name)
		}
		if f.Node == nil {
			return fmt.Errorf("mount: %q on %q is not a nested node", elem, parent.Name)
		}
		parent = f.Node
	}
	return nil
}

// Unmount removes the field at the given path from the live resolution
// tree. Fails when any path element does not resolve.
func (s *Shell) Unmount(path []string) error {
	if len(path) == 0 {
		return fmt.Errorf("unmount: empty path")
	}
	parent := s.root
	for i, elem := range path {
		last := i == len(path)-1
		if last {
			if !parent.removeField(elem) {
				return fmt.Errorf("unmount: %q is not part of %q fields", elem, parent.Name)
			}
			return nil
		}
		f := parent.Field(elem)
		if f == nil || f.Node == nil {
			return fmt.Errorf("unmount: failed to resolve %q under %q", elem, parent.Name)
		}
		parent = f.Node
	}
	return nil
}
