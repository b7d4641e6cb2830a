// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.
// This code has been cleaned up, refactored, and turned into generics.

// Package merkle provides an implementation of a merkel tree for validation
// support for the blockchain. Hashes are carried as lowercase hex strings and
// each parent is the hash of the concatenated hex strings of its children.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
)

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree. Hash returns the raw digest used for the leaf.
type Hashable interface {
	Hash() ([]byte, error)
}

// =============================================================================

// Tree represents a merkle tree that uses data of some type T that exhibits the
// behavior defined by the Hashable constraint.
type Tree[T Hashable] struct {
	Root         *Node[T]
	Leafs        []*Node[T]
	MerkleRoot   string
	hashStrategy func() hash.Hash
}

// WithHashStrategy is used to change the default hash strategy of using sha256
// when constructing a new tree.
func WithHashStrategy[T Hashable](hashStrategy func() hash.Hash) func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.hashStrategy = hashStrategy
	}
}

// NewTree constructs a new merkle tree that uses data of some type T that
// exhibits the behavior defined by the Hashable interface.
func NewTree[T Hashable](values []T, options ...func(t *Tree[T])) (*Tree[T], error) {
	var defaultHashStrategy = sha256.New

	t := Tree[T]{
		hashStrategy: defaultHashStrategy,
	}

	for _, option := range options {
		option(&t)
	}

	if err := t.Generate(values); err != nil {
		return nil, err
	}

	return &t, nil
}

// Generate constructs the leafs and nodes of the tree from the specified
// data. If the tree has been generated previously, the tree is re-generated
// from scratch.
func (t *Tree[T]) Generate(values []T) error {
	if len(values) == 0 {
		return errors.New("cannot construct tree with no content")
	}

	leafs := make([]*Node[T], 0, len(values))
	for _, value := range values {
		hash, err := value.Hash()
		if err != nil {
			return err
		}

		leafs = append(leafs, &Node[T]{
			Hash:  hex.EncodeToString(hash),
			Value: value,
			leaf:  true,
			Tree:  t,
		})
	}

	// A single leaf is its own root.
	root := leafs[0]
	if len(leafs) > 1 {
		var err error
		if root, err = buildIntermediate(leafs, t); err != nil {
			return err
		}
	}

	t.Root = root
	t.Leafs = leafs
	t.MerkleRoot = root.Hash

	return nil
}

// Rebuild is a helper function that will rebuild the tree reusing only the
// data that it currently holds in the leaves.
func (t *Tree[T]) Rebuild() error {
	return t.Generate(t.Values())
}

// Verify validates the hashes at each level of the tree and returns an error
// if the resulting hash at the root of the tree doesn't match the root hash.
func (t *Tree[T]) Verify() error {
	calculatedMerkleRoot, err := t.Root.verify()
	if err != nil {
		return err
	}

	if t.MerkleRoot != calculatedMerkleRoot {
		return errors.New("root hash invalid")
	}

	return nil
}

// Values returns the slice of values stored in the tree in leaf order.
func (t *Tree[T]) Values() []T {
	values := make([]T, len(t.Leafs))
	for i, leaf := range t.Leafs {
		values[i] = leaf.Value
	}

	return values
}

// RootHex returns the merkle root hash as a hex encoded string.
func (t *Tree[T]) RootHex() string {
	return t.MerkleRoot
}

// String returns a string representation of the tree. Only leaf nodes are
// included in the output.
func (t *Tree[T]) String() string {
	s := ""

	for _, l := range t.Leafs {
		s += fmt.Sprint(l)
		s += "\n"
	}

	return s
}

// MarshalText implements the TextMarshaler interface and produces a panic
// if anyone tries to marshal the Merkle tree. I don't want this to happen.
// Use the Values function to return a slice that can be marshaled.
func (t *Tree[T]) MarshalText() (text []byte, err error) {
	panic("do not marshal the merkle tree, use Values")
}

// =============================================================================

// Node represents a node, root, or leaf in the tree. It stores pointers to its
// immediate relationships, a hash, the data if it is a leaf, and other metadata.
type Node[T Hashable] struct {
	Tree   *Tree[T]
	Parent *Node[T]
	Left   *Node[T]
	Right  *Node[T]
	Hash   string
	Value  T
	leaf   bool
}

// verify walks down the tree until hitting a leaf, calculating the hash at
// each level and returning the resulting hash of the node.
func (n *Node[T]) verify() (string, error) {
	if n.leaf {
		hash, err := n.Value.Hash()
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(hash), nil
	}

	leftHash, err := n.Left.verify()
	if err != nil {
		return "", err
	}

	rightHash, err := n.Right.verify()
	if err != nil {
		return "", err
	}

	return n.Tree.combine(leftHash, rightHash)
}

// String returns a string representation of the node.
func (n *Node[T]) String() string {
	return fmt.Sprintf("%t %s %v", n.leaf, n.Hash, n.Value)
}

// =============================================================================

// combine hashes the concatenation of the two hex strings.
func (t *Tree[T]) combine(left string, right string) (string, error) {
	h := t.hashStrategy()
	if _, err := h.Write([]byte(left + right)); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// buildIntermediate is a helper function that for a given list of nodes,
// constructs the intermediate and root levels of the tree. An odd node at
// the end of a level is paired with itself. Returns the resulting root node
// of the tree.
func buildIntermediate[T Hashable](nl []*Node[T], t *Tree[T]) (*Node[T], error) {
	var nodes []*Node[T]

	for i := 0; i < len(nl); i += 2 {
		left, right := i, i+1
		if i+1 == len(nl) {
			right = i
		}

		hash, err := t.combine(nl[left].Hash, nl[right].Hash)
		if err != nil {
			return nil, err
		}

		n := Node[T]{
			Left:  nl[left],
			Right: nl[right],
			Hash:  hash,
			Tree:  t,
		}

		nodes = append(nodes, &n)
		nl[left].Parent = &n
		nl[right].Parent = &n

		if len(nl) <= 2 {
			return &n, nil
		}
	}

	return buildIntermediate(nodes, t)
}
