// Package merkle is an implementation of a Merkle DAG of recorded conversations
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Node represents a single content-addressed node in a Merkle DAG
type Node struct {
	// Hash is the content-addressed identifier (SHA-256, hex-encoded)
	Hash string `json:"hash"`

	// ParentHash links to the previous node hash.
	// This will be nil for root nodes.
	ParentHash *string `json:"parent_hash"`

	// Bucket is the hashable content for the node
	Bucket Bucket `json:"bucket"`
}

// input is the canonical form hashed for a node.
type input struct {
	Bucket Bucket `json:"bucket"`
	Parent string `json:"parent,omitempty"`
}

// NewNode creates a new node with the computed hash for the provided bucket
func NewNode(bucket Bucket, parent *Node) *Node {
	n := &Node{
		Bucket: bucket,
	}

	if parent != nil {
		h := parent.Hash
		n.ParentHash = &h
	}

	n.Hash = n.computeHash()
	return n
}

// Verify reports whether the node's hash matches its content.
func (n *Node) Verify() bool {
	return n.Hash == n.computeHash()
}

func (n *Node) computeHash() string {
	i := &input{
		Bucket: n.Bucket,
	}

	if n.ParentHash != nil {
		i.Parent = *n.ParentHash
	}

	// Struct fields marshal in declaration order, so the encoding is deterministic.
	data, err := json.Marshal(i)
	if err != nil {
		panic("failed to marshal hash input: " + err.Error())
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
