package merkle_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/promptgate/pkg/llm"
	"github.com/papercomputeco/promptgate/pkg/merkle"
)

var _ = Describe("Node", func() {
	Describe("NewNode", func() {
		Context("when creating a root node (no parent)", func() {
			It("keeps the given bucket", func() {
				node := merkle.NewNode(text("hello world"), nil)

				Expect(node.Bucket.Content).To(Equal("hello world"))
				Expect(node.ParentHash).To(BeNil())
			})

			It("produces consistent hashes for the same bucket", func() {
				node1 := merkle.NewNode(text("same content"), nil)
				node2 := merkle.NewNode(text("same content"), nil)

				Expect(node1.Hash).To(Equal(node2.Hash))
			})

			It("produces different hashes for different content", func() {
				node1 := merkle.NewNode(text("content A"), nil)
				node2 := merkle.NewNode(text("content B"), nil)

				Expect(node1.Hash).NotTo(Equal(node2.Hash))
			})

			It("hashes the role and model as well as the content", func() {
				user := merkle.NewNode(text("hi"), nil)
				assistant := text("hi")
				assistant.Role = "assistant"
				otherModel := text("hi")
				otherModel.Model = "other"

				Expect(merkle.NewNode(assistant, nil).Hash).NotTo(Equal(user.Hash))
				Expect(merkle.NewNode(otherModel, nil).Hash).NotTo(Equal(user.Hash))
			})

			It("hashes the empty message", func() {
				node := merkle.NewNode(text(""), nil)

				Expect(node.Hash).To(HaveLen(64))
			})
		})

		Context("when creating a child node (with parent)", func() {
			var parent *merkle.Node

			BeforeEach(func() {
				parent = merkle.NewNode(text("parent content"), nil)
			})

			It("links the child to the parent via ParentHash", func() {
				child := merkle.NewNode(text("child content"), parent)

				Expect(child.ParentHash).NotTo(BeNil())
				Expect(*child.ParentHash).To(Equal(parent.Hash))
			})

			It("creates a chain of nodes", func() {
				child1 := merkle.NewNode(text("child 1"), parent)
				child2 := merkle.NewNode(text("child 2"), child1)

				Expect(*child1.ParentHash).To(Equal(parent.Hash))
				Expect(*child2.ParentHash).To(Equal(child1.Hash))
			})

			It("produces different hashes for same content with different parents", func() {
				parent2 := merkle.NewNode(text("different parent"), nil)
				child1 := merkle.NewNode(text("same content"), parent)
				child2 := merkle.NewNode(text("same content"), parent2)

				Expect(child1.Hash).NotTo(Equal(child2.Hash))
			})
		})
	})

	Describe("Verify", func() {
		It("detects tampered buckets", func() {
			node := merkle.NewNode(text("original"), nil)
			Expect(node.Verify()).To(BeTrue())

			node.Bucket.Content = "tampered"
			Expect(node.Verify()).To(BeFalse())
		})
	})

	Describe("MessageBucket", func() {
		It("copies the message role and content", func() {
			b := merkle.MessageBucket(llm.Message{Role: llm.RoleUser, Content: "Hello"}, "m", "ollama")

			Expect(b).To(Equal(merkle.Bucket{
				Type: "message", Role: "user", Content: "Hello", Model: "m", Provider: "ollama",
			}))
		})
	})

	Describe("Hash computation", func() {
		It("produces a valid SHA-256 hex string (64 characters)", func() {
			node := merkle.NewNode(text("test"), nil)

			Expect(node.Hash).To(MatchRegexp("^[a-f0-9]{64}$"))
		})
	})
})
