package merkle_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/promptgate/pkg/merkle"
)

func describeStorer(name string, newStorer func() merkle.Storer) {
	Describe(name, func() {
		var (
			storer merkle.Storer
			ctx    context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			storer = newStorer()
		})

		AfterEach(func() {
			Expect(storer.Close()).To(Succeed())
		})

		put := func(nodes ...*merkle.Node) {
			for _, n := range nodes {
				_, err := storer.Put(ctx, n)
				Expect(err).NotTo(HaveOccurred())
			}
		}

		Describe("Put and Get", func() {
			It("stores and retrieves a node", func() {
				node := merkle.NewNode(text("test content"), nil)
				put(node)

				retrieved, err := storer.Get(ctx, node.Hash)
				Expect(err).NotTo(HaveOccurred())
				Expect(retrieved.Hash).To(Equal(node.Hash))
				Expect(retrieved.Bucket).To(Equal(node.Bucket))
				Expect(retrieved.ParentHash).To(BeNil())
				Expect(retrieved.Verify()).To(BeTrue())
			})

			It("stores and retrieves a node with parent", func() {
				parent := merkle.NewNode(text("parent"), nil)
				child := merkle.NewNode(text("child"), parent)
				put(parent, child)

				retrieved, err := storer.Get(ctx, child.Hash)
				Expect(err).NotTo(HaveOccurred())
				Expect(retrieved.ParentHash).NotTo(BeNil())
				Expect(*retrieved.ParentHash).To(Equal(parent.Hash))
			})

			It("keeps usage on assistant buckets", func() {
				b := text("answer")
				b.Role = "assistant"
				b.Usage = &merkle.Usage{PromptTokens: 3, CompletionTokens: 7}
				node := merkle.NewNode(b, nil)
				put(node)

				retrieved, err := storer.Get(ctx, node.Hash)
				Expect(err).NotTo(HaveOccurred())
				Expect(retrieved.Bucket.Usage).To(Equal(&merkle.Usage{PromptTokens: 3, CompletionTokens: 7}))
			})

			It("returns ErrNotFound for non-existent hash", func() {
				_, err := storer.Get(ctx, "nonexistent")

				var notFoundErr merkle.ErrNotFound
				Expect(err).To(BeAssignableToTypeOf(notFoundErr))
			})

			It("reports whether a put was new", func() {
				node := merkle.NewNode(text("test"), nil)

				isNew, err := storer.Put(ctx, node)
				Expect(err).NotTo(HaveOccurred())
				Expect(isNew).To(BeTrue())

				isNew, err = storer.Put(ctx, node)
				Expect(err).NotTo(HaveOccurred())
				Expect(isNew).To(BeFalse())

				nodes, err := storer.List(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(nodes).To(HaveLen(1))
			})

			It("rejects nil nodes", func() {
				_, err := storer.Put(ctx, nil)
				Expect(err).To(MatchError(ContainSubstring("nil node")))
			})
		})

		Describe("Has", func() {
			It("reports existence", func() {
				node := merkle.NewNode(text("test"), nil)
				put(node)

				Expect(storer.Has(ctx, node.Hash)).To(BeTrue())
				Expect(storer.Has(ctx, "nonexistent")).To(BeFalse())
			})
		})

		Describe("GetByParent", func() {
			It("returns children of a parent", func() {
				parent := merkle.NewNode(text("parent"), nil)
				put(parent, merkle.NewNode(text("child1"), parent), merkle.NewNode(text("child2"), parent))

				children, err := storer.GetByParent(ctx, &parent.Hash)
				Expect(err).NotTo(HaveOccurred())
				Expect(children).To(HaveLen(2))
			})

			It("returns root nodes when parentHash is nil", func() {
				root1 := merkle.NewNode(text("root1"), nil)
				put(root1, merkle.NewNode(text("root2"), nil), merkle.NewNode(text("child"), root1))

				roots, err := storer.GetByParent(ctx, nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(roots).To(HaveLen(2))
			})
		})

		Describe("List", func() {
			It("returns nodes in insertion order", func() {
				node1 := merkle.NewNode(text("node1"), nil)
				node2 := merkle.NewNode(text("node2"), node1)
				node3 := merkle.NewNode(text("node3"), node2)
				put(node1, node2, node3)

				nodes, err := storer.List(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(nodes).To(HaveLen(3))
				Expect(nodes[0].Hash).To(Equal(node1.Hash))
				Expect(nodes[2].Hash).To(Equal(node3.Hash))
			})

			It("returns empty slice for empty store", func() {
				nodes, err := storer.List(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(nodes).To(BeEmpty())
			})
		})

		Describe("Leaves", func() {
			It("returns all leaf nodes", func() {
				root := merkle.NewNode(text("root"), nil)
				child := merkle.NewNode(text("child"), root)
				leaf := merkle.NewNode(text("leaf"), child)
				put(root, child, leaf)

				leaves, err := storer.Leaves(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(leaves).To(HaveLen(1))
				Expect(leaves[0].Hash).To(Equal(leaf.Hash))
			})

			It("treats each branch as a leaf", func() {
				parent := merkle.NewNode(text("parent"), nil)
				put(parent, merkle.NewNode(text("branch1"), parent), merkle.NewNode(text("branch2"), parent))

				leaves, err := storer.Leaves(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(leaves).To(HaveLen(2))
			})
		})

		Describe("Ancestry, Descendants and Depth", func() {
			var root, child, grandchild *merkle.Node

			BeforeEach(func() {
				root = merkle.NewNode(text("root"), nil)
				child = merkle.NewNode(text("child"), root)
				grandchild = merkle.NewNode(text("grandchild"), child)
				put(root, child, grandchild)
			})

			It("returns path from node to root", func() {
				path, err := storer.Ancestry(ctx, grandchild.Hash)
				Expect(err).NotTo(HaveOccurred())
				Expect(path).To(HaveLen(3))
				Expect(path[0].Bucket.Content).To(Equal("grandchild"))
				Expect(path[2].Bucket.Content).To(Equal("root"))
			})

			It("returns path from root to node", func() {
				path, err := storer.Descendants(ctx, grandchild.Hash)
				Expect(err).NotTo(HaveOccurred())
				Expect(path).To(HaveLen(3))
				Expect(path[0].Bucket.Content).To(Equal("root"))
				Expect(path[2].Bucket.Content).To(Equal("grandchild"))
			})

			It("computes depth", func() {
				Expect(storer.Depth(ctx, root.Hash)).To(Equal(0))
				Expect(storer.Depth(ctx, grandchild.Hash)).To(Equal(2))
			})

			It("fails for unknown hashes", func() {
				_, err := storer.Ancestry(ctx, "missing")
				Expect(err).To(BeAssignableToTypeOf(merkle.ErrNotFound{}))
			})
		})
	})
}

var _ = Describe("Storers", func() {
	describeStorer("MemoryStorer", func() merkle.Storer {
		return merkle.NewMemoryStorer()
	})

	describeStorer("SQLiteStorer", func() merkle.Storer {
		s, err := merkle.NewSQLiteStorer(":memory:")
		Expect(err).NotTo(HaveOccurred())
		return s
	})
})

var _ = Describe("NewSQLiteStorer", func() {
	It("creates a file database", func() {
		dbPath := filepath.Join(GinkgoT().TempDir(), "test.db")

		s, err := merkle.NewSQLiteStorer(dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		_, err = os.Stat(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})
})
