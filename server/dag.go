package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/papercomputeco/promptgate/pkg/llm"
	"github.com/papercomputeco/promptgate/pkg/merkle"
)

// HistoryResponse contains the recorded conversation leading to a node.
type HistoryResponse struct {
	// Messages in chronological order (oldest first, up to and including the requested node)
	Messages []HistoryMessage `json:"messages"`
	// HeadHash is the hash of the node that was requested
	HeadHash string `json:"head_hash"`
	// Depth is the number of messages in the history
	Depth int `json:"depth"`
}

// HistoryMessage represents a message in the conversation history.
type HistoryMessage struct {
	Hash       string        `json:"hash"`
	ParentHash *string       `json:"parent_hash,omitempty"`
	Role       string        `json:"role"`
	Content    string        `json:"content"`
	Model      string        `json:"model,omitempty"`
	Provider   string        `json:"provider,omitempty"`
	Usage      *merkle.Usage `json:"usage,omitempty"`
}

// handleDAGStats returns statistics about the recorded conversations.
func (s *Server) handleDAGStats(c *fiber.Ctx) error {
	ctx := c.UserContext()

	nodes, err := s.storer.List(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to list nodes"})
	}

	roots, err := s.storer.Roots(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get roots"})
	}

	leaves, err := s.storer.Leaves(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get leaves"})
	}

	return c.JSON(map[string]any{
		"total_nodes": len(nodes),
		"root_count":  len(roots),
		"leaf_count":  len(leaves),
	})
}

// handleGetNode returns a single node by its hash.
func (s *Server) handleGetNode(c *fiber.Ctx) error {
	node, err := s.storer.Get(c.UserContext(), c.Params("hash"))
	if err != nil {
		return s.storeError(c, err)
	}

	return c.JSON(node)
}

// handleListHistories returns one history per leaf, i.e. per distinct answer.
func (s *Server) handleListHistories(c *fiber.Ctx) error {
	ctx := c.UserContext()

	leaves, err := s.storer.Leaves(ctx)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "failed to get leaves"})
	}

	histories := make([]HistoryResponse, 0, len(leaves))
	for _, leaf := range leaves {
		history, err := s.buildHistory(ctx, leaf.Hash)
		if err != nil {
			s.logger.Warn("failed to build history for leaf", zap.String("hash", leaf.Hash), zap.Error(err))
			continue
		}
		histories = append(histories, *history)
	}

	return c.JSON(map[string]any{
		"count":     len(histories),
		"histories": histories,
	})
}

// handleGetHistory returns the conversation leading up to a node, oldest first.
func (s *Server) handleGetHistory(c *fiber.Ctx) error {
	history, err := s.buildHistory(c.UserContext(), c.Params("hash"))
	if err != nil {
		return s.storeError(c, err)
	}

	return c.JSON(history)
}

func (s *Server) buildHistory(ctx context.Context, hash string) (*HistoryResponse, error) {
	path, err := s.storer.Descendants(ctx, hash)
	if err != nil {
		return nil, err
	}

	messages := lo.Map(path, func(n *merkle.Node, _ int) HistoryMessage {
		return HistoryMessage{
			Hash:       n.Hash,
			ParentHash: n.ParentHash,
			Role:       n.Bucket.Role,
			Content:    n.Bucket.Content,
			Model:      n.Bucket.Model,
			Provider:   n.Bucket.Provider,
			Usage:      n.Bucket.Usage,
		}
	})

	return &HistoryResponse{
		Messages: messages,
		HeadHash: hash,
		Depth:    len(messages),
	}, nil
}

// IngestResponse reports the outcome of POST /dag/nodes.
type IngestResponse struct {
	New       int `json:"new"`
	Duplicate int `json:"duplicate"`
	Errors    int `json:"errors"`
}

// handleIngestNodes stores pushed nodes. Nodes whose hash does not match their
// content are counted as errors and skipped.
func (s *Server) handleIngestNodes(c *fiber.Ctx) error {
	var nodes []*merkle.Node
	if err := json.Unmarshal(c.Body(), &nodes); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	ctx := c.UserContext()
	var resp IngestResponse
	for _, n := range nodes {
		if n == nil || !n.Verify() {
			resp.Errors++
			continue
		}
		isNew, err := s.storer.Put(ctx, n)
		if err != nil {
			return s.storeError(c, err)
		}
		if isNew {
			resp.New++
		} else {
			resp.Duplicate++
		}
	}

	s.logger.Debug("ingested nodes",
		zap.Int("new", resp.New),
		zap.Int("duplicate", resp.Duplicate),
		zap.Int("errors", resp.Errors),
	)
	return c.JSON(resp)
}

func (s *Server) storeError(c *fiber.Ctx, err error) error {
	var notFound merkle.ErrNotFound
	if errors.As(err, &notFound) {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "node not found"})
	}
	s.logger.Error("storer failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "storage error"})
}
