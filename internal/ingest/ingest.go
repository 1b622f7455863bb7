// Package ingest turns uploaded files into the stored markdown and chunks a
// summary run reads.
package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/docsum/internal/chunker"
	"github.com/dgallion1/docsum/internal/docstore"
	"github.com/dgallion1/docsum/internal/doctree"
	"github.com/dgallion1/docsum/internal/parser"
	"github.com/dgallion1/docsum/internal/summarize"
	"github.com/dgallion1/docsum/internal/tokenizer"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrNoContent         = errors.New("no extractable content")
	ErrParse             = errors.New("parse failed")
)

// DocumentStore persists the markdown rendering of a document.
type DocumentStore interface {
	Save(ctx context.Context, id, text string) error
	Delete(ctx context.Context, id string) error
}

// ChunkStore persists the retrieval chunks of a document.
type ChunkStore interface {
	Put(ctx context.Context, docID string, chunks []summarize.StoredChunk) error
	Delete(ctx context.Context, docID string) error
}

// Upload is a file to index. An empty DocID is derived from the content.
type Upload struct {
	DocID    string
	Filename string
	Title    string
	Data     []byte
}

// Result describes an indexed document.
type Result struct {
	DocID       string `json:"doc_id"`
	Title       string `json:"title"`
	Filename    string `json:"filename"`
	Chunks      int    `json:"chunks"`
	Tokens      int    `json:"tokens"`
	ContentHash string `json:"content_hash"`
}

// Indexer parses, renders and chunks documents.
type Indexer struct {
	docs     DocumentStore
	chunks   ChunkStore
	chunkCfg chunker.Config
	log      *slog.Logger
}

func NewIndexer(docs DocumentStore, chunks ChunkStore, chunkCfg chunker.Config, log *slog.Logger) *Indexer {
	if chunkCfg.Counter == nil {
		chunkCfg.Counter = tokenizer.Words{}
	}
	return &Indexer{docs: docs, chunks: chunks, chunkCfg: chunkCfg, log: log}
}

// Ingest indexes up, replacing any earlier version stored under the same id.
func (ix *Indexer) Ingest(ctx context.Context, up Upload) (Result, error) {
	p, err := parser.ForFile(up.Filename)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	tree, err := p.Parse(bytes.NewReader(up.Data), up.Filename)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrParse, up.Filename, err)
	}
	if up.Title != "" {
		tree.Title = up.Title
	}

	md := doctree.Markdown(tree)
	res := Result{
		DocID:       up.DocID,
		Title:       tree.Title,
		Filename:    up.Filename,
		ContentHash: ContentHashHex([]byte(md)),
	}
	if res.DocID == "" {
		res.DocID = ContentHashHex(up.Data)[:16]
	}
	res.DocID = docstore.SanitizeID(res.DocID)
	log := ix.log.With("doc_id", res.DocID, "filename", up.Filename)

	chunks := chunker.ChunkTree(tree, ix.chunkCfg)
	if len(chunks) == 0 {
		return Result{}, fmt.Errorf("%s: %w", up.Filename, ErrNoContent)
	}

	stored := make([]summarize.StoredChunk, len(chunks))
	for i, c := range chunks {
		stored[i] = summarize.StoredChunk{Text: c.Text, SectionID: c.SectionLabel()}
		res.Tokens += ix.chunkCfg.Counter.Count(c.Text)
	}
	res.Chunks = len(stored)

	if err := ix.docs.Save(ctx, res.DocID, md); err != nil {
		return Result{}, fmt.Errorf("save markdown: %w", err)
	}
	if err := ix.chunks.Put(ctx, res.DocID, stored); err != nil {
		return Result{}, fmt.Errorf("store chunks: %w", err)
	}

	log.Info("document indexed", "chunks", res.Chunks, "tokens", res.Tokens, "sections", countSections(chunks))
	return res, nil
}

// Remove deletes the markdown and chunks of docID.
func (ix *Indexer) Remove(ctx context.Context, docID string) error {
	docID = docstore.SanitizeID(docID)
	if err := ix.chunks.Delete(ctx, docID); err != nil {
		return err
	}
	if err := ix.docs.Delete(ctx, docID); err != nil {
		return err
	}
	ix.log.Info("document removed", "doc_id", docID)
	return nil
}

func countSections(chunks []doctree.Chunk) int {
	seen := make(map[string]struct{})
	for _, c := range chunks {
		seen[c.SectionLabel()] = struct{}{}
	}
	return len(seen)
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
