package chunker

import (
	"strings"

	"github.com/dgallion1/docsum/internal/doctree"
	"github.com/dgallion1/docsum/internal/splitter"
	"github.com/dgallion1/docsum/internal/tokenizer"
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize int               // Target chunk size in tokens.
	Counter   tokenizer.Counter // Token counter; word estimate when nil.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize: 1500,
		Counter:   tokenizer.Words{},
	}
}

// ChunkTree walks a DocTree and produces structure-aware chunks. Each
// section's heading and text stay together; sections over ChunkSize are split
// without overlap, so the chunks of a document cover its text exactly once.
func ChunkTree(tree *doctree.DocTree, cfg Config) []doctree.Chunk {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1500
	}
	if cfg.Counter == nil {
		cfg.Counter = tokenizer.Words{}
	}

	var chunks []doctree.Chunk
	for _, child := range tree.Children {
		walkNode(child, nil, cfg, &chunks)
	}
	return chunks
}

// walkNode recursively visits DocNodes, collecting text and splitting into chunks.
func walkNode(node *doctree.DocNode, breadcrumb []string, cfg Config, chunks *[]doctree.Chunk) {
	var bc []string
	bc = append(bc, breadcrumb...)
	if node.Title != "" {
		bc = append(bc, node.Title)
	}

	if body := strings.TrimSpace(node.Text); body != "" {
		if node.Title != "" {
			body = node.Title + "\n\n" + body
		}
		for _, part := range splitter.Split(body, cfg.ChunkSize, cfg.Counter) {
			if strings.TrimSpace(part) == "" {
				continue
			}
			*chunks = append(*chunks, doctree.Chunk{
				Text:       part,
				Index:      len(*chunks),
				Breadcrumb: copyBreadcrumb(bc),
				PageStart:  node.Page,
				PageEnd:    node.Page,
			})
		}
	}

	for _, child := range node.Children {
		walkNode(child, bc, cfg, chunks)
	}
}

func copyBreadcrumb(bc []string) []string {
	if len(bc) == 0 {
		return nil
	}
	out := make([]string, len(bc))
	copy(out, bc)
	return out
}
