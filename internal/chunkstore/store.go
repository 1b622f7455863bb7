// Package chunkstore keeps indexed document chunks in a chromem vector
// collection.
package chunkstore

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"

	"github.com/dgallion1/docsum/internal/summarize"
)

const collectionName = "chunks"

// Metadata keys stored with every chunk.
const (
	metaDocumentID = "document_id"
	metaIndex      = "chunk_index"
	metaCount      = "chunk_count"
	metaSectionID  = "section_id"
)

// Store reads and writes chunks. Chunks of one document are stored under ids
// "<document>#<index>".
type Store struct {
	db   *chromem.DB
	coll *chromem.Collection
}

// Open uses a persistent database under path, or an in-memory one when path
// is empty.
func Open(path string, ef chromem.EmbeddingFunc) (*Store, error) {
	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(path, true)
		if err != nil {
			return nil, fmt.Errorf("open chunk db %s: %w", path, err)
		}
	}
	coll, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("get/create %s collection: %w", collectionName, err)
	}
	return &Store{db: db, coll: coll}, nil
}

func chunkID(docID string, i int) string {
	return docID + "#" + strconv.Itoa(i)
}

// Put replaces the chunks of docID.
func (s *Store) Put(ctx context.Context, docID string, chunks []summarize.StoredChunk) error {
	if err := s.Delete(ctx, docID); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(chunks))
	count := strconv.Itoa(len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID: chunkID(docID, i),
			Metadata: map[string]string{
				metaDocumentID: docID,
				metaIndex:      strconv.Itoa(i),
				metaCount:      count,
				metaSectionID:  c.SectionID,
			},
			Content: c.Text,
		}
	}
	if err := s.coll.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add chunks for %s: %w", docID, err)
	}
	return nil
}

// Chunks returns the chunks of docID in stored order.
func (s *Store) Chunks(ctx context.Context, docID string) ([]summarize.StoredChunk, error) {
	first, err := s.coll.GetByID(ctx, chunkID(docID, 0))
	if err != nil {
		return nil, fmt.Errorf("chunks for %s: %w", docID, summarize.ErrNotFound)
	}
	n, err := strconv.Atoi(first.Metadata[metaCount])
	if err != nil || n < 1 {
		return nil, fmt.Errorf("chunks for %s: bad %s metadata %q", docID, metaCount, first.Metadata[metaCount])
	}

	out := make([]summarize.StoredChunk, 0, n)
	out = append(out, toStored(first))
	for i := 1; i < n; i++ {
		d, err := s.coll.GetByID(ctx, chunkID(docID, i))
		if err != nil {
			return nil, fmt.Errorf("chunk %d of %s: %w", i, docID, err)
		}
		out = append(out, toStored(d))
	}
	return out, nil
}

func toStored(d chromem.Document) summarize.StoredChunk {
	return summarize.StoredChunk{Text: d.Content, SectionID: d.Metadata[metaSectionID]}
}

// Delete removes every chunk of docID. Unknown documents are not an error.
func (s *Store) Delete(ctx context.Context, docID string) error {
	if s.coll.Count() == 0 {
		return nil
	}
	if err := s.coll.Delete(ctx, map[string]string{metaDocumentID: docID}, nil); err != nil {
		return fmt.Errorf("delete chunks for %s: %w", docID, err)
	}
	return nil
}

// Count is the number of stored chunks across all documents.
func (s *Store) Count() int { return s.coll.Count() }
