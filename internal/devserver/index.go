// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
)

const (
	// ChunkSize is the target chunk length in runes.
	ChunkSize = 1000
	// ChunkOverlap is how many runes consecutive chunks share.
	ChunkOverlap = 150

	embeddingDims  = 256
	collectionName = "knowledge"
)

// Hit is one retrieved chunk.
type Hit struct {
	Text       string
	Title      string
	Source     string
	DocID      string
	ChunkIndex int
	Similarity float32
}

// Index stores chunked documents in a chromem-go collection.
type Index struct {
	mu         sync.RWMutex
	collection *chromem.Collection
}

// NewIndex creates an empty in-memory index.
func NewIndex() (*Index, error) {
	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection(collectionName, nil, Embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	return &Index{collection: collection}, nil
}

// Add chunks text and indexes every chunk under a new document id.
func (ix *Index) Add(ctx context.Context, text, title, source string) (string, int, error) {
	docID := uuid.NewString()
	chunks := Chunk(text, ChunkSize, ChunkOverlap)

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:      fmt.Sprintf("%s-%d", docID, i),
			Content: chunk,
			Metadata: map[string]string{
				"title":       title,
				"source":      source,
				"doc_id":      docID,
				"chunk_index": strconv.Itoa(i),
			},
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.collection.AddDocuments(ctx, docs, 4); err != nil {
		return "", 0, fmt.Errorf("failed to index document: %w", err)
	}
	return docID, len(chunks), nil
}

// Search returns up to k chunks most similar to query.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if n := ix.collection.Count(); k > n {
		k = n
	}
	if k <= 0 {
		return nil, nil
	}

	results, err := ix.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		idx, _ := strconv.Atoi(r.Metadata["chunk_index"])
		hits[i] = Hit{
			Text:       r.Content,
			Title:      r.Metadata["title"],
			Source:     r.Metadata["source"],
			DocID:      r.Metadata["doc_id"],
			ChunkIndex: idx,
			Similarity: r.Similarity,
		}
	}
	return hits, nil
}

// Count returns the number of indexed chunks.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.collection.Count()
}

// =============================================================================
// EMBEDDING AND CHUNKING
// =============================================================================

// Embed maps text to a normalized hashed bag-of-words vector. It needs no
// model or network and gives the same vector for the same text.
func Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, embeddingDims)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%embeddingDims]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		// chromem rejects zero vectors
		vec[0] = 1
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Chunk splits text into pieces of at most size runes where consecutive
// pieces share overlap runes. Text shorter than size is one chunk.
func Chunk(text string, size, overlap int) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	if overlap >= size {
		overlap = 0
	}

	var chunks []string
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
