package vector

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWIndex implements Client on the coder/hnsw pure Go HNSW graph.
// Each namespace gets its own graph; document display fields are kept
// alongside the vectors so hits stay renderable without a second lookup.
type HNSWIndex struct {
	mu       sync.RWMutex
	embedder Embedder
	dims     int
	shards   map[string]*shard
	closed   bool
}

// shard is one namespace's graph plus ID mappings.
type shard struct {
	graph   *hnsw.Graph[uint64]
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64
	docs    map[string]*Document
	vecs    map[string][]float32
}

var _ Client = (*HNSWIndex)(nil)

// NewHNSWIndex creates an empty index. dims is the embedding dimension;
// vectors of any other size are rejected.
func NewHNSWIndex(embedder Embedder, dims int) (*HNSWIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if dims <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dims)
	}
	return &HNSWIndex{
		embedder: embedder,
		dims:     dims,
		shards:   make(map[string]*shard),
	}, nil
}

func newShard() *shard {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25
	return &shard{
		graph:  graph,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
		docs:   make(map[string]*Document),
		vecs:   make(map[string][]float32),
	}
}

// Add embeds and indexes documents into the namespace.
// Re-adding an existing ID replaces it via lazy deletion (the old graph
// node is orphaned rather than removed, which sidesteps delete bugs in
// the underlying graph implementation).
func (x *HNSWIndex) Add(ctx context.Context, namespace string, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Title + "\n" + d.Text
	}
	vecs, err := x.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(vecs) != len(docs) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(docs), len(vecs))
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return fmt.Errorf("index is closed")
	}

	sh, ok := x.shards[namespace]
	if !ok {
		sh = newShard()
		x.shards[namespace] = sh
	}

	for i, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document without id at position %d", i)
		}
		if len(vecs[i]) != x.dims {
			return fmt.Errorf("dimension mismatch for %s: expected %d, got %d", doc.ID, x.dims, len(vecs[i]))
		}
		sh.insert(doc, vecs[i])
	}
	return nil
}

func (sh *shard) insert(doc *Document, vec []float32) {
	if existingKey, exists := sh.idMap[doc.ID]; exists {
		delete(sh.keyMap, existingKey)
		delete(sh.idMap, doc.ID)
	}

	key := sh.nextKey
	sh.nextKey++

	v := make([]float32, len(vec))
	copy(v, vec)
	normalizeInPlace(v)

	sh.graph.Add(hnsw.MakeNode(key, v))
	sh.idMap[doc.ID] = key
	sh.keyMap[key] = doc.ID
	sh.docs[doc.ID] = doc
	sh.vecs[doc.ID] = v
}

// SimilaritySearch embeds the query and returns scored hits.
func (x *HNSWIndex) SimilaritySearch(ctx context.Context, namespace, query string, threshold float64, topK int) ([]*Hit, error) {
	if topK <= 0 {
		topK = 10
	}

	queryVec, err := x.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(queryVec) != x.dims {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", x.dims, len(queryVec))
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return nil, fmt.Errorf("index is closed")
	}

	sh, ok := x.shards[namespace]
	if !ok || sh.graph.Len() == 0 {
		return []*Hit{}, nil
	}

	normalized := make([]float32, len(queryVec))
	copy(normalized, queryVec)
	normalizeInPlace(normalized)

	nodes := sh.graph.Search(normalized, topK)

	hits := make([]*Hit, 0, len(nodes))
	for _, node := range nodes {
		id, exists := sh.keyMap[node.Key]
		if !exists {
			continue // lazily deleted node
		}
		doc := sh.docs[id]

		distance := sh.graph.Distance(normalized, node.Value)
		score := float64(1.0 - distance/2.0) // cosine distance 0..2 → similarity 0..1
		if score < threshold {
			continue
		}

		hits = append(hits, &Hit{
			ID:       id,
			Score:    score,
			Title:    doc.Title,
			Text:     doc.Text,
			Metadata: doc.Metadata,
		})
	}
	return hits, nil
}

// Count returns the number of live documents in a namespace.
func (x *HNSWIndex) Count(namespace string) int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	sh, ok := x.shards[namespace]
	if !ok {
		return 0
	}
	return len(sh.idMap)
}

// persistedEntry is the on-disk form of one indexed document.
type persistedEntry struct {
	Namespace string
	Doc       *Document
	Vector    []float32
}

// persistedIndex is the gob envelope for Save/Load.
type persistedIndex struct {
	Dims    int
	Entries []persistedEntry
}

// Save writes the index to disk atomically (temp file + rename).
// Vectors are persisted raw and the graphs rebuilt on Load; graph
// structure itself is cheap to reconstruct at these corpus sizes.
func (x *HNSWIndex) Save(path string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return fmt.Errorf("index is closed")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	p := persistedIndex{Dims: x.dims}
	for ns, sh := range x.shards {
		for id, doc := range sh.docs {
			if _, live := sh.idMap[id]; !live {
				continue
			}
			p.Entries = append(p.Entries, persistedEntry{
				Namespace: ns,
				Doc:       doc,
				Vector:    sh.vecs[id],
			})
		}
	}

	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := gob.NewEncoder(file).Encode(p); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode index: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close index file: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load restores a saved index. A missing file leaves the index empty.
func (x *HNSWIndex) Load(path string) error {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()

	var p persistedIndex
	if err := gob.NewDecoder(file).Decode(&p); err != nil {
		return fmt.Errorf("decode index: %w", err)
	}
	if p.Dims != x.dims {
		return fmt.Errorf("index dimension mismatch: file has %d, configured %d", p.Dims, x.dims)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	x.shards = make(map[string]*shard)
	for _, entry := range p.Entries {
		sh, ok := x.shards[entry.Namespace]
		if !ok {
			sh = newShard()
			x.shards[entry.Namespace] = sh
		}
		sh.insert(entry.Doc, entry.Vector)
	}
	return nil
}

// Close releases resources.
func (x *HNSWIndex) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return nil
	}
	x.closed = true
	x.shards = nil
	return nil
}

// normalizeInPlace scales a vector to unit length.
func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
