package index

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"storyrag/internal/domain"
	"storyrag/internal/port"
)

var (
	bucketMeta    = []byte("meta")
	bucketVectors = []byte("vectors")
	keyDimension  = []byte("dimension")
	keyModel      = []byte("model")
)

// BoltIndex is a brute-force cosine index held in memory and persisted to a
// single bbolt file. Persist writes a temp file and renames it over the
// target, so a crash mid-write never leaves a loadable corrupt index.
//
// One build or one search runs at a time in the intended deployment; the
// mutex only keeps the individual operations internally consistent.
type BoltIndex struct {
	embedder port.Embedder
	path     string
	logger   *zap.Logger

	mu      sync.RWMutex
	entries []entry
	ready   bool
}

type storedEntry struct {
	Title  string    `json:"title"`
	Text   string    `json:"text"`
	Vector []float32 `json:"v"`
}

// NewBoltIndex creates an index persisting to path. The logger may be nil.
func NewBoltIndex(embedder port.Embedder, path string, logger *zap.Logger) *BoltIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoltIndex{
		embedder: embedder,
		path:     path,
		logger:   logger,
	}
}

func (x *BoltIndex) Build(chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("%w: build requires at least one chunk", domain.ErrEmptyInput)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	// Embed everything before touching the current index: a provider failure
	// must not leave a partial index behind.
	vectors, err := x.embedder.Embed(texts)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	dim := x.embedder.Dimension()
	entries := make([]entry, len(chunks))
	for i := range chunks {
		if len(vectors[i]) != dim {
			return fmt.Errorf("embedder returned vector of dimension %d, expected %d", len(vectors[i]), dim)
		}
		entries[i] = entry{chunk: chunks[i], vector: vectors[i]}
	}

	x.mu.Lock()
	x.entries = entries
	x.ready = true
	x.mu.Unlock()

	x.logger.Info("index built",
		zap.Int("chunks", len(chunks)),
		zap.Int("dimension", dim),
		zap.String("model", x.embedder.ModelName()))

	return nil
}

func (x *BoltIndex) Persist() error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if !x.ready {
		return fmt.Errorf("%w: nothing to persist", domain.ErrNotInitialized)
	}

	if err := os.MkdirAll(filepath.Dir(x.path), 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp := x.path + ".tmp"
	if err := x.writeFile(tmp); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, x.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace index file: %w", err)
	}

	x.logger.Info("index persisted", zap.String("path", x.path), zap.Int("entries", len(x.entries)))
	return nil
}

func (x *BoltIndex) writeFile(path string) error {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to open index file: %w", err)
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		dim := make([]byte, 8)
		binary.BigEndian.PutUint64(dim, uint64(x.embedder.Dimension()))
		if err := meta.Put(keyDimension, dim); err != nil {
			return err
		}
		if err := meta.Put(keyModel, []byte(x.embedder.ModelName())); err != nil {
			return err
		}

		vectors, err := tx.CreateBucketIfNotExists(bucketVectors)
		if err != nil {
			return err
		}
		// Keys are big-endian sequence numbers so load preserves
		// insertion order, which search tie-breaking depends on.
		for i, e := range x.entries {
			key := make([]byte, 8)
			binary.BigEndian.PutUint64(key, uint64(i))
			data, err := json.Marshal(storedEntry{
				Title:  e.chunk.Title,
				Text:   e.chunk.Text,
				Vector: e.vector,
			})
			if err != nil {
				return err
			}
			if err := vectors.Put(key, data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (x *BoltIndex) Load() error {
	if _, err := os.Stat(x.path); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", domain.ErrIndexNotFound, x.path)
	}

	db, err := bbolt.Open(x.path, 0600, &bbolt.Options{ReadOnly: true})
	if err != nil {
		// The file exists but is not a readable database.
		return fmt.Errorf("%w: %v", domain.ErrFormat, err)
	}
	defer db.Close()

	var entries []entry
	dim := x.embedder.Dimension()

	err = db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if meta == nil {
			return fmt.Errorf("%w: missing meta bucket", domain.ErrFormat)
		}
		dimData := meta.Get(keyDimension)
		if len(dimData) != 8 {
			return fmt.Errorf("%w: missing stored dimension", domain.ErrFormat)
		}
		if stored := int(binary.BigEndian.Uint64(dimData)); stored != dim {
			return fmt.Errorf("%w: stored dimension %d, embedder dimension %d", domain.ErrFormat, stored, dim)
		}

		vectors := tx.Bucket(bucketVectors)
		if vectors == nil {
			return fmt.Errorf("%w: missing vectors bucket", domain.ErrFormat)
		}
		return vectors.ForEach(func(k, v []byte) error {
			var stored storedEntry
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrFormat, err)
			}
			if len(stored.Vector) != dim {
				return fmt.Errorf("%w: entry vector has dimension %d, expected %d", domain.ErrFormat, len(stored.Vector), dim)
			}
			entries = append(entries, entry{
				chunk:  domain.Chunk{Title: stored.Title, Text: stored.Text},
				vector: stored.Vector,
			})
			return nil
		})
	})
	if err != nil {
		return err
	}

	x.mu.Lock()
	x.entries = entries
	x.ready = true
	x.mu.Unlock()

	x.logger.Info("index loaded", zap.String("path", x.path), zap.Int("entries", len(entries)))
	return nil
}

func (x *BoltIndex) Search(query string, k int) ([]domain.ScoredChunk, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if !x.ready {
		return nil, fmt.Errorf("%w: build or load an index first", domain.ErrNotInitialized)
	}
	if k <= 0 {
		return nil, nil
	}

	vector, err := x.embedder.EmbedQuery(query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return rankEntries(x.entries, vector, k), nil
}

func (x *BoltIndex) Clear() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if err := os.Remove(x.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove index file: %w", err)
	}
	os.Remove(x.path + ".tmp")

	x.entries = nil
	x.ready = false
	return nil
}

func (x *BoltIndex) Ready() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.ready
}

func (x *BoltIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}
