package flat

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is a brute-force inner-product index backed by two files.
// Vectors are expected to be unit length, so scores are cosine similarities.
type Index struct {
	vecPath  string
	metaPath string

	// mu guards snap and stamp. A snapshot is immutable once published.
	mu    sync.RWMutex
	snap  *snapshot
	stamp fileStamp

	// wmu serialises writers within this process.
	wmu sync.Mutex
}

// snapshot is a loaded, aligned view of the artifacts.
type snapshot struct {
	vectors *vectorFile
	records []domain.MetadataRecord

	// metaLines is the number of parsed metadata records before alignment.
	metaLines int
}

func (s *snapshot) len() int {
	return s.vectors.count
}

// fileStamp identifies a version of the vector file on disk.
type fileStamp struct {
	modTime time.Time
	size    int64
}

// New returns an index over the given artifact paths. Nothing is read
// until the first query.
func New(vectorPath, metadataPath string) *Index {
	return &Index{
		vecPath:  vectorPath,
		metaPath: metadataPath,
	}
}

// Exists reports whether both artifacts are present.
func (idx *Index) Exists() bool {
	return fileExists(idx.vecPath) && fileExists(idx.metaPath)
}

// Search returns up to k hits ordered by descending score. Equal scores
// keep slot order. Scores and records come from one snapshot.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]domain.IndexHit, error) {
	snap, err := idx.current()
	if err != nil {
		return nil, err
	}

	n := snap.len()
	if k <= 0 || n == 0 {
		return []domain.IndexHit{}, nil
	}
	if len(query) != snap.vectors.dim {
		return nil, fmt.Errorf("search index: query dimension %d, index dimension %d: %w",
			len(query), snap.vectors.dim, domain.ErrIndexCorrupt)
	}

	hits := make([]domain.IndexHit, n)
	for slot := 0; slot < n; slot++ {
		if slot%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		hits[slot] = domain.IndexHit{Slot: slot, Score: dot(query, snap.vectors.row(slot))}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	hits = hits[:min(k, n)]
	for i := range hits {
		hits[i].Record = snap.records[hits[i].Slot]
	}
	return hits, nil
}

// MetadataAt returns the record describing slot.
func (idx *Index) MetadataAt(_ context.Context, slot int) (domain.MetadataRecord, error) {
	snap, err := idx.current()
	if err != nil {
		return domain.MetadataRecord{}, err
	}
	if slot < 0 || slot >= len(snap.records) {
		return domain.MetadataRecord{}, fmt.Errorf("metadata slot %d of %d: %w",
			slot, len(snap.records), domain.ErrIndexCorrupt)
	}
	return snap.records[slot], nil
}

// Len returns the number of indexed entries, or 0 when the index is absent.
func (idx *Index) Len(_ context.Context) (int, error) {
	if !idx.Exists() {
		return 0, nil
	}
	snap, err := idx.current()
	if err != nil {
		return 0, err
	}
	return snap.len(), nil
}

// Dimensions returns the vector dimension of the index, or 0 when absent.
func (idx *Index) Dimensions() int {
	snap, err := idx.current()
	if err != nil {
		return 0
	}
	return snap.vectors.dim
}

// Replace writes both artifacts from the given entries.
func (idx *Index) Replace(ctx context.Context, vectors [][]float32, records []domain.MetadataRecord) error {
	idx.wmu.Lock()
	defer idx.wmu.Unlock()

	return idx.write(ctx, vectors, records)
}

// Append extends the index with the given entries. The existing artifacts
// must be exactly aligned. When either artifact is missing the entries
// become the whole index.
func (idx *Index) Append(ctx context.Context, vectors [][]float32, records []domain.MetadataRecord) error {
	idx.wmu.Lock()
	defer idx.wmu.Unlock()

	if !idx.Exists() {
		logger.Warn("index artifacts missing, creating index from %d appended entries", len(vectors))
		return idx.write(ctx, vectors, records)
	}

	snap, err := idx.current()
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	if snap.metaLines != snap.len() {
		return fmt.Errorf("append index: %d metadata records for %d vectors: %w",
			snap.metaLines, snap.len(), domain.ErrIndexCorrupt)
	}
	if len(vectors) > 0 && snap.len() > 0 && len(vectors[0]) != snap.vectors.dim {
		return fmt.Errorf("append index: dimension %d, index dimension %d: %w",
			len(vectors[0]), snap.vectors.dim, domain.ErrIndexCorrupt)
	}

	allVectors := make([][]float32, 0, snap.len()+len(vectors))
	for i := 0; i < snap.len(); i++ {
		allVectors = append(allVectors, snap.vectors.row(i))
	}
	allVectors = append(allVectors, vectors...)

	allRecords := make([]domain.MetadataRecord, 0, len(snap.records)+len(records))
	allRecords = append(allRecords, snap.records...)
	allRecords = append(allRecords, records...)

	return idx.write(ctx, allVectors, allRecords)
}

// Close drops the cached snapshot.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.snap = nil
	idx.stamp = fileStamp{}
	return nil
}

// write validates the entries and replaces both artifacts. Callers hold wmu.
func (idx *Index) write(ctx context.Context, vectors [][]float32, records []domain.MetadataRecord) error {
	if len(vectors) != len(records) {
		return fmt.Errorf("write index: %d vectors, %d records: %w",
			len(vectors), len(records), domain.ErrInvalidInput)
	}

	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim || dim == 0 {
			return fmt.Errorf("write index: vector %d has dimension %d, want %d: %w",
				i, len(v), dim, domain.ErrInvalidInput)
		}
		if err := records[i].Validate(); err != nil {
			return fmt.Errorf("write index: slot %d: %w", i, err)
		}
	}

	metaData, err := encodeMetadata(records)
	if err != nil {
		return err
	}
	vecData := encodeVectors(dim, vectors)

	if err := ctx.Err(); err != nil {
		return err
	}

	metaTmp, err := writeTemp(idx.metaPath, metaData)
	if err != nil {
		return err
	}
	vecTmp, err := writeTemp(idx.vecPath, vecData)
	if err != nil {
		os.Remove(metaTmp)
		return err
	}

	// Metadata first: a reader may see extra metadata, never missing metadata.
	if err := os.Rename(metaTmp, idx.metaPath); err != nil {
		os.Remove(metaTmp)
		os.Remove(vecTmp)
		return fmt.Errorf("replace metadata: %w", err)
	}
	if err := os.Rename(vecTmp, idx.vecPath); err != nil {
		os.Remove(vecTmp)
		return fmt.Errorf("replace vectors: %w", err)
	}

	logger.Debug("wrote index: %d vectors, dimension %d", len(vectors), dim)

	idx.mu.Lock()
	idx.snap = nil
	idx.mu.Unlock()
	return nil
}

// current returns the snapshot for the files on disk, reloading when the
// vector file has changed since the last load.
func (idx *Index) current() (*snapshot, error) {
	info, err := os.Stat(idx.vecPath)
	if errors.Is(err, fs.ErrNotExist) || !fileExists(idx.metaPath) {
		return nil, domain.ErrIndexNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stat vectors: %w", err)
	}
	stamp := fileStamp{modTime: info.ModTime(), size: info.Size()}

	idx.mu.RLock()
	if idx.snap != nil && idx.stamp == stamp {
		snap := idx.snap
		idx.mu.RUnlock()
		return snap, nil
	}
	idx.mu.RUnlock()

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.snap != nil && idx.stamp == stamp {
		return idx.snap, nil
	}

	snap, err := idx.load()
	if err != nil {
		return nil, err
	}
	idx.snap = snap
	idx.stamp = stamp
	return snap, nil
}

// load reads and aligns both artifacts.
func (idx *Index) load() (*snapshot, error) {
	vecData, err := os.ReadFile(idx.vecPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrIndexNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read vectors: %w", err)
	}
	vectors, err := decodeVectors(vecData)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(idx.metaPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrIndexNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open metadata: %w", err)
	}
	defer f.Close()

	records, err := decodeMetadata(f)
	if err != nil {
		return nil, err
	}

	if vectors.count > 0 && len(records) == 0 {
		return nil, fmt.Errorf("load index: metadata has no records: %w", domain.ErrIndexCorrupt)
	}
	if len(records) < vectors.count {
		return nil, fmt.Errorf("load index: %d metadata records for %d vectors: %w",
			len(records), vectors.count, domain.ErrIndexCorrupt)
	}

	snap := &snapshot{vectors: vectors, records: records, metaLines: len(records)}
	if len(records) > vectors.count {
		logger.Warn("index metadata has %d records for %d vectors, using aligned prefix",
			len(records), vectors.count)
		snap.records = records[:vectors.count]
	}

	logger.Debug("loaded index: %d vectors, dimension %d", vectors.count, vectors.dim)
	return snap, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
