// Package service owns the index lifecycle and answers questions against it.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"

	"policyrag/internal/chunker"
	"policyrag/internal/domain"
	"policyrag/internal/metrics"
	"policyrag/internal/vectorstore"
)

// State is the lifecycle phase of the active index.
type State int32

const (
	StateUninitialized State = iota
	StateBuilding
	StateReady
	StateRebuilding
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	case StateRebuilding:
		return "rebuilding"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Status is a point-in-time view of the manager for health reporting.
type Status struct {
	State   State
	Chunks  int
	IndexID string
	BuiltAt time.Time
}

// ManagerConfig wires the manager's collaborators.
type ManagerConfig struct {
	Loader   domain.DocumentLoader
	Chunker  domain.Chunker
	Embedder domain.Embedder
	IndexDir string
	Logger   arbor.ILogger
	Metrics  *metrics.Metrics
}

// Manager builds or loads the index exactly once and swaps it on rebuild.
// Searches share a read lock; initialisation and rebuild hold the write lock
// for the whole pipeline.
type Manager struct {
	loader   domain.DocumentLoader
	chunker  domain.Chunker
	embedder domain.Embedder
	indexDir string
	logger   arbor.ILogger
	metrics  *metrics.Metrics

	mu    sync.RWMutex
	index *vectorstore.Index

	ready  atomic.Bool
	state  atomic.Int32
	active atomic.Pointer[vectorstore.Index]
}

// NewManager returns a manager in StateUninitialized.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		loader:   cfg.Loader,
		chunker:  cfg.Chunker,
		embedder: cfg.Embedder,
		indexDir: cfg.IndexDir,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State { return State(m.state.Load()) }

func (m *Manager) setState(s State) { m.state.Store(int32(s)) }

// Status never blocks, even while a rebuild holds the lock.
func (m *Manager) Status() Status {
	st := Status{State: m.State()}
	if ix := m.active.Load(); ix != nil {
		st.Chunks = ix.Len()
		st.IndexID = ix.ID()
		st.BuiltAt = ix.CreatedAt()
	}
	return st
}

// Ensure makes an index available, loading a persisted one when present and
// building from the document root otherwise. Concurrent callers wait for the
// single in-flight attempt. A failed attempt leaves the manager uninitialized
// so a later call can try again.
func (m *Manager) Ensure(ctx context.Context) error {
	if m.ready.Load() {
		return nil
	}
	// A build runs to completion even if the caller that triggered it goes away.
	ctx = context.WithoutCancel(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ready.Load() {
		return nil
	}

	m.setState(StateBuilding)
	start := time.Now()
	source := "build"
	var (
		ix  *vectorstore.Index
		err error
	)
	if vectorstore.Exists(m.indexDir) {
		source = "load"
		ix, err = m.load()
	} else {
		ix, err = m.build(ctx)
	}
	elapsed := time.Since(start)
	m.metrics.ObserveBuild(source, err, elapsed)
	if err != nil {
		m.setState(StateUninitialized)
		m.logger.Error().Err(err).Str("source", source).Str("dir", m.indexDir).Msg("Index initialisation failed")
		return err
	}

	m.activate(ix)
	m.logger.Info().
		Str("source", source).
		Str("index_id", ix.ID()).
		Int("chunks", ix.Len()).
		Int64("elapsed_ms", elapsed.Milliseconds()).
		Msg("Index ready")
	return nil
}

// Reindex rebuilds the index from the document root and replaces the
// persisted artifacts. On any failure the previous index keeps serving and
// the state is restored. Cancelling ctx does not abort a rebuild in progress.
// It returns the number of indexed chunks.
func (m *Manager) Reindex(ctx context.Context) (int, error) {
	ctx = context.WithoutCancel(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.State()
	if m.index != nil {
		m.setState(StateRebuilding)
	} else {
		m.setState(StateBuilding)
	}
	start := time.Now()
	ix, err := m.build(ctx)
	elapsed := time.Since(start)
	m.metrics.ObserveBuild("rebuild", err, elapsed)
	if err != nil {
		m.setState(prev)
		m.logger.Error().Err(err).Bool("previous_serving", m.index != nil).Msg("Reindex failed")
		return 0, err
	}

	m.activate(ix)
	m.logger.Info().
		Str("index_id", ix.ID()).
		Int("chunks", ix.Len()).
		Int64("elapsed_ms", elapsed.Milliseconds()).
		Msg("Index rebuilt")
	return ix.Len(), nil
}

// Search queries the active index under the shared lock.
func (m *Manager) Search(ctx context.Context, query []float32, k int) ([]domain.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.index == nil {
		return nil, domain.ErrNotReady
	}
	return m.index.Search(query, k)
}

// activate must be called with the write lock held.
func (m *Manager) activate(ix *vectorstore.Index) {
	m.index = ix
	m.active.Store(ix)
	m.metrics.SetChunks(ix.Len())
	m.setState(StateReady)
	m.ready.Store(true)
}

func (m *Manager) load() (*vectorstore.Index, error) {
	ix, err := vectorstore.Load(m.indexDir)
	if err != nil {
		return nil, err
	}
	if dim := m.embedder.Dimension(); dim > 0 && dim != ix.Dimension() {
		return nil, fmt.Errorf("%w: index has dimension %d but embedder %s produces %d, reindex required",
			domain.ErrCorruptIndex, ix.Dimension(), m.embedder.Name(), dim)
	}
	if ix.EmbedderName() != m.embedder.Name() {
		m.logger.Warn().
			Str("index_embedder", ix.EmbedderName()).
			Str("embedder", m.embedder.Name()).
			Msg("Persisted index was built by a different embedder")
	}
	return ix, nil
}

// build runs extract, chunk and embed in memory, then replaces the persisted
// artifacts. The directory is cleared only after the new index exists.
func (m *Manager) build(ctx context.Context) (*vectorstore.Index, error) {
	docs, err := m.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	chunks, err := chunker.ChunkAll(m.chunker, docs)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	m.logger.Info().Int("documents", len(docs)).Int("chunks", len(chunks)).Msg("Embedding chunks")

	ix, err := vectorstore.Build(ctx, m.embedder, chunks)
	if err != nil {
		return nil, err
	}
	if err := vectorstore.Clear(m.indexDir); err != nil {
		return nil, fmt.Errorf("clear index dir: %w", err)
	}
	if err := vectorstore.Persist(ix, m.indexDir); err != nil {
		return nil, fmt.Errorf("persist index: %w", err)
	}
	return ix, nil
}
