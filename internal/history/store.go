package history

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourorg/strategy-sync/internal/model"
)

// SnapshotRepository is the durable store contract. Snapshots are written
// by the flush worker and read only for crash recovery, never on the hot
// path.
type SnapshotRepository interface {
	Save(ctx context.Context, snapshot *model.SessionSnapshot) error
	GetByID(ctx context.Context, sessionID string) (*model.SessionSnapshot, error)
	Delete(ctx context.Context, sessionID string) error
}

// StoreConfig tunes the session store and its background workers.
type StoreConfig struct {
	MaxDepth      int
	SessionTTL    time.Duration
	FlushInterval time.Duration
	ReapInterval  time.Duration
	FlushRetries  uint64
}

// DefaultStoreConfig returns the documented defaults: depth 100, 24h TTL,
// 10s flushes, hourly reaping.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		MaxDepth:      DefaultMaxDepth,
		SessionTTL:    24 * time.Hour,
		FlushInterval: 10 * time.Second,
		ReapInterval:  time.Hour,
		FlushRetries:  3,
	}
}

type sessionEntry struct {
	mu             sync.Mutex
	log            *EventLog
	strategyID     int
	userID         int
	createdAt      time.Time
	lastModifiedAt time.Time

	// gen counts mutations; flushedGen is the generation last persisted.
	// They are compared, never reset, so a mutation that lands while a
	// flush is in flight keeps the entry flushable.
	gen        uint64
	flushedGen uint64
}

// Store holds all active editing sessions. Reads on one session never
// block on writes to another: the outer map takes an RWMutex while each
// entry serializes its own mutations.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry

	cfg    StoreConfig
	repo   SnapshotRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates a session store. repo may be nil, which disables
// durability (tests, local development) without changing hot-path behavior.
func NewStore(cfg StoreConfig, repo SnapshotRepository, logger *zap.Logger) *Store {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = time.Hour
	}
	return &Store{
		sessions: make(map[string]*sessionEntry),
		cfg:      cfg,
		repo:     repo,
		logger:   logger,
		now:      time.Now,
	}
}

// StartSession opens a new editing session and returns its ID.
func (s *Store) StartSession(strategyID, userID int) string {
	id := uuid.NewString()
	now := s.now().UTC()
	entry := &sessionEntry{
		log:            NewEventLog(s.cfg.MaxDepth),
		strategyID:     strategyID,
		userID:         userID,
		createdAt:      now,
		lastModifiedAt: now,
	}
	s.mu.Lock()
	s.sessions[id] = entry
	s.mu.Unlock()
	return id
}

// ResumeSession restores a session from its durable snapshot after a
// restart. A session that is already live is left untouched.
func (s *Store) ResumeSession(ctx context.Context, sessionID string) error {
	if _, ok := s.entry(sessionID); ok {
		return nil
	}
	if s.repo == nil {
		return ErrSessionNotFound
	}
	snapshot, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return ErrSessionNotFound
	}

	log := NewEventLog(s.cfg.MaxDepth)
	log.Restore(snapshot.UndoStack, snapshot.RedoStack)
	now := s.now().UTC()
	entry := &sessionEntry{
		log:            log,
		strategyID:     snapshot.StrategyID,
		userID:         snapshot.UserID,
		createdAt:      now,
		lastModifiedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; ok {
		// Raced with a concurrent resume; keep the live entry.
		return nil
	}
	s.sessions[sessionID] = entry
	return nil
}

// EndSession flushes and removes a session.
func (s *Store) EndSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	entry, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.flushEntry(ctx, sessionID, entry)
	if s.repo != nil {
		if err := s.repo.Delete(ctx, sessionID); err != nil {
			s.logger.Warn("failed to delete session snapshot",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	return nil
}

// Push records an event on the session's undo stack and clears its redo
// stack.
func (s *Store) Push(sessionID string, event model.ChangeEvent) error {
	entry, ok := s.entry(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.log.Push(event)
	entry.lastModifiedAt = s.now().UTC()
	entry.gen++
	return nil
}

// Undo pops the session's newest event onto its redo stack.
func (s *Store) Undo(sessionID string) (*model.ChangeEvent, error) {
	entry, ok := s.entry(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	event, err := entry.log.Undo()
	if err != nil {
		return nil, err
	}
	entry.lastModifiedAt = s.now().UTC()
	entry.gen++
	return event, nil
}

// Redo pops the session's newest redo event back onto its undo stack.
func (s *Store) Redo(sessionID string) (*model.ChangeEvent, error) {
	entry, ok := s.entry(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	event, err := entry.log.Redo()
	if err != nil {
		return nil, err
	}
	entry.lastModifiedAt = s.now().UTC()
	entry.gen++
	return event, nil
}

// CanUndo reports whether the session has undoable events.
func (s *Store) CanUndo(sessionID string) (bool, error) {
	entry, ok := s.entry(sessionID)
	if !ok {
		return false, ErrSessionNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.log.CanUndo(), nil
}

// CanRedo reports whether the session has redoable events.
func (s *Store) CanRedo(sessionID string) (bool, error) {
	entry, ok := s.entry(sessionID)
	if !ok {
		return false, ErrSessionNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.log.CanRedo(), nil
}

// Summary returns the session's read model.
func (s *Store) Summary(sessionID string) (*model.SessionSummary, error) {
	entry, ok := s.entry(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	undoDepth, redoDepth := entry.log.Depths()
	return &model.SessionSummary{
		SessionID:      sessionID,
		StrategyID:     entry.strategyID,
		UndoDepth:      undoDepth,
		RedoDepth:      redoDepth,
		CanUndo:        undoDepth > 0,
		CanRedo:        redoDepth > 0,
		CreatedAt:      entry.createdAt,
		LastModifiedAt: entry.lastModifiedAt,
	}, nil
}

// ActiveSessions returns the number of live sessions.
func (s *Store) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) entry(sessionID string) (*sessionEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[sessionID]
	return entry, ok
}

// StartWorkers launches the flush and reaper goroutines. Both stop when
// ctx is cancelled; neither ever holds up a caller's request.
func (s *Store) StartWorkers(ctx context.Context) {
	go s.runFlusher(ctx)
	go s.runReaper(ctx)
}

func (s *Store) runFlusher(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			// Final flush on shutdown.
			s.FlushAll(context.Background())
			return
		case <-ticker.C:
			s.FlushAll(ctx)
		}
	}
}

func (s *Store) runReaper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Reap(ctx)
		}
	}
}

// FlushAll writes every session snapshot with unpersisted mutations to
// the durable store.
// Failures are logged and retried on the next cycle, never surfaced to
// editor calls.
func (s *Store) FlushAll(ctx context.Context) {
	if s.repo == nil {
		return
	}
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	entries := make([]*sessionEntry, 0, len(s.sessions))
	for id, entry := range s.sessions {
		ids = append(ids, id)
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	for i, entry := range entries {
		s.flushEntry(ctx, ids[i], entry)
	}
}

func (s *Store) flushEntry(ctx context.Context, sessionID string, entry *sessionEntry) {
	entry.mu.Lock()
	if entry.gen == entry.flushedGen {
		entry.mu.Unlock()
		return
	}
	snapGen := entry.gen
	undo, redo := entry.log.Snapshot()
	snapshot := &model.SessionSnapshot{
		SessionID:      sessionID,
		StrategyID:     entry.strategyID,
		UserID:         entry.userID,
		UndoStack:      undo,
		RedoStack:      redo,
		LastModifiedAt: entry.lastModifiedAt,
	}
	entry.mu.Unlock()

	if s.repo == nil {
		return
	}
	op := func() error { return s.repo.Save(ctx, snapshot) }
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.cfg.FlushRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		s.logger.Warn("session flush failed, will retry next cycle",
			zap.String("session_id", sessionID), zap.Error(err))
		return
	}

	// Only the snapshotted generation is marked persisted; a mutation
	// that landed during the save keeps gen ahead and the entry flushable.
	entry.mu.Lock()
	entry.flushedGen = snapGen
	entry.mu.Unlock()
}

// Reap evicts sessions idle past the TTL, flushing each a final time.
func (s *Store) Reap(ctx context.Context) int {
	cutoff := s.now().UTC().Add(-s.cfg.SessionTTL)

	s.mu.Lock()
	var stale []string
	for id, entry := range s.sessions {
		entry.mu.Lock()
		idle := entry.lastModifiedAt.Before(cutoff)
		entry.mu.Unlock()
		if idle {
			stale = append(stale, id)
		}
	}
	staleEntries := make([]*sessionEntry, 0, len(stale))
	for _, id := range stale {
		staleEntries = append(staleEntries, s.sessions[id])
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for i, id := range stale {
		s.flushEntry(ctx, id, staleEntries[i])
		s.logger.Info("evicted stale session", zap.String("session_id", id))
	}
	return len(stale)
}
