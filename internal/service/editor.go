package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"listing-admin-api/internal/draft"
	"listing-admin-api/internal/logger"
	"listing-admin-api/pkg/uid"
)

// ErrSessionNotFound is returned for unknown or reaped editor sessions.
var ErrSessionNotFound = errors.New("editor session not found")

// EditorConfig holds configuration for the editor service.
type EditorConfig struct {
	// SessionTTL is how long a session may stay idle before it is reaped.
	SessionTTL time.Duration

	// ReapInterval is how often idle sessions are looked for.
	ReapInterval time.Duration

	// LoadTimeout bounds one baseline fetch.
	LoadTimeout time.Duration
}

// EditorService keeps the live editor sessions and reaps idle ones.
type EditorService struct {
	fetcher    draft.Fetcher
	completion draft.Completion
	config     EditorConfig
	log        logger.Logger
	now        func() time.Time

	mu       sync.RWMutex
	sessions map[string]*draft.Session

	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	runMu     sync.Mutex
	loads     sync.WaitGroup
}

// NewEditorService creates a new editor service.
func NewEditorService(fetcher draft.Fetcher, completion draft.Completion, config EditorConfig, log logger.Logger) *EditorService {
	if config.SessionTTL <= 0 {
		config.SessionTTL = 30 * time.Minute
	}
	if config.ReapInterval <= 0 {
		config.ReapInterval = time.Minute
	}
	if config.LoadTimeout <= 0 {
		config.LoadTimeout = 10 * time.Second
	}
	return &EditorService{
		fetcher:    fetcher,
		completion: completion,
		config:     config,
		log:        log.With("component", "editor"),
		now:        time.Now,
		sessions:   make(map[string]*draft.Session),
		stopCh:     make(chan struct{}),
	}
}

// Open starts a session. An empty listingID opens the create form; any
// other value opens the edit form and starts loading its baseline.
func (s *EditorService) Open(listingID string) string {
	sid := uid.New()
	sess := draft.NewSession(s.fetcher, s.completion, s.log.With("session_id", sid))

	s.mu.Lock()
	s.sessions[sid] = sess
	s.mu.Unlock()

	if err := s.load(sid, sess, listingID); err != nil {
		s.log.Warn("session open failed", "session_id", sid, "error", err)
	}
	s.log.Debug("session opened", "session_id", sid, "listing_id", listingID)
	return sid
}

// Retarget points an open session at another listing, or at create mode for
// an empty id. The previous baseline is discarded before Retarget returns.
func (s *EditorService) Retarget(sid, listingID string) error {
	sess, err := s.Get(sid)
	if err != nil {
		return err
	}
	return s.load(sid, sess, listingID)
}

// load retargets sess synchronously and fetches the baseline in the
// background.
func (s *EditorService) load(sid string, sess *draft.Session, listingID string) error {
	fetch, err := sess.Retarget(listingID)
	if err != nil {
		return err
	}
	if listingID == "" {
		return nil
	}

	s.loads.Add(1)
	go func() {
		defer s.loads.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.config.LoadTimeout)
		defer cancel()
		if err := fetch(ctx); err != nil {
			s.log.Warn("baseline load failed", "session_id", sid, "listing_id", listingID, "error", err)
		}
	}()
	return nil
}

// Get returns a live session.
func (s *EditorService) Get(sid string) (*draft.Session, error) {
	if !uid.IsValid(sid) {
		return nil, ErrSessionNotFound
	}
	s.mu.RLock()
	sess, ok := s.sessions[sid]
	s.mu.RUnlock()
	if !ok || sess.Closed() {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Submit submits a session and forgets it once it closed.
func (s *EditorService) Submit(ctx context.Context, sid string) (draft.SubmitResult, error) {
	sess, err := s.Get(sid)
	if err != nil {
		return draft.SubmitResult{}, err
	}
	res, err := sess.Submit(ctx)
	if res.Closed {
		s.forget(sid)
		s.log.Info("session submitted", "session_id", sid, "listing_id", res.ListingID)
	}
	return res, err
}

// Close unmounts a session and forgets it.
func (s *EditorService) Close(sid string) error {
	sess, err := s.Get(sid)
	if err != nil {
		return err
	}
	sess.Close()
	s.forget(sid)
	return nil
}

func (s *EditorService) forget(sid string) {
	s.mu.Lock()
	delete(s.sessions, sid)
	s.mu.Unlock()
}

// Count returns the number of live sessions.
func (s *EditorService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Reap closes sessions idle for longer than SessionTTL and returns how many
// were removed.
func (s *EditorService) Reap() int {
	cutoff := s.now().Add(-s.config.SessionTTL)

	s.mu.RLock()
	snapshot := make(map[string]*draft.Session, len(s.sessions))
	for sid, sess := range s.sessions {
		snapshot[sid] = sess
	}
	s.mu.RUnlock()

	reaped := 0
	for sid, sess := range snapshot {
		if !sess.Closed() && !sess.LastActive().Before(cutoff) {
			continue
		}
		sess.Close()
		s.forget(sid)
		reaped++
	}
	return reaped
}

// Start begins the idle session reaper.
func (s *EditorService) Start() {
	s.runMu.Lock()
	if s.isRunning {
		s.runMu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.ReapInterval)
	s.runMu.Unlock()

	s.log.Info("session reaper started", "interval", s.config.ReapInterval, "ttl", s.config.SessionTTL)
	go s.run()
}

func (s *EditorService) run() {
	for {
		select {
		case <-s.ticker.C:
			if n := s.Reap(); n > 0 {
				s.log.Info("idle sessions reaped", "count", n)
			}
		case <-s.stopCh:
			s.log.Info("session reaper stopped")
			return
		}
	}
}

// Stop stops the reaper and waits for in-flight baseline loads.
func (s *EditorService) Stop() {
	s.stopOnce.Do(func() {
		s.runMu.Lock()
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
		s.runMu.Unlock()
	})
	s.loads.Wait()
}
