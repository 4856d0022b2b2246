package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"listing-admin-api/internal/logger"
)

var (
	ErrSessionClosed    = errors.New("editor session is closed")
	ErrBaselineLoading  = errors.New("listing is still loading")
	ErrSubmitInProgress = errors.New("listing is being saved")
)

// Completion receives the payload of a successful submit.
type Completion interface {
	Create(ctx context.Context, p CreatePayload) (string, error)
	Update(ctx context.Context, id string, p EditPayload) error
}

// Mode is create or edit.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// State is a point-in-time snapshot of a session.
type State struct {
	ListingID  string            `json:"listing_id,omitempty"`
	Mode       Mode              `json:"mode"`
	Loader     LoadState         `json:"loader"`
	LoadError  string            `json:"load_error,omitempty"`
	Draft      View              `json:"draft"`
	Errors     map[string]string `json:"errors"`
	Submitting bool              `json:"submitting"`
	Closed     bool              `json:"closed"`
}

// SubmitResult is the outcome of a submit attempt.
type SubmitResult struct {
	// ListingID is set when the listing was saved.
	ListingID    string            `json:"listing_id,omitempty"`
	Errors       map[string]string `json:"errors"`
	ScrollToForm bool              `json:"scroll_to_form"`
	Closed       bool              `json:"closed"`
}

// Session is one create or edit form. Its methods are the form's events and
// may be called from concurrent requests; they are applied one at a time.
// While a submit is saving, the lock is released and every other event fails
// with ErrSubmitInProgress, so snapshots and idle checks never wait on the
// store.
type Session struct {
	mu sync.Mutex

	draft      *Draft
	loader     Loader
	errors     map[string]string
	closed     bool
	submitting bool
	lastActive time.Time

	fetcher    Fetcher
	completion Completion
	log        logger.Logger
	now        func() time.Time
}

// NewSession returns an empty create-mode session.
func NewSession(fetcher Fetcher, completion Completion, log logger.Logger) *Session {
	s := &Session{
		draft:      NewDraft(),
		loader:     Loader{state: LoadIdle},
		errors:     make(map[string]string),
		fetcher:    fetcher,
		completion: completion,
		log:        log,
		now:        time.Now,
	}
	s.lastActive = s.now()
	return s
}

func (s *Session) touch() { s.lastActive = s.now() }

// ready reports why the session cannot take an event, if it cannot.
func (s *Session) ready() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.submitting {
		return ErrSubmitInProgress
	}
	return nil
}

// LastActive returns the time of the last event.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Load binds the session to listing id and seeds the draft from it. An empty
// id switches to create mode. The draft is cleared before the fetch starts;
// the result is dropped if another Load started meanwhile or the session was
// closed.
func (s *Session) Load(ctx context.Context, id string) error {
	fetch, err := s.Retarget(id)
	if err != nil {
		return err
	}
	return fetch(ctx)
}

// Retarget binds the session to id and clears the draft. The returned fetch
// completes the load and may run on another goroutine.
func (s *Session) Retarget(id string) (func(ctx context.Context) error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}
	s.touch()
	gen := s.loader.Begin(id)
	s.draft.Reset()
	s.errors = make(map[string]string)

	return func(ctx context.Context) error {
		if id == "" {
			return nil
		}
		return s.fetch(ctx, id, gen)
	}, nil
}

func (s *Session) fetch(ctx context.Context, id string, gen uint64) error {
	listing, err := s.fetcher.FetchBaseline(ctx, id)
	if err == nil && listing == nil {
		err = ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.loader.Finish(gen, err) {
		s.log.Debug("stale baseline dropped", "listing_id", id)
		return nil
	}
	if err != nil {
		s.log.Warn("baseline load failed", "listing_id", id, "error", err)
		return fmt.Errorf("load listing %s: %w", id, err)
	}
	s.draft.Seed(listing)
	return nil
}

// SetField overwrites a scalar field and clears its error.
func (s *Session) SetField(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	s.touch()
	if err := s.draft.Set(field, value); err != nil {
		return err
	}
	delete(s.errors, field)
	return nil
}

// AddFeature adds a trimmed feature. Empty input and duplicates are ignored.
func (s *Session) AddFeature(value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return false, err
	}
	s.touch()
	value = strings.TrimSpace(value)
	if value == "" {
		return false, nil
	}
	added := s.draft.Features.Add(value)
	if added {
		delete(s.errors, FieldFeatures)
	}
	return added, nil
}

// RemoveFeature removes the feature at index if it equals value.
func (s *Session) RemoveFeature(value string, index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return false, err
	}
	s.touch()
	_, ok := s.draft.Features.Remove(value, index)
	if ok {
		delete(s.errors, FieldFeatures)
	}
	return ok, nil
}

// AddImages ingests a file selection and appends the accepted previews.
// Rejected files are reported together on the images field.
func (s *Session) AddImages(ctx context.Context, files []*FileHandle) (Batch, error) {
	if len(files) == 0 {
		return Batch{}, nil
	}

	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return Batch{}, err
	}
	s.touch()
	gen := s.loader.gen
	s.mu.Unlock()

	batch := Ingest(ctx, files)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return batch, err
	}
	if !s.loader.Current(gen) {
		s.log.Debug("ingested batch dropped after retarget", "files", len(files))
		return batch, nil
	}

	s.draft.addUploads(batch.Previews)
	delete(s.errors, FieldImages)
	if msg := batch.Message(); msg != "" {
		s.errors[FieldImages] = msg
		for _, f := range batch.Failures {
			s.log.Warn("image read failed", "file", f.FileName, "error", f.Err)
		}
	}
	return batch, nil
}

// RemoveImage removes the image at index.
func (s *Session) RemoveImage(index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return false, err
	}
	s.touch()
	img, ok := s.draft.Images.At(index)
	if !ok {
		return false, nil
	}
	if _, ok := s.draft.Images.Remove(img.FileName, index); !ok {
		return false, nil
	}
	if img.Source != nil {
		s.draft.dropUpload(img.Source)
	}
	delete(s.errors, FieldImages)
	return true, nil
}

// Submit validates the draft and hands the payload to the completion. The
// error map is replaced on every attempt. A successful submit closes the
// session. The completion runs without the session lock held.
func (s *Session) Submit(ctx context.Context) (SubmitResult, error) {
	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return SubmitResult{}, err
	}
	if s.loader.State() == LoadLoading {
		s.mu.Unlock()
		return SubmitResult{}, ErrBaselineLoading
	}
	s.touch()

	res := Validate(s.draft)
	s.errors = res.Messages
	if res.Failed {
		defer s.mu.Unlock()
		return SubmitResult{Errors: copyErrors(s.errors), ScrollToForm: true}, nil
	}

	editMode := s.draft.Features.EditMode()
	listingID := s.loader.ID()
	var create CreatePayload
	var edit EditPayload
	if editMode {
		edit = s.draft.editPayload()
	} else {
		create = s.draft.createPayload()
	}
	s.submitting = true
	s.mu.Unlock()

	var err error
	if editMode {
		err = s.completion.Update(ctx, listingID, edit)
	} else {
		listingID, err = s.completion.Create(ctx, create)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	s.touch()
	if err != nil {
		s.errors = map[string]string{FieldMessage: "Failed to save the listing"}
		return SubmitResult{Errors: copyErrors(s.errors), ScrollToForm: true}, err
	}

	s.closed = true
	return SubmitResult{ListingID: listingID, Errors: map[string]string{}, Closed: true}, nil
}

// Close unmounts the session. Pending loads and ingestions are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Closed reports whether the session was closed or submitted.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	mode := ModeCreate
	if s.draft.Features.EditMode() {
		mode = ModeEdit
	}
	return State{
		ListingID:  s.loader.ID(),
		Mode:       mode,
		Loader:     s.loader.State(),
		LoadError:  s.loader.Err(),
		Draft:      s.draft.View(),
		Errors:     copyErrors(s.errors),
		Submitting: s.submitting,
		Closed:     s.closed,
	}
}

func copyErrors(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
