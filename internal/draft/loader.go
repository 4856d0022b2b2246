package draft

import (
	"context"
	"errors"

	"listing-admin-api/internal/model"
)

// ErrNotFound is returned by a Fetcher when the listing does not exist.
var ErrNotFound = errors.New("listing not found")

// Fetcher supplies the baseline of an edit session.
type Fetcher interface {
	FetchBaseline(ctx context.Context, id string) (*model.Listing, error)
}

// LoadState is the state of a baseline load.
type LoadState string

const (
	LoadIdle    LoadState = "idle"
	LoadLoading LoadState = "loading"
	LoadReady   LoadState = "ready"
	LoadFailed  LoadState = "failed"
)

// Loader tracks which listing a session is bound to. Every Begin starts a
// new generation and only the latest generation may complete, so the last
// requested id always wins.
type Loader struct {
	state LoadState
	id    string
	err   string
	gen   uint64
}

// Begin retargets the loader at id. An empty id means create mode and
// leaves the loader idle.
func (l *Loader) Begin(id string) uint64 {
	l.gen++
	l.id = id
	l.err = ""
	if id == "" {
		l.state = LoadIdle
	} else {
		l.state = LoadLoading
	}
	return l.gen
}

// Current reports whether gen is still the latest generation.
func (l *Loader) Current(gen uint64) bool { return gen == l.gen }

// Finish completes generation gen. It reports false and changes nothing
// when a newer Begin has superseded it.
func (l *Loader) Finish(gen uint64, err error) bool {
	if !l.Current(gen) {
		return false
	}
	if err != nil {
		l.state = LoadFailed
		if errors.Is(err, ErrNotFound) {
			l.err = "Listing not found"
		} else {
			l.err = "Failed to load listing"
		}
		return true
	}
	l.state = LoadReady
	return true
}

func (l *Loader) State() LoadState { return l.state }
func (l *Loader) ID() string       { return l.id }
func (l *Loader) Err() string      { return l.err }
