package store // import "github.com/johnyfernandes/shlf-sync/store"

import (
	"database/sql"
	"sync"

	"github.com/pkg/errors"
)

var (
	// ErrBookNotFound is returned when a write references a book uuid that
	// does not exist locally. Orphaned references are rejected at write time.
	ErrBookNotFound = errors.New("store: book not found")
	// ErrNoActiveSession is returned when a mutation expects an active session row.
	ErrNoActiveSession = errors.New("store: no active session")
	// ErrPardonNotAvailable is returned when a pardon check-then-act fails its check.
	ErrPardonNotAvailable = errors.New("store: pardon not available")
)

type Store struct {
	db     *sql.DB
	dbLock sync.Mutex // dbLock serializes multi-statement transactions

	// profileLock guards the lazy creation of the singleton profile row so
	// that exactly one writer can create it.
	profileLock sync.Mutex

	BookCache    sync.Map // map[string]*model.Book, keyed by uuid
	ProfileCache sync.Map // map[int]*model.UserProfile
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db: db,
	}
}

func (s *Store) DBStats() sql.DBStats {
	return s.db.Stats()
}

func (s *Store) Ping() error {
	return s.db.Ping()
}

func (s *Store) Close() {
	//
}
