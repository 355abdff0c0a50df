// Package inmemdb provides in-memory repositories for tests and local development.
// Writes apply immediately: a Tx only tracks whether it was committed.
package inmemdb

import (
	"context"
	"sync"

	"github.com/locateme/backend/core"
	"github.com/locateme/backend/core/attendance"
	"github.com/locateme/backend/core/course"
	"github.com/locateme/backend/core/place"
	"github.com/locateme/backend/core/user"
)

type DB struct {
	mu sync.RWMutex

	users       map[int]user.User
	usersSeq    int
	courses     map[int]course.Course
	coursesSeq  int
	enrollments []course.Enrollment
	records     []attendance.Record
	recordsSeq  int
	places      []place.Place
}

var (
	_ core.Transactor = (*DB)(nil)
	_ core.Pinger     = (*DB)(nil)
)

func New() *DB {
	return &DB{
		users:   make(map[int]user.User),
		courses: make(map[int]course.Course),
	}
}

func (db *DB) PingContext(context.Context) error { return nil }

func (db *DB) Begin(ctx context.Context) (core.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return new(Tx), nil
}

// Reset drops all rows.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.users = make(map[int]user.User)
	db.courses = make(map[int]course.Course)
	db.enrollments = nil
	db.records = nil
	db.places = nil
	db.usersSeq, db.coursesSeq, db.recordsSeq = 0, 0, 0
}

type Tx struct {
	mu        sync.Mutex
	committed bool
}

func (tx *Tx) Executor() core.DBExecutor { return nil }

func (tx *Tx) Commit() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.committed = true
	return nil
}

func (tx *Tx) Rollback() error { return nil }

func (tx *Tx) Committed() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.committed
}
