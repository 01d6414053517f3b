// Package inmemdb is a process-local implementation of every repository, used by tests and the demo mode.
package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/material"
	"github.com/trezcool/classroom/core/note"
	"github.com/trezcool/classroom/core/quiz"
	"github.com/trezcool/classroom/core/user"
)

type (
	tables struct {
		seq int64

		users     map[int64]user.User
		students  map[int64]user.StudentProfile // by user ID
		teachers  map[int64]user.TeacherProfile // by user ID
		materials map[int64]material.Material
		notes     map[int64]note.Note
		quizzes   map[int64]quiz.Quiz // Questions always nil
		questions map[int64]quiz.Question
		answers   map[int64]quiz.Answer
		attempts  map[int64]quiz.Attempt
		responses map[int64]quiz.Response
	}

	// DB guards all tables with one lock. Transactions are serialized and
	// roll back by restoring a snapshot taken when they began; writes made
	// outside a transaction wait for the running one to finish.
	DB struct {
		mu   sync.RWMutex
		txMu sync.Mutex
		t    *tables
	}

	// txExec is the executor handed to RunInTx callbacks. It only marks the
	// repository calls made inside the transaction; its methods are never called.
	txExec struct {
		core.DBExecutor
	}
)

var _ core.Transactor = (*DB)(nil) // interface compliance check

func Open() *DB {
	return &DB{t: newTables()}
}

func newTables() *tables {
	return &tables{
		users:     make(map[int64]user.User),
		students:  make(map[int64]user.StudentProfile),
		teachers:  make(map[int64]user.TeacherProfile),
		materials: make(map[int64]material.Material),
		notes:     make(map[int64]note.Note),
		quizzes:   make(map[int64]quiz.Quiz),
		questions: make(map[int64]quiz.Question),
		answers:   make(map[int64]quiz.Answer),
		attempts:  make(map[int64]quiz.Attempt),
		responses: make(map[int64]quiz.Response),
	}
}

func (t *tables) nextID() int64 {
	t.seq++
	return t.seq
}

func (t *tables) clone() *tables {
	c := newTables()
	c.seq = t.seq
	copyMap(c.users, t.users)
	copyMap(c.students, t.students)
	copyMap(c.teachers, t.teachers)
	copyMap(c.materials, t.materials)
	copyMap(c.notes, t.notes)
	copyMap(c.quizzes, t.quizzes)
	copyMap(c.questions, t.questions)
	copyMap(c.answers, t.answers)
	copyMap(c.attempts, t.attempts)
	copyMap(c.responses, t.responses)
	return c
}

func copyMap[V any](dst, src map[int64]V) {
	for k, v := range src {
		dst[k] = v
	}
}

// RunInTx runs fn; on error (or panic) every table is restored to its state before fn ran.
// Repository writes inside fn must be given fn's executor.
func (db *DB) RunInTx(ctx context.Context, fn func(exec core.DBExecutor) error) (err error) {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.RLock()
	snapshot := db.t.clone()
	db.mu.RUnlock()

	rollback := func() {
		db.mu.Lock()
		db.t = snapshot
		db.mu.Unlock()
	}
	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err = fn(txExec{}); err != nil {
		rollback()
		return err
	}
	return nil
}

// Reset empties every table.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.t = newTables()
}

func (db *DB) read(fn func(t *tables)) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	fn(db.t)
}

func (db *DB) write(exec []core.DBExecutor, fn func(t *tables)) {
	if !inTx(exec) {
		db.txMu.Lock()
		defer db.txMu.Unlock()
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	fn(db.t)
}

func inTx(exec []core.DBExecutor) bool {
	if len(exec) == 0 {
		return false
	}
	_, ok := exec[0].(txExec)
	return ok
}
