// Package sqlxrepos implements the repositories on PostgreSQL with hand-written SQL.
package sqlxrepos

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
)

const uniqueViolation = "23505"

type repository struct {
	exec core.DBExecutor
}

// getExec prefers the executor handed down by the service (a transaction) over the repository's own.
func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// isUniqueViolation reports whether err was raised by a unique constraint or index.
func isUniqueViolation(err error) bool {
	_, ok := violatedConstraint(err)
	return ok
}

// violatedConstraint returns the name of the unique constraint or index err was raised by.
func violatedConstraint(err error) (string, bool) {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	if !ok || pqErr.Code != uniqueViolation {
		return "", false
	}
	return pqErr.Constraint, true
}

// whereBuilder accumulates AND-ed conditions with numbered placeholders.
type whereBuilder struct {
	conds []string
	args  []interface{}
}

// add appends cond, where every "?" is replaced by the next placeholder.
func (wb *whereBuilder) add(cond string, arg interface{}) {
	wb.args = append(wb.args, arg)
	wb.conds = append(wb.conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(wb.args)), 1))
}

func (wb *whereBuilder) String() string {
	if len(wb.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(wb.conds, " AND ")
}
