package sqlxrepos

import (
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/classroom/core"
)

func TestCreateUser_conflictField(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantField  string
		wantUnique bool
	}{
		{name: "email", err: &pq.Error{Code: uniqueViolation, Constraint: usersEmailKey}, wantField: "email", wantUnique: true},
		{name: "username", err: &pq.Error{Code: uniqueViolation, Constraint: usersUsernameKey}, wantField: "username", wantUnique: true},
		{name: "wrapped", err: errors.Wrap(&pq.Error{Code: uniqueViolation, Constraint: usersEmailKey}, "insert"), wantField: "email", wantUnique: true},
		{name: "other constraint", err: &pq.Error{Code: uniqueViolation, Constraint: "lol_key"}, wantUnique: true},
		{name: "not unique", err: &pq.Error{Code: "23503", Constraint: usersEmailKey}},
		{name: "not pq", err: errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			constraint, ok := violatedConstraint(tt.err)
			assert.Equal(t, tt.wantUnique, ok)
			if !ok {
				return
			}
			var conflict *core.ConflictError
			if assert.True(t, errors.As(userConflict(constraint), &conflict)) {
				if tt.wantField == "" {
					assert.Empty(t, conflict.Fields)
					return
				}
				if assert.Len(t, conflict.Fields, 1) {
					assert.Equal(t, tt.wantField, conflict.Fields[0].Field)
				}
			}
		})
	}
}
