package pgstore

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	authorization "github.com/betandbeat/catalog-authorization"
)

func TestMapError(t *testing.T) {
	testCases := []struct {
		name        string
		err         error
		expectedErr error
	}{
		{name: "No rows", err: pgx.ErrNoRows, expectedErr: authorization.ErrNotFound},
		{name: "Unique violation", err: &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "principals_username_key"}, expectedErr: authorization.ErrConflict},
		{name: "Role still referenced", err: &pgconn.PgError{Code: codeForeignKeyViolation, ConstraintName: "principal_roles_role_id_fkey"}, expectedErr: authorization.ErrConflict},
		{name: "Connection failure", err: errors.New("connection refused"), expectedErr: authorization.ErrTransport},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError("op", tc.err), tc.expectedErr)
		})
	}
	assert.NoError(t, mapError("op", nil))
}

func TestIsForeignKeyViolation(t *testing.T) {
	fk := &pgconn.PgError{Code: codeForeignKeyViolation}
	assert.True(t, isForeignKeyViolation(fk))
	assert.True(t, isForeignKeyViolation(fmt.Errorf("insert: %w", fk)))
	assert.False(t, isForeignKeyViolation(&pgconn.PgError{Code: codeUniqueViolation}))
	assert.False(t, isForeignKeyViolation(errors.New("boom")))
}
