package infra

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const markedUpdate = `--sql 0d8b8a3e-3c55-4a4b-9a3e-6a1d7f6f0e01
UPDATE users SET balance = balance + $2::numeric WHERE id = $1::uuid`

func newMockRunner(t *testing.T) (*SQLRunner, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewSQLRunner(mock, zerolog.Nop()), mock
}

func TestExtractMarker(t *testing.T) {
	marker, body, err := extractMarker(markedUpdate)
	require.NoError(t, err)
	assert.Equal(t, "0d8b8a3e-3c55-4a4b-9a3e-6a1d7f6f0e01", marker)
	assert.Contains(t, body, "UPDATE users")
	assert.NotContains(t, body, "--sql")

	_, _, err = extractMarker("SELECT 1")
	assert.ErrorIs(t, err, ErrMissingMarker)
}

func TestSQLRunnerRejectsUnmarkedQueries(t *testing.T) {
	runner, mock := newMockRunner(t)

	_, err := runner.Exec(context.Background(), "DELETE FROM users")
	assert.ErrorIs(t, err, ErrMissingMarker)

	var n int
	err = runner.QueryRow(context.Background(), "SELECT 1").Scan(&n)
	assert.ErrorIs(t, err, ErrMissingMarker)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRunnerRunInTxCommits(t *testing.T) {
	runner, mock := newMockRunner(t)

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectExec("UPDATE users SET balance").
		WithArgs("u1", "10").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		// A nested call joins the outer transaction instead of opening another.
		return runner.RunInTx(ctx, func(ctx context.Context) error {
			_, err := runner.Exec(ctx, markedUpdate, "u1", "10")
			return err
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRunnerRunInTxRollsBackOnError(t *testing.T) {
	runner, mock := newMockRunner(t)
	boom := errors.New("boom")

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectExec("UPDATE users SET balance").
		WithArgs("u1", "10").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectRollback()

	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		if _, err := runner.Exec(ctx, markedUpdate, "u1", "10"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}
