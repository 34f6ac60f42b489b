package usage

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/notecompanion/pipeline/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestIncrement_Upsert(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT\s+INTO\s+user_usage\s*\(user_id,\s*tokens_used,\s*max_tokens,\s*plan\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*ON\s+CONFLICT\s*\(user_id\)\s*DO\s+UPDATE\s+SET\s+tokens_used\s*=\s*user_usage\.tokens_used\s*\+\s*EXCLUDED\.tokens_used;\s*$`

	mock.ExpectExec(q).
		WithArgs("u-1", 42, models.DefaultMaxTokens, models.PlanFree).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Increment(context.Background(), "u-1", 42); err != nil {
		t.Fatalf("Increment error: %v", err)
	}
}

func TestIncrement_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+user_usage`).
		WithArgs("u-1", 42, models.DefaultMaxTokens, models.PlanFree).
		WillReturnError(errors.New("db down"))

	if err := repo.Increment(context.Background(), "u-1", 42); err == nil {
		t.Fatal("expected error")
	}
}

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+user_id,\s*tokens_used,\s*max_tokens,\s*plan\s+FROM\s+user_usage\s+WHERE\s+user_id=\$1\s*$`

	rows := sqlmock.NewRows([]string{"user_id", "tokens_used", "max_tokens", "plan"}).
		AddRow("u-1", 500, 100000, "pro")
	mock.ExpectQuery(q).WithArgs("u-1").WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.TokensUsed != 500 || got.Plan != models.PlanPro {
		t.Fatalf("unexpected usage: %+v", got)
	}
}

func TestGet_DefaultsWhenMissing(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+user_id,\s*tokens_used`).
		WithArgs("new-user").
		WillReturnError(sql.ErrNoRows)

	got, err := repo.Get(context.Background(), "new-user")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.TokensUsed != 0 || got.MaxTokens != models.DefaultMaxTokens || got.Plan != models.PlanFree {
		t.Fatalf("unexpected defaults: %+v", got)
	}
	if got.Remaining() != models.DefaultMaxTokens {
		t.Fatalf("unexpected remaining: %d", got.Remaining())
	}
}
