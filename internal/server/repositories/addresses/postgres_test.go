package addresses

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/clientkeeper/internal/common"
	"github.com/dmitrijs2005/clientkeeper/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestFindByClientID_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "client_id", "zip_code", "street", "number", "complement",
		"neighborhood", "city", "state", "country", "created_at", "updated_at"}).
		AddRow(int64(5), int64(7), "01310-100", "Av. Paulista", "1000", "", "Bela Vista", "São Paulo", "SP", "BR", created, nil)

	mock.ExpectQuery(`(?s)^SELECT id, client_id, .* FROM addresses\s+WHERE client_id = \$1 AND deleted_at IS NULL`).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	got, err := repo.FindByClientID(context.Background(), 7)
	if err != nil {
		t.Fatalf("FindByClientID error: %v", err)
	}
	if got.ID != 5 || got.City != "São Paulo" || got.UpdatedAt != nil {
		t.Fatalf("unexpected address: %+v", got)
	}
}

func TestFindByClientID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT .* FROM addresses`).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByClientID(context.Background(), 7)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Now().UTC()
	mock.ExpectQuery(`(?s)^INSERT INTO addresses \(client_id, .*\)\s+VALUES \(\$1, .*\$9\)\s+RETURNING id, created_at`).
		WithArgs(int64(7), "50000-000", "Rua A", "10", "", "Centro", "Recife", "PE", "BR").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), created))

	a := &models.Address{ClientID: 7, ZipCode: "50000-000", Street: "Rua A", Number: "10", Neighborhood: "Centro", City: "Recife", State: "PE", Country: "BR"}
	got, err := repo.Create(context.Background(), a)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != 11 {
		t.Fatalf("unexpected id: %d", got.ID)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^INSERT INTO addresses`).
		WillReturnError(errors.New("fk violation"))

	_, err := repo.Create(context.Background(), &models.Address{ClientID: 7})
	if err == nil || !regexp.MustCompile(`db error: .*fk violation`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }

	existing := &models.Address{ID: 5, ClientID: 7, City: "Natal", Street: "Rua B"}
	city := "Recife"

	mock.ExpectExec(`(?s)^UPDATE addresses SET zip_code = \$2, .* updated_at = \$10\s+WHERE id = \$1`).
		WithArgs(int64(5), "", "Rua B", "", "", "", "Recife", "", "", fixed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Update(context.Background(), existing, models.AddressPatch{City: &city})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if got.City != "Recife" || existing.City != "Natal" {
		t.Fatalf("unexpected result: got %+v existing %+v", got, existing)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE FROM addresses WHERE id = \$1$`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), 5); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestSoftDeleteByClientID_NoAddressIsFine(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE addresses SET deleted_at = now\(\)\s+WHERE client_id = \$1 AND deleted_at IS NULL`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.SoftDeleteByClientID(context.Background(), 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRestoreByClientID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE addresses SET deleted_at = NULL\s+WHERE id = \(\s*SELECT id FROM addresses\s+WHERE client_id = \$1 AND deleted_at IS NOT NULL`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.RestoreByClientID(context.Background(), 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRestoreByClientID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE addresses SET deleted_at = NULL`).
		WillReturnError(errors.New("db down"))

	err := repo.RestoreByClientID(context.Background(), 7)
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
