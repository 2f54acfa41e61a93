package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/ogurasousui/codex-company-registration/internal/core/company"
)

var companyColumns = []string{"id", "owner_id", "name", "email", "goal", "headquarters", "executives", "state", "tax_id", "version", "created_at", "updated_at"}

type stubRow struct {
	scanFn func(dest ...any) error
}

func (s stubRow) Scan(dest ...any) error {
	return s.scanFn(dest...)
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

// anyArgs は引数の値を問わない n 個の期待値を返します。
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func sampleCompany(now time.Time) *company.Company {
	return &company.Company{
		ID:           "company-1",
		OwnerID:      "owner-1",
		Name:         "Acme",
		Email:        "acme@example.com",
		Goal:         "Trading",
		Headquarters: "Athens",
		Executives:   "Alice",
		State:        company.StatePending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestScanCompany_Success(t *testing.T) {
	t.Parallel()

	createdAt := time.Now().UTC()
	row := stubRow{scanFn: func(dest ...any) error {
		if len(dest) != 12 {
			return errors.New("unexpected dest length")
		}
		*(dest[0].(*string)) = "company-1"
		*(dest[1].(*string)) = "owner-1"
		*(dest[2].(*string)) = "Acme"
		*(dest[3].(*string)) = "acme@example.com"
		*(dest[4].(*string)) = "Trading"
		*(dest[5].(*string)) = "Athens"
		*(dest[6].(*string)) = "Alice"
		*(dest[7].(*string)) = string(company.StateAccepted)

		tax := dest[8].(*sql.NullString)
		tax.String = "tax-1"
		tax.Valid = true

		*(dest[9].(*int64)) = 4
		*(dest[10].(*time.Time)) = createdAt
		*(dest[11].(*time.Time)) = createdAt
		return nil
	}}

	c, err := scanCompany(row)
	if err != nil {
		t.Fatalf("scanCompany returned error: %v", err)
	}

	if c.TaxID == nil || *c.TaxID != "tax-1" {
		t.Fatalf("expected tax id, got %+v", c.TaxID)
	}
	if c.State != company.StateAccepted || c.Version != 4 {
		t.Fatalf("unexpected company %+v", c)
	}
}

func TestScanCompany_NoRows(t *testing.T) {
	t.Parallel()

	row := stubRow{scanFn: func(dest ...any) error {
		return pgx.ErrNoRows
	}}

	if _, err := scanCompany(row); !errors.Is(err, company.ErrCompanyNotFound) {
		t.Fatalf("expected ErrCompanyNotFound, got %v", err)
	}
}

func TestTranslateCompanyPgError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want error
	}{
		{name: "owner", err: &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: companiesOwnerConstraint}, want: company.ErrAlreadyRegistered},
		{name: "email", err: &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: companiesEmailConstraint}, want: company.ErrEmailAlreadyUsed},
		{name: "documents remain", err: &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: documentsCompanyConstraint}, want: company.ErrVersionConflict},
		{name: "unknown owner", err: &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: companiesOwnerFKConstraint}, want: company.ErrInvalidOwner},
		{name: "malformed id", err: &pgconn.PgError{Code: invalidTextReprCode}, want: company.ErrCompanyNotFound},
	}

	for _, tc := range cases {
		if got := translateCompanyPgError(tc.err); !errors.Is(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}

	otherErr := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "companies_tax_id_key"}
	if translateCompanyPgError(otherErr) != otherErr {
		t.Fatalf("unexpected translation for unmapped constraint")
	}
}

func TestCompanyRepository_Create(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewCompanyRepository(mock)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := sampleCompany(now)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO companies`)).
		WithArgs("owner-1", "Acme", "acme@example.com", "Trading", "Athens", "Alice", "PENDING", nil, now, now).
		WillReturnRows(pgxmock.NewRows(companyColumns).
			AddRow("company-1", "owner-1", "Acme", "acme@example.com", "Trading", "Athens", "Alice", "PENDING", nil, int64(1), now, now))

	created, err := repo.Create(context.Background(), c)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID != "company-1" || created.Version != 1 || created.TaxID != nil {
		t.Fatalf("unexpected company %+v", created)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCompanyRepository_Create_DuplicateOwner(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewCompanyRepository(mock)
	c := sampleCompany(time.Now().UTC())

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO companies`)).
		WithArgs(anyArgs(10)...).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: companiesOwnerConstraint})

	if _, err := repo.Create(context.Background(), c); !errors.Is(err, company.ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCompanyRepository_Update_ChecksVersion(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewCompanyRepository(mock)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := sampleCompany(now)
	taxID := "tax-1"
	c.State = company.StateAccepted
	c.TaxID = &taxID

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE companies`)).
		WithArgs("Acme", "acme@example.com", "Trading", "Athens", "Alice", "ACCEPTED", "tax-1", now, "company-1", int64(3)).
		WillReturnRows(pgxmock.NewRows(companyColumns).
			AddRow("company-1", "owner-1", "Acme", "acme@example.com", "Trading", "Athens", "Alice", "ACCEPTED", "tax-1", int64(4), now, now))

	updated, err := repo.Update(context.Background(), c, 3)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Version != 4 || updated.TaxID == nil || *updated.TaxID != "tax-1" {
		t.Fatalf("unexpected company %+v", updated)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCompanyRepository_Update_StaleVersion(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		exists bool
		want   error
	}{
		{exists: true, want: company.ErrVersionConflict},
		{exists: false, want: company.ErrCompanyNotFound},
	} {
		mock := newMockPool(t)
		repo := NewCompanyRepository(mock)

		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE companies`)).
			WithArgs(append(anyArgs(8), "company-1", int64(1))...).
			WillReturnRows(pgxmock.NewRows(companyColumns))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM companies WHERE id = $1)`)).
			WithArgs("company-1").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(tc.exists))

		if _, err := repo.Update(context.Background(), sampleCompany(time.Now().UTC()), 1); !errors.Is(err, tc.want) {
			t.Fatalf("exists=%v: expected %v, got %v", tc.exists, tc.want, err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet expectations: %v", err)
		}
	}
}

func TestCompanyRepository_Delete(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewCompanyRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM companies WHERE id = $1 AND version = $2`)).
		WithArgs("company-1", int64(2)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	if err := repo.Delete(context.Background(), "company-1", 2); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCompanyRepository_Delete_StaleVersion(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewCompanyRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM companies`)).
		WithArgs("company-1", int64(2)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs("company-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	if err := repo.Delete(context.Background(), "company-1", 2); !errors.Is(err, company.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCompanyRepository_Delete_DocumentsRemain(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewCompanyRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM companies`)).
		WithArgs("company-1", int64(2)).
		WillReturnError(&pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: documentsCompanyConstraint})

	if err := repo.Delete(context.Background(), "company-1", 2); !errors.Is(err, company.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCompanyRepository_FindByOwner_NotFound(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewCompanyRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE owner_id = $1`)).
		WithArgs("owner-9").
		WillReturnRows(pgxmock.NewRows(companyColumns))

	if _, err := repo.FindByOwner(context.Background(), "owner-9"); !errors.Is(err, company.ErrCompanyNotFound) {
		t.Fatalf("expected ErrCompanyNotFound, got %v", err)
	}
}

func TestCompanyRepository_ListByState_WithNextToken(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewCompanyRepository(mock)

	query := regexp.QuoteMeta(`
         WHERE state = $1
         ORDER BY created_at ASC, id ASC
         LIMIT $2
        OFFSET $3
    `)

	now := time.Now().UTC()
	rows := pgxmock.NewRows(companyColumns).
		AddRow("company-1", "owner-1", "A", "a@example.com", "g", "h", "e", "PENDING", nil, int64(1), now, now).
		AddRow("company-2", "owner-2", "B", "b@example.com", "g", "h", "e", "PENDING", nil, int64(1), now, now).
		AddRow("company-3", "owner-3", "C", "c@example.com", "g", "h", "e", "PENDING", nil, int64(1), now, now)

	mock.ExpectQuery(query).
		WithArgs("PENDING", 3, 2).
		WillReturnRows(rows)

	companies, nextToken, err := repo.ListByState(context.Background(), company.ListFilter{State: company.StatePending, Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListByState returned error: %v", err)
	}

	if len(companies) != 2 {
		t.Fatalf("expected 2 companies, got %d", len(companies))
	}
	if nextToken != "4" {
		t.Fatalf("expected next token '4', got %s", nextToken)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCompanyRepository_ListByState_InvalidArguments(t *testing.T) {
	t.Parallel()

	repo := NewCompanyRepository(newMockPool(t))

	if _, _, err := repo.ListByState(context.Background(), company.ListFilter{State: company.StatePending}); !errors.Is(err, company.ErrInvalidPageSize) {
		t.Fatalf("expected ErrInvalidPageSize, got %v", err)
	}
	if _, _, err := repo.ListByState(context.Background(), company.ListFilter{State: company.StatePending, Limit: 1, Offset: -1}); !errors.Is(err, company.ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
}
