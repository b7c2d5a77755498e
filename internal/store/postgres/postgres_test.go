package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/alfredjeanlab/buildproc/internal/model"
)

// newMockDB creates a sqlmock database with automatic cleanup and expectation checking.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

func mavenBuild(t *testing.T) *model.Build {
	t.Helper()
	b, err := (&model.Build{ID: "m1", AvailableAt: 1200, BuildToolType: model.KindMaven}).
		WithModel(model.ModelMavenAttributes, model.MavenAttributes{TopLevelProjectName: "app"})
	if err != nil {
		t.Fatalf("WithModel: %v", err)
	}
	return b
}

func documentRow(t *testing.T, b *model.Build) *sqlmock.Rows {
	t.Helper()
	doc, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	return sqlmock.NewRows([]string{"document"}).AddRow(doc)
}

func TestSave_Upserts(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db, nil)
	b := mavenBuild(t)

	mock.ExpectExec("INSERT INTO builds .+ ON CONFLICT \\(id\\) DO UPDATE").
		WithArgs("m1", int64(1200), "maven", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.Save(context.Background(), b); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestSave_Error(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db, nil)

	mock.ExpectExec("INSERT INTO builds").WillReturnError(errors.New("connection reset"))

	if err := s.Save(context.Background(), mavenBuild(t)); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoad(t *testing.T) {
	for _, tc := range []struct {
		name     string
		required model.ModelSet
		wantHit  bool
	}{
		{"Satisfied", model.NewModelSet(model.ModelMavenAttributes), true},
		{"OtherKindIgnored", model.NewModelSet(model.ModelGradleAttributes), true},
		{"MissingModel", model.NewModelSet(model.ModelMavenModules), false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			s := NewWithDB(db, nil)

			mock.ExpectQuery("SELECT document FROM builds WHERE id = \\$1").
				WithArgs("m1").
				WillReturnRows(documentRow(t, mavenBuild(t)))

			b, ok, err := s.Load(context.Background(), "m1", tc.required)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if ok != tc.wantHit {
				t.Fatalf("hit = %v, want %v", ok, tc.wantHit)
			}
			if ok && b.ID != "m1" {
				t.Errorf("ID = %q", b.ID)
			}
		})
	}
}

func TestLoad_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db, nil)

	mock.ExpectQuery("SELECT document FROM builds").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"document"}))

	if _, ok, err := s.Load(context.Background(), "missing", model.ModelSet{}); ok || err != nil {
		t.Fatalf("Load = %v, %v; want miss", ok, err)
	}
}

func TestLoad_CorruptDocumentIsDeleted(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db, nil)

	mock.ExpectQuery("SELECT document FROM builds").
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"document"}).AddRow([]byte(`{"id":"other"}`)))
	mock.ExpectExec("DELETE FROM builds WHERE id = \\$1").
		WithArgs("m1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if _, ok, err := s.Load(context.Background(), "m1", model.ModelSet{}); ok || err != nil {
		t.Fatalf("Load = %v, %v; want miss", ok, err)
	}
}

func TestLoad_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db, nil)

	mock.ExpectQuery("SELECT document FROM builds").WillReturnError(errors.New("timeout"))

	if _, _, err := s.Load(context.Background(), "m1", model.ModelSet{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestCount(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db, nil)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM builds").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	n, err := s.Count(context.Background())
	if err != nil || n != 42 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}

func TestPrune(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db, nil)
	before := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("DELETE FROM builds WHERE updated_at < \\$1").
		WithArgs(before).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := s.Prune(context.Background(), before)
	if err != nil || n != 7 {
		t.Fatalf("Prune = %d, %v", n, err)
	}
}

func TestDelete(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewWithDB(db, nil)

	mock.ExpectExec("DELETE FROM builds WHERE id = \\$1").
		WithArgs("m1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.Delete(context.Background(), "m1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}
