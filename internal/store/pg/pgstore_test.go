package pg

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"issuedesk.org/internal/complaint"
	"issuedesk.org/internal/profile"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	return NewStore(db), mock, func() { _ = db.Close() }
}

var complaintRows = []string{
	"id", "user_id", "title", "category", "priority", "status",
	"description", "coalesce", "created_at", "updated_at",
}

func TestGetProfile(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()
	now := time.Now().UTC()

	mock.ExpectQuery(`select id, aadhaar_number, full_name, email`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "aadhaar_number", "full_name", "email", "coalesce", "created_at", "updated_at",
		}).AddRow("u1", "123456789012", "Asha Kumari", "asha@example.in", "9876543210", now, now))

	p, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.AadhaarNumber != "123456789012" || p.Phone != "9876543210" {
		t.Fatalf("unexpected profile %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetProfileNotFound(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery(`select id, aadhaar_number`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Get(context.Background(), "ghost")
	if !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("expected profile.ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateMutableTouchesOnlyMutableColumns(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()
	now := time.Now().UTC()

	// The statement itself names only full_name and phone; aadhaar_number
	// and email cannot change through this path.
	mock.ExpectQuery(`update profiles set full_name=\$2, phone=\$3`).
		WithArgs("u1", "Asha K", "9111111111").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "aadhaar_number", "full_name", "email", "coalesce", "created_at", "updated_at",
		}).AddRow("u1", "123456789012", "Asha K", "asha@example.in", "9111111111", now, now))

	p, err := store.UpdateMutable(context.Background(), "u1", "Asha K", "9111111111")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.FullName != "Asha K" {
		t.Fatalf("unexpected profile %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestInsertComplaint(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()
	now := time.Now().UTC()

	mock.ExpectExec(`insert into complaints`).
		WithArgs("c1", "u1", "Pothole", "roads", "low", "pending", "Deep pothole.", "Ward 7", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Insert(context.Background(), &complaint.Complaint{
		ID: "c1", UserID: "u1", Title: "Pothole",
		Category: complaint.CategoryRoads, Priority: complaint.PriorityLow,
		Status: complaint.StatusPending, Description: "Deep pothole.",
		Location: "Ward 7", CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestListByUserOrdersNewestFirst(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`order by created_at desc, id desc`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(complaintRows).
			AddRow("c2", "u1", "Second", "water", "high", "pending", "d", "", now, now).
			AddRow("c1", "u1", "First", "roads", "low", "resolved", "d", "", now.Add(-time.Hour), now))

	list, err := store.ListByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "c2" {
		t.Fatalf("unexpected listing %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateStatusNotFound(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery(`update complaints set status=\$2`).
		WithArgs("ghost", "resolved").
		WillReturnRows(sqlmock.NewRows(complaintRows))

	_, err := store.UpdateStatus(context.Background(), "ghost", complaint.StatusResolved)
	if !errors.Is(err, complaint.ErrNotFound) {
		t.Fatalf("expected complaint.ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCountByStatus(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery(`select status, count\(\*\) from complaints group by status`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 3).
			AddRow("resolved", 1))

	counts, err := store.CountByStatus(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[complaint.StatusPending] != 3 || counts[complaint.StatusResolved] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
