package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"issuedesk.org/internal/complaint"
	"issuedesk.org/internal/profile"
)

// Store implements the profile and complaint store contracts over
// PostgreSQL. The auth store lives in internal/auth (PGStore) and shares
// the same *sql.DB.
type Store struct {
	db *sql.DB
}

var (
	_ profile.Store   = (*Store)(nil)
	_ complaint.Store = (*Store)(nil)
)

// Open connects to PostgreSQL with pool defaults tuned for the API server.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing connection pool.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// profile.Store --------------------------------------------------------------

func (s *Store) Get(ctx context.Context, userID string) (*profile.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, aadhaar_number, full_name, email, coalesce(phone,''), created_at, updated_at
		from profiles where id=$1
	`, userID)
	var p profile.Profile
	if err := row.Scan(&p.ID, &p.AadhaarNumber, &p.FullName, &p.Email, &p.Phone, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, profile.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdateMutable(ctx context.Context, userID, fullName, phone string) (*profile.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		update profiles set full_name=$2, phone=$3, updated_at=now()
		where id=$1
		returning id, aadhaar_number, full_name, email, coalesce(phone,''), created_at, updated_at
	`, userID, fullName, phone)
	var p profile.Profile
	if err := row.Scan(&p.ID, &p.AadhaarNumber, &p.FullName, &p.Email, &p.Phone, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, profile.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// complaint.Store -------------------------------------------------------------

const complaintColumns = `id, user_id, title, category, priority, status, description, coalesce(location,''), created_at, updated_at`

func (s *Store) Insert(ctx context.Context, c *complaint.Complaint) error {
	_, err := s.db.ExecContext(ctx, `
		insert into complaints(id, user_id, title, category, priority, status, description, location, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,nullif($8,''),$9,$10)
	`, c.ID, c.UserID, c.Title, string(c.Category), string(c.Priority), string(c.Status),
		c.Description, c.Location, c.CreatedAt, c.UpdatedAt)
	return err
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]complaint.Complaint, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+complaintColumns+`
		from complaints where user_id=$1
		order by created_at desc, id desc
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComplaints(rows)
}

func (s *Store) ListAll(ctx context.Context) ([]complaint.Complaint, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+complaintColumns+`
		from complaints
		order by created_at desc, id desc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComplaints(rows)
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status complaint.Status) (*complaint.Complaint, error) {
	row := s.db.QueryRowContext(ctx, `
		update complaints set status=$2, updated_at=now()
		where id=$1
		returning `+complaintColumns+`
	`, id, string(status))
	c, err := scanComplaint(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, complaint.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *Store) CountByStatus(ctx context.Context) (map[complaint.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `select status, count(*) from complaints group by status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[complaint.Status]int)
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		counts[complaint.Status(st)] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComplaint(row rowScanner) (*complaint.Complaint, error) {
	var c complaint.Complaint
	var category, priority, status string
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &category, &priority, &status,
		&c.Description, &c.Location, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Category = complaint.Category(category)
	c.Priority = complaint.Priority(priority)
	c.Status = complaint.Status(status)
	return &c, nil
}

func scanComplaints(rows *sql.Rows) ([]complaint.Complaint, error) {
	var res []complaint.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *c)
	}
	return res, rows.Err()
}
