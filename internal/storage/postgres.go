package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/azuratime/internal/config"
	"github.com/your-org/azuratime/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Faces ---

// UpsertFace inserts a face record or, when the student already exists,
// replaces the embedding and roster fields. Returns true when an existing
// record was replaced.
func (s *PostgresStore) UpsertFace(ctx context.Context, f *models.Face) (bool, error) {
	vec := pgvector.NewVector(f.Embedding)
	var replaced bool
	err := s.pool.QueryRow(ctx,
		`INSERT INTO faces (student_id, name, embedding, photo_key, class_name, sub_class, grade, sub_grade, program, role)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (student_id) DO UPDATE SET
		   name = EXCLUDED.name,
		   embedding = EXCLUDED.embedding,
		   photo_key = EXCLUDED.photo_key,
		   class_name = EXCLUDED.class_name,
		   sub_class = EXCLUDED.sub_class,
		   grade = EXCLUDED.grade,
		   sub_grade = EXCLUDED.sub_grade,
		   program = EXCLUDED.program,
		   role = EXCLUDED.role,
		   updated_at = now()
		 RETURNING (xmax <> 0), created_at, updated_at`,
		f.StudentID, f.Name, vec, f.PhotoKey,
		f.ClassName, f.SubClass, f.Grade, f.SubGrade, f.Program, f.Role,
	).Scan(&replaced, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("upsert face: %w", err)
	}
	return replaced, nil
}

func (s *PostgresStore) GetFace(ctx context.Context, studentID string) (*models.Face, error) {
	f := &models.Face{}
	var vec pgvector.Vector
	err := s.pool.QueryRow(ctx,
		`SELECT student_id, name, embedding, photo_key, class_name, sub_class, grade, sub_grade, program, role, created_at, updated_at
		 FROM faces WHERE student_id = $1`, studentID,
	).Scan(&f.StudentID, &f.Name, &vec, &f.PhotoKey,
		&f.ClassName, &f.SubClass, &f.Grade, &f.SubGrade, &f.Program, &f.Role,
		&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get face: %w", err)
	}
	f.Embedding = vec.Slice()
	return f, nil
}

// ListFaces returns the full roster with embeddings, ordered by creation
// time so the gallery scan order is deterministic. Implements gallery.Source.
func (s *PostgresStore) ListFaces(ctx context.Context) ([]models.Face, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT student_id, name, embedding, photo_key, class_name, sub_class, grade, sub_grade, program, role, created_at, updated_at
		 FROM faces ORDER BY created_at, student_id`)
	if err != nil {
		return nil, fmt.Errorf("list faces: %w", err)
	}
	defer rows.Close()

	var faces []models.Face
	for rows.Next() {
		var f models.Face
		var vec pgvector.Vector
		if err := rows.Scan(&f.StudentID, &f.Name, &vec, &f.PhotoKey,
			&f.ClassName, &f.SubClass, &f.Grade, &f.SubGrade, &f.Program, &f.Role,
			&f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		f.Embedding = vec.Slice()
		faces = append(faces, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list faces: %w", err)
	}
	return faces, nil
}

func (s *PostgresStore) DeleteFace(ctx context.Context, studentID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM faces WHERE student_id = $1`, studentID)
	if err != nil {
		return fmt.Errorf("delete face: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("face not found")
	}
	return nil
}

func (s *PostgresStore) CountFaces(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM faces`).Scan(&count)
	return count, err
}

// --- Check-ins ---

// InsertCheckIn appends one event with synced=false and fills in the
// generated ID. Implements checkin.EventStore.
func (s *PostgresStore) InsertCheckIn(ctx context.Context, c *models.CheckIn) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO check_ins (student_id, name, timestamp, synced)
		 VALUES ($1, $2, $3, false) RETURNING id, created_at`,
		c.StudentID, c.Name, c.Timestamp,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert check-in: %w", err)
	}
	c.Synced = false
	return nil
}

// ListUnsynced returns all pending events in insertion order.
// Implements sync.EventStore.
func (s *PostgresStore) ListUnsynced(ctx context.Context) ([]models.CheckIn, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, student_id, name, timestamp, synced, created_at
		 FROM check_ins WHERE synced = false ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list unsynced: %w", err)
	}
	defer rows.Close()

	return scanCheckIns(rows)
}

func (s *PostgresStore) MarkSynced(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE check_ins SET synced = true WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

// QueryCheckIns pages through events, newest first.
func (s *PostgresStore) QueryCheckIns(ctx context.Context, from, to *time.Time, studentID string, pending *bool, limit, offset int) ([]models.CheckIn, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	baseWhere := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if from != nil {
		baseWhere += fmt.Sprintf(" AND timestamp >= $%d", argIdx)
		args = append(args, from.UnixMilli())
		argIdx++
	}
	if to != nil {
		baseWhere += fmt.Sprintf(" AND timestamp <= $%d", argIdx)
		args = append(args, to.UnixMilli())
		argIdx++
	}
	if studentID != "" {
		baseWhere += fmt.Sprintf(" AND student_id = $%d", argIdx)
		args = append(args, studentID)
		argIdx++
	}
	if pending != nil && *pending {
		baseWhere += " AND synced = false"
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM check_ins " + baseWhere
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count check-ins: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT id, student_id, name, timestamp, synced, created_at
		 FROM check_ins %s ORDER BY timestamp DESC LIMIT $%d OFFSET $%d`,
		baseWhere, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query check-ins: %w", err)
	}
	defer rows.Close()

	events, err := scanCheckIns(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func scanCheckIns(rows pgx.Rows) ([]models.CheckIn, error) {
	var events []models.CheckIn
	for rows.Next() {
		var c models.CheckIn
		if err := rows.Scan(&c.ID, &c.StudentID, &c.Name, &c.Timestamp, &c.Synced, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan check-in: %w", err)
		}
		events = append(events, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read check-ins: %w", err)
	}
	return events, nil
}

// --- Users ---

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, name, role, phone_id)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		u.Username, u.PasswordHash, u.Name, u.Role, u.PhoneID,
	).Scan(&u.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, username string) (*models.User, error) {
	u := &models.User{}
	err := s.pool.QueryRow(ctx,
		`SELECT username, password_hash, name, role, phone_id, created_at
		 FROM users WHERE username = $1`, username,
	).Scan(&u.Username, &u.PasswordHash, &u.Name, &u.Role, &u.PhoneID, &u.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT username, password_hash, name, role, phone_id, created_at
		 FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.Username, &u.PasswordHash, &u.Name, &u.Role, &u.PhoneID, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, nil
}

// --- Device bindings ---

// BindPhone ties a username to a device; re-binding overwrites.
func (s *PostgresStore) BindPhone(ctx context.Context, username, phoneID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO phone_ids (username, phone_id) VALUES ($1, $2)
		 ON CONFLICT (username) DO UPDATE SET phone_id = EXCLUDED.phone_id`,
		username, phoneID)
	if err != nil {
		return fmt.Errorf("bind phone: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPhoneBinding(ctx context.Context, username string) (*models.PhoneBinding, error) {
	b := &models.PhoneBinding{}
	err := s.pool.QueryRow(ctx,
		`SELECT username, phone_id FROM phone_ids WHERE username = $1`, username,
	).Scan(&b.Username, &b.PhoneID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get phone binding: %w", err)
	}
	return b, nil
}
