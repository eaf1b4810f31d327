package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/HendryAvila/planmcp/internal/storage"
)

// SQLStore keeps sessions in the intake_sessions table so they survive a
// server restart.
type SQLStore struct {
	db *storage.DB
}

// NewSQLStore returns a SQLStore over db.
func NewSQLStore(db *storage.DB) *SQLStore {
	return &SQLStore{db: db}
}

type sessionRow struct {
	ID          string `db:"id"`
	ProjectRoot string `db:"project_root"`
	ComponentID string `db:"component_id"`
	Step        int    `db:"step"`
	Answers     string `db:"answers"`
	CreatedAt   string `db:"created_at"`
	ExpiresAt   string `db:"expires_at"`
}

func (s *SQLStore) Put(ctx context.Context, sess *Session) error {
	answers, err := json.Marshal(sess.Answers)
	if err != nil {
		return fmt.Errorf("session: encode answers: %w", err)
	}
	_, err = s.db.X().NamedExecContext(ctx,
		`INSERT INTO intake_sessions (id, project_root, component_id, step, answers, created_at, expires_at)
		 VALUES (:id, :project_root, :component_id, :step, :answers, :created_at, :expires_at)
		 ON CONFLICT(id) DO UPDATE SET
		   step = excluded.step, answers = excluded.answers, expires_at = excluded.expires_at`,
		sessionRow{
			ID:          sess.ID,
			ProjectRoot: sess.ProjectRoot,
			ComponentID: sess.ComponentID,
			Step:        sess.Step,
			Answers:     string(answers),
			CreatedAt:   storage.FormatTime(sess.CreatedAt),
			ExpiresAt:   storage.FormatTime(sess.ExpiresAt),
		})
	if err != nil {
		return fmt.Errorf("session: put %s: %w", sess.ID, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*Session, error) {
	var row sessionRow
	err := s.db.X().GetContext(ctx, &row, `SELECT * FROM intake_sessions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: get %s: %w", id, err)
	}

	sess := &Session{
		ID:          row.ID,
		ProjectRoot: row.ProjectRoot,
		ComponentID: row.ComponentID,
		Step:        row.Step,
		Answers:     map[string]string{},
	}
	if err := json.Unmarshal([]byte(row.Answers), &sess.Answers); err != nil {
		return nil, fmt.Errorf("session: decode answers: %w", err)
	}
	if sess.CreatedAt, err = storage.ParseTime(row.CreatedAt); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if sess.ExpiresAt, err = storage.ParseTime(row.ExpiresAt); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if sess.Expired(timeNow()) {
		_ = s.Delete(ctx, id)
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.X().ExecContext(ctx, `DELETE FROM intake_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("session: delete %s: %w", id, err)
	}
	return nil
}

func (s *SQLStore) Sweep(ctx context.Context) (int, error) {
	res, err := s.db.X().ExecContext(ctx,
		`DELETE FROM intake_sessions WHERE expires_at <= ?`, storage.FormatTime(timeNow()))
	if err != nil {
		return 0, fmt.Errorf("session: sweep: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
