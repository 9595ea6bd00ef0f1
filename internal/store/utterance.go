package store

import (
	"database/sql"
	"errors"
	"time"
)

// Utterance is a sentence sent to the synthesizer.
type Utterance struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Spoken     bool      `json:"spoken"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// UtteranceRepository records speech history.
type UtteranceRepository struct {
	db *sql.DB
}

// Utterances returns the utterance repository for this store.
func (s *Store) Utterances() *UtteranceRepository {
	return &UtteranceRepository{db: s.db}
}

// Create inserts an utterance. A zero CreatedAt is set to now.
func (r *UtteranceRepository) Create(u *Utterance) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	_, err := r.db.Exec(
		`INSERT INTO utterances (id, text, spoken, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Text, u.Spoken, u.Error, u.DurationMs, u.CreatedAt,
	)
	return err
}

// GetByID retrieves an utterance by its ID.
func (r *UtteranceRepository) GetByID(id string) (*Utterance, error) {
	u := &Utterance{}
	err := r.db.QueryRow(
		`SELECT id, text, spoken, error, duration_ms, created_at FROM utterances WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.Text, &u.Spoken, &u.Error, &u.DurationMs, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// List returns the most recent utterances first. limit <= 0 means 50.
func (r *UtteranceRepository) List(limit int) ([]Utterance, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(
		`SELECT id, text, spoken, error, duration_ms, created_at
		 FROM utterances ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Utterance
	for rows.Next() {
		var u Utterance
		if err := rows.Scan(&u.ID, &u.Text, &u.Spoken, &u.Error, &u.DurationMs, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
