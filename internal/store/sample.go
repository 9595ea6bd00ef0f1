package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayusman/datilo/internal/hand"
)

// Sample is one labelled feature vector recorded for training.
type Sample struct {
	ID        int64           `json:"id"`
	Label     string          `json:"label"`
	Scheme    string          `json:"scheme"`
	Features  []float64       `json:"features"`
	Landmarks *hand.Landmarks `json:"landmarks,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// SampleRepository provides CRUD operations for training samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Create inserts samples in a single transaction and fills in their IDs.
func (r *SampleRepository) Create(samples ...*Sample) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO samples (label, scheme, features, landmarks, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, smp := range samples {
		features, err := json.Marshal(smp.Features)
		if err != nil {
			return fmt.Errorf("encode features: %w", err)
		}
		var landmarks sql.NullString
		if smp.Landmarks != nil {
			data, err := json.Marshal(smp.Landmarks)
			if err != nil {
				return fmt.Errorf("encode landmarks: %w", err)
			}
			landmarks = sql.NullString{String: string(data), Valid: true}
		}

		res, err := stmt.Exec(smp.Label, smp.Scheme, string(features), landmarks, now)
		if err != nil {
			return err
		}
		if smp.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		smp.CreatedAt = now
	}

	return tx.Commit()
}

// List returns samples in insertion order. An empty scheme returns all.
func (r *SampleRepository) List(scheme string) ([]Sample, error) {
	query := `SELECT id, label, scheme, features, landmarks, created_at FROM samples`
	var args []any
	if scheme != "" {
		query += ` WHERE scheme = ?`
		args = append(args, scheme)
	}
	query += ` ORDER BY id`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var smp Sample
		var features string
		var landmarks sql.NullString
		if err := rows.Scan(&smp.ID, &smp.Label, &smp.Scheme, &features, &landmarks, &smp.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(features), &smp.Features); err != nil {
			return nil, fmt.Errorf("sample %d: decode features: %w", smp.ID, err)
		}
		if landmarks.Valid {
			smp.Landmarks = &hand.Landmarks{}
			if err := json.Unmarshal([]byte(landmarks.String), smp.Landmarks); err != nil {
				return nil, fmt.Errorf("sample %d: decode landmarks: %w", smp.ID, err)
			}
		}
		samples = append(samples, smp)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// CountByLabel returns the number of samples per label.
func (r *SampleRepository) CountByLabel() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT label, COUNT(*) FROM samples GROUP BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		counts[label] = n
	}
	return counts, rows.Err()
}

// DeleteByLabel removes all samples for a label.
func (r *SampleRepository) DeleteByLabel(label string) error {
	result, err := r.db.Exec(`DELETE FROM samples WHERE label = ?`, label)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
