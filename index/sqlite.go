package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is an alternative index backend that keeps category vectors in
// a SQLite database instead of a serialized blob. Scoring still happens in
// Go with the same ordering contract as the in-memory index; SQLite only
// provides durable storage, which makes the artifact inspectable with
// ordinary tooling.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the vector database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("index: open sqlite: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS category_vectors (
		node_id INTEGER PRIMARY KEY,
		label TEXT NOT NULL,
		dim INTEGER NOT NULL,
		vector TEXT NOT NULL,
		model_id TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("index: init sqlite schema: %w", err)
	}
	return nil
}

// Replace swaps the stored entry set for the given model in one transaction.
// Vectors are normalized before storage, matching Build.
func (s *SQLiteStore) Replace(modelID string, entries []Entry) error {
	if len(entries) == 0 {
		return fmt.Errorf("index: cannot store zero entries")
	}
	dim := len(entries[0].Vector)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("index: begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM category_vectors`); err != nil {
		return fmt.Errorf("index: clear vectors: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, e := range entries {
		if len(e.Vector) != dim {
			return fmt.Errorf("index: entry %d has dimension %d, want %d", e.NodeID, len(e.Vector), dim)
		}
		v := make([]float32, dim)
		copy(v, e.Vector)
		normalize(v)
		vecJSON, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("index: encode vector: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO category_vectors(node_id,label,dim,vector,model_id,created_at) VALUES(?,?,?,?,?,?)`,
			e.NodeID, e.Label, dim, string(vecJSON), modelID, now,
		)
		if err != nil {
			return fmt.Errorf("index: insert vector: %w", err)
		}
	}
	return tx.Commit()
}

// Search scans the stored vectors and returns the k best cosine matches with
// the same ordering and tie-break rules as Index.Search.
func (s *SQLiteStore) Search(query []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, fmt.Errorf("index: k must be positive, got %d", k)
	}

	rows, err := s.db.Query(`SELECT node_id, label, vector FROM category_vectors WHERE dim = ?`, len(query))
	if err != nil {
		return nil, fmt.Errorf("index: query vectors: %w", err)
	}
	defer rows.Close()

	q := make([]float32, len(query))
	copy(q, query)
	normalize(q)

	var matches []Match
	for rows.Next() {
		var nodeID int
		var label, vecJSON string
		if err := rows.Scan(&nodeID, &label, &vecJSON); err != nil {
			return nil, fmt.Errorf("index: scan vector row: %w", err)
		}
		var vec []float32
		if err := json.Unmarshal([]byte(vecJSON), &vec); err != nil || len(vec) != len(q) {
			continue
		}
		matches = append(matches, Match{NodeID: nodeID, Label: label, Score: dot(q, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index: iterate vectors: %w", err)
	}
	if len(matches) == 0 {
		return nil, ErrEmptyIndex
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].NodeID < matches[j].NodeID
	})

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// Len returns the number of stored entries.
func (s *SQLiteStore) Len() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM category_vectors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count vectors: %w", err)
	}
	return n, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
