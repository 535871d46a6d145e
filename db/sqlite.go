package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

// InitDB initializes the SQLite database
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        sepal_length REAL NOT NULL,
        sepal_width REAL NOT NULL,
        petal_length REAL NOT NULL,
        petal_width REAL NOT NULL,
        label VARCHAR(20) NOT NULL,
        confidence REAL NOT NULL,
        source VARCHAR(10) NOT NULL,
        latency_ms REAL NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
    `

	_, err = database.Exec(query)
	return err
}

// Close closes the database handle
func Close() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

type PredictionRecord struct {
	ID          int64     `json:"id"`
	SepalLength float64   `json:"sepal_length"`
	SepalWidth  float64   `json:"sepal_width"`
	PetalLength float64   `json:"petal_length"`
	PetalWidth  float64   `json:"petal_width"`
	Label       string    `json:"label"`
	Confidence  float64   `json:"confidence"`
	Source      string    `json:"source"`
	LatencyMs   float64   `json:"latency_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// SavePrediction appends one served prediction to the history table
func SavePrediction(rec PredictionRecord) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := database.Exec(`
        INSERT INTO predictions (
            sepal_length, sepal_width, petal_length, petal_width,
            label, confidence, source, latency_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SepalLength, rec.SepalWidth, rec.PetalLength, rec.PetalWidth,
		rec.Label, rec.Confidence, rec.Source, rec.LatencyMs, rec.CreatedAt)
	return err
}

// SavePredictions appends a batch of predictions in one transaction
func SavePredictions(recs []PredictionRecord) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	if len(recs) == 0 {
		return nil
	}

	tx, err := database.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
        INSERT INTO predictions (
            sepal_length, sepal_width, petal_length, petal_width,
            label, confidence, source, latency_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, rec := range recs {
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		if _, err := stmt.Exec(
			rec.SepalLength, rec.SepalWidth, rec.PetalLength, rec.PetalWidth,
			rec.Label, rec.Confidence, rec.Source, rec.LatencyMs, rec.CreatedAt); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// QueryRecentPredictions returns the latest predictions, newest first
func QueryRecentPredictions(limit int) ([]PredictionRecord, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := database.Query(`
        SELECT id, sepal_length, sepal_width, petal_length, petal_width,
               label, confidence, source, latency_ms, created_at
        FROM predictions
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var rec PredictionRecord
		if err := rows.Scan(&rec.ID, &rec.SepalLength, &rec.SepalWidth, &rec.PetalLength, &rec.PetalWidth,
			&rec.Label, &rec.Confidence, &rec.Source, &rec.LatencyMs, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LabelCounts returns how many predictions were served per label
func LabelCounts() (map[string]int64, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}

	rows, err := database.Query(`
        SELECT label, COUNT(*)
        FROM predictions
        GROUP BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var label string
		var count int64
		if err := rows.Scan(&label, &count); err != nil {
			return nil, err
		}
		counts[label] = count
	}
	return counts, rows.Err()
}
