/**
 * SQL corpus store
 *
 * Read-only access to the exercise table that feeds the lexicon. PostgreSQL
 * is reached through lib/pq and MySQL through go-sql-driver/mysql.
 */

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/adverant/nexus/diktim-ocr/internal/lexicon"
)

const enabledExercisesQuery = `SELECT prompt, answer FROM exercises WHERE enabled = TRUE`

// SQLCorpus reads enabled exercise texts from a SQL database
type SQLCorpus struct {
	db     *sql.DB
	driver string
}

// ParseDatabaseURL maps a database URL to a database/sql driver name and DSN.
// PostgreSQL URLs are passed through; MySQL URLs drop their mysql:// prefix
// and use the driver's native DSN form.
func ParseDatabaseURL(databaseURL string) (driver, dsn string, err error) {
	switch {
	case databaseURL == "":
		return "", "", fmt.Errorf("database URL is required")
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return "postgres", databaseURL, nil
	case strings.HasPrefix(databaseURL, "mysql://"):
		dsn = strings.TrimPrefix(databaseURL, "mysql://")
		if !strings.Contains(dsn, "parseTime=") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "parseTime=true"
		}
		return "mysql", dsn, nil
	default:
		return "", "", fmt.Errorf("unsupported database URL scheme: %q", databaseURL)
	}
}

// NewSQLCorpus opens and pings the corpus database
func NewSQLCorpus(databaseURL string) (*SQLCorpus, error) {
	driver, dsn, err := ParseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLCorpus{db: db, driver: driver}, nil
}

// EnabledExerciseTexts returns the prompt and answer of every enabled exercise
func (c *SQLCorpus) EnabledExerciseTexts(ctx context.Context) ([]lexicon.ExerciseText, error) {
	rows, err := c.db.QueryContext(ctx, enabledExercisesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query exercises (%s): %w", c.driver, err)
	}
	defer rows.Close()

	texts, err := scanExerciseTexts(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read exercises (%s): %w", c.driver, err)
	}
	return texts, nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanExerciseTexts(rows rowScanner) ([]lexicon.ExerciseText, error) {
	var texts []lexicon.ExerciseText
	for rows.Next() {
		var prompt, answer sql.NullString
		if err := rows.Scan(&prompt, &answer); err != nil {
			return nil, err
		}
		texts = append(texts, lexicon.ExerciseText{Prompt: prompt.String, Answer: answer.String})
	}
	return texts, rows.Err()
}

// Driver returns the database/sql driver in use
func (c *SQLCorpus) Driver() string {
	return c.driver
}

// Ping checks database connectivity
func (c *SQLCorpus) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the database connection
func (c *SQLCorpus) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// GetStats returns connection pool statistics
func (c *SQLCorpus) GetStats() sql.DBStats {
	return c.db.Stats()
}
