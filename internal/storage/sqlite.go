package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lumehealth/intake/internal/profile"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding the durable wellness profiles.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "intake.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Profiles ---

// SaveProfile upserts a profile row. Nil field pointers are stored as NULL.
func (s *Store) SaveProfile(p profile.Profile) error {
	_, err := s.db.Exec(`
		INSERT INTO profiles (user_id, age, gender, activity_level, dietary_preference, sleep_quality, stress_level, health_goals, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			age = excluded.age,
			gender = excluded.gender,
			activity_level = excluded.activity_level,
			dietary_preference = excluded.dietary_preference,
			sleep_quality = excluded.sleep_quality,
			stress_level = excluded.stress_level,
			health_goals = excluded.health_goals,
			updated_at = excluded.updated_at`,
		p.UserID, p.Age, p.Gender, p.ActivityLevel, p.DietaryPreference,
		p.SleepQuality, p.StressLevel, p.HealthGoals,
		p.CreatedAt.UTC().Format(time.RFC3339), p.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// GetProfile returns the profile for userID, or ErrNotFound.
func (s *Store) GetProfile(userID string) (profile.Profile, error) {
	var (
		p                    profile.Profile
		age                  sql.NullInt64
		gender, activity     sql.NullString
		dietary, sleep       sql.NullString
		stress, goals        sql.NullString
		createdAt, updatedAt string
	)

	err := s.db.QueryRow(`
		SELECT user_id, age, gender, activity_level, dietary_preference, sleep_quality, stress_level, health_goals, created_at, updated_at
		FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &age, &gender, &activity, &dietary, &sleep, &stress, &goals, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return profile.Profile{}, ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, err
	}

	if age.Valid {
		v := int(age.Int64)
		p.Age = &v
	}
	p.Gender = nullableString(gender)
	p.ActivityLevel = nullableString(activity)
	p.DietaryPreference = nullableString(dietary)
	p.SleepQuality = nullableString(sleep)
	p.StressLevel = nullableString(stress)
	p.HealthGoals = nullableString(goals)

	if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return profile.Profile{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return profile.Profile{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return p, nil
}

// DeleteProfile removes the profile for userID. Returns ErrNotFound when no
// row was deleted.
func (s *Store) DeleteProfile(userID string) error {
	res, err := s.db.Exec(`DELETE FROM profiles WHERE user_id = ?`, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountProfiles returns the number of stored profiles.
func (s *Store) CountProfiles() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM profiles`).Scan(&n)
	return n, err
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
