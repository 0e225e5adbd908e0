package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/lumehealth/intake/internal/profile"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testProfile(t *testing.T, userID string) profile.Profile {
	t.Helper()
	p := profile.New(userID)
	if _, err := p.Apply(map[string]any{
		"age":            34,
		"gender":         "female",
		"activity_level": "moderate",
	}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return p
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

// TestMigrationsOrdered verifies migrations are applied in ascending numeric order.
func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(versions) == 0 {
		t.Fatal("expected at least one applied migration")
	}

	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

// TestIndexesExist verifies the profiles index is created by the migration.
func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", "idx_profiles_updated").Scan(&count)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	if count != 1 {
		t.Error("index idx_profiles_updated not found in sqlite_master")
	}
}

// TestSaveAndGetProfile saves a partially filled profile and reads it back,
// including the NULL columns.
func TestSaveAndGetProfile(t *testing.T) {
	s := openTestStore(t)

	want := testProfile(t, "user-1")
	if err := s.SaveProfile(want); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	got, err := s.GetProfile("user-1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}

	if got.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", got.UserID)
	}
	if got.Age == nil || *got.Age != 34 {
		t.Errorf("Age = %v, want 34", got.Age)
	}
	if got.Gender == nil || *got.Gender != "female" {
		t.Errorf("Gender = %v, want female", got.Gender)
	}
	if got.ActivityLevel == nil || *got.ActivityLevel != "moderate" {
		t.Errorf("ActivityLevel = %v, want moderate", got.ActivityLevel)
	}
	if got.DietaryPreference != nil {
		t.Errorf("DietaryPreference = %v, want nil", got.DietaryPreference)
	}
	if got.SleepQuality != nil || got.StressLevel != nil || got.HealthGoals != nil {
		t.Errorf("unset fields came back non-nil: %+v", got)
	}
	if !got.CreatedAt.Equal(want.CreatedAt.UTC().Truncate(time.Second)) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
}

// TestGetProfileNotFound verifies that an unknown user returns ErrNotFound.
func TestGetProfileNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetProfile("nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// TestSaveProfile_Upsert overwrites an existing row and verifies the update.
func TestSaveProfile_Upsert(t *testing.T) {
	s := openTestStore(t)

	p := testProfile(t, "user-up")
	if err := s.SaveProfile(p); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	if _, err := p.Apply(map[string]any{"stress_level": "low"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := s.SaveProfile(p); err != nil {
		t.Fatalf("SaveProfile (overwrite): %v", err)
	}

	got, err := s.GetProfile("user-up")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got.StressLevel == nil || *got.StressLevel != "low" {
		t.Errorf("StressLevel = %v, want low", got.StressLevel)
	}
	if got.Age == nil || *got.Age != 34 {
		t.Errorf("Age = %v, want 34 preserved across upsert", got.Age)
	}

	n, err := s.CountProfiles()
	if err != nil {
		t.Fatalf("CountProfiles: %v", err)
	}
	if n != 1 {
		t.Errorf("CountProfiles = %d, want 1", n)
	}
}

func TestDeleteProfile(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveProfile(testProfile(t, "user-del")); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	if err := s.DeleteProfile("user-del"); err != nil {
		t.Fatalf("DeleteProfile: %v", err)
	}
	if _, err := s.GetProfile("user-del"); !errors.Is(err, ErrNotFound) {
		t.Errorf("profile still readable after delete: %v", err)
	}

	if err := s.DeleteProfile("user-del"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestCountProfiles(t *testing.T) {
	s := openTestStore(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := s.SaveProfile(profile.New(id)); err != nil {
			t.Fatalf("SaveProfile(%s): %v", id, err)
		}
	}

	n, err := s.CountProfiles()
	if err != nil {
		t.Fatalf("CountProfiles: %v", err)
	}
	if n != 3 {
		t.Errorf("CountProfiles = %d, want 3", n)
	}
}
