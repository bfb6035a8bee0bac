package database

import (
	"errors"
	"testing"
)

func TestOpenIsIdempotent(t *testing.T) {
	dbPath := t.TempDir() + "/test.db"

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	team := &Team{Name: "Elite"}
	if err := db.CreateTeam(team); err != nil {
		t.Fatalf("Failed to create team: %v", err)
	}
	db.Close()

	// Reopening runs the schema again and keeps the data
	db, err = Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db.Close()

	if err := db.Health(); err != nil {
		t.Errorf("Expected healthy database, got %v", err)
	}

	retrieved, err := db.GetTeam(team.ID)
	if err != nil {
		t.Fatalf("Failed to get team: %v", err)
	}
	if retrieved == nil || retrieved.Name != "Elite" {
		t.Errorf("Expected team to survive reopen, got %+v", retrieved)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	err := db.UpsertEnrollment(&Enrollment{RaceID: 999, AthleteID: 999})
	if err == nil {
		t.Fatal("Expected enrollment for unknown race and athlete to fail")
	}

	if err := db.DeleteRace(999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting unknown race, got %v", err)
	}
}
