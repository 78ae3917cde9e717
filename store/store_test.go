package store

import (
	"path/filepath"
	"testing"

	"fleetconsole/config"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	}
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRobotRegistry(t *testing.T) {
	db := testDB(t)

	if err := db.RegisterRobot("alpha01", "Alpha 01"); err != nil {
		t.Fatalf("RegisterRobot: %v", err)
	}
	// Registering again is a no-op, not an error.
	if err := db.RegisterRobot("alpha01", "duplicate"); err != nil {
		t.Fatalf("re-register: %v", err)
	}

	r, err := db.GetRobot("alpha01")
	if err != nil {
		t.Fatalf("GetRobot: %v", err)
	}
	if r.DisplayName != "Alpha 01" || !r.Enabled {
		t.Fatalf("got %+v, want enabled Alpha 01", r)
	}

	if err := db.SetRobotEnabled("alpha01", false); err != nil {
		t.Fatalf("SetRobotEnabled: %v", err)
	}
	ids, err := db.ListEnabledRobotIDs()
	if err != nil {
		t.Fatalf("ListEnabledRobotIDs: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("enabled ids = %v, want none", ids)
	}
}

func TestCommandLog(t *testing.T) {
	db := testDB(t)

	if err := db.RecordCommand("cmd-1", "alpha01", "server_cmd", CommandSourceMission, `{"server_cmd_state":2}`); err != nil {
		t.Fatalf("RecordCommand: %v", err)
	}
	if err := db.RecordCommand("cmd-2", "alpha01", "joystick_control", CommandSourceOperator, `{"e_stop":true}`); err != nil {
		t.Fatalf("RecordCommand: %v", err)
	}

	records, err := db.ListCommands("alpha01", 10)
	if err != nil {
		t.Fatalf("ListCommands: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	// Newest first.
	if records[0].CommandID != "cmd-2" {
		t.Fatalf("first record = %s, want cmd-2", records[0].CommandID)
	}
}

func TestMissionLifecycle(t *testing.T) {
	db := testDB(t)

	if err := db.CreateMission("m-1", "alpha01", 3); err != nil {
		t.Fatalf("CreateMission: %v", err)
	}
	if err := db.CloseMission("m-1", "finished", "finished"); err != nil {
		t.Fatalf("CloseMission: %v", err)
	}
	// Closing twice must not reopen or overwrite.
	if err := db.CloseMission("m-1", "error", "late"); err != nil {
		t.Fatalf("second close: %v", err)
	}

	records, err := db.ListMissions("alpha01", 10)
	if err != nil {
		t.Fatalf("ListMissions: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	m := records[0]
	if m.Outcome != "finished" || m.EndedAt == nil {
		t.Fatalf("got %+v, want closed finished mission", m)
	}
}

func TestOutboxCycle(t *testing.T) {
	db := testDB(t)

	if err := db.EnqueueOutbox("alpha01/s2r/server_cmd", []byte{0x81}, "server_cmd", "alpha01"); err != nil {
		t.Fatalf("EnqueueOutbox: %v", err)
	}
	pending, err := db.ListPendingOutbox(10)
	if err != nil {
		t.Fatalf("ListPendingOutbox: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("got %d pending, want 1", len(pending))
	}

	if err := db.AckOutbox(pending[0].ID); err != nil {
		t.Fatalf("AckOutbox: %v", err)
	}
	pending, err = db.ListPendingOutbox(10)
	if err != nil {
		t.Fatalf("ListPendingOutbox: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("got %d pending after ack, want 0", len(pending))
	}
}

func TestAdminUsers(t *testing.T) {
	db := testDB(t)

	exists, err := db.AdminUserExists()
	if err != nil {
		t.Fatalf("AdminUserExists: %v", err)
	}
	if exists {
		t.Fatal("fresh db should have no admin users")
	}

	if err := db.CreateAdminUser("operator", "hash"); err != nil {
		t.Fatalf("CreateAdminUser: %v", err)
	}
	u, err := db.GetAdminUser("operator")
	if err != nil {
		t.Fatalf("GetAdminUser: %v", err)
	}
	if u.PasswordHash != "hash" {
		t.Fatalf("hash = %q, want %q", u.PasswordHash, "hash")
	}
}
