package store

import (
	"database/sql"
	"time"
)

// Robot is one registry row. The registry seeds the telemetry cache on
// startup; robots first heard over the wire get registered on the fly.
type Robot struct {
	ID          int64     `json:"id"`
	RobotID     string    `json:"robot_id"`
	DisplayName string    `json:"display_name"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
}

func (db *DB) RegisterRobot(robotID, displayName string) error {
	_, err := db.Exec(db.Q(`INSERT INTO robots (robot_id, display_name) VALUES (?, ?) ON CONFLICT (robot_id) DO NOTHING`),
		robotID, displayName)
	return err
}

func (db *DB) GetRobot(robotID string) (*Robot, error) {
	var r Robot
	var enabled int
	var createdAt any
	err := db.QueryRow(db.Q(`SELECT id, robot_id, display_name, enabled, created_at FROM robots WHERE robot_id=?`), robotID).
		Scan(&r.ID, &r.RobotID, &r.DisplayName, &enabled, &createdAt)
	if err != nil {
		return nil, err
	}
	r.Enabled = enabled != 0
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

func (db *DB) ListRobots() ([]*Robot, error) {
	rows, err := db.Query(`SELECT id, robot_id, display_name, enabled, created_at FROM robots ORDER BY robot_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var robots []*Robot
	for rows.Next() {
		var r Robot
		var enabled int
		var createdAt any
		if err := rows.Scan(&r.ID, &r.RobotID, &r.DisplayName, &enabled, &createdAt); err != nil {
			return nil, err
		}
		r.Enabled = enabled != 0
		r.CreatedAt = parseTime(createdAt)
		robots = append(robots, &r)
	}
	return robots, rows.Err()
}

func (db *DB) ListEnabledRobotIDs() ([]string, error) {
	rows, err := db.Query(db.Q(`SELECT robot_id FROM robots WHERE enabled=1 ORDER BY robot_id`))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (db *DB) SetRobotEnabled(robotID string, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	res, err := db.Exec(db.Q(`UPDATE robots SET enabled=? WHERE robot_id=?`), v, robotID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
