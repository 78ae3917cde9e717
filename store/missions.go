package store

import "time"

// MissionRecord is one mission run, written when it starts and closed
// out on its terminal transition.
type MissionRecord struct {
	ID            int64      `json:"id"`
	MissionID     string     `json:"mission_id"`
	RobotID       string     `json:"robot_id"`
	WaypointCount int        `json:"waypoint_count"`
	Outcome       string     `json:"outcome"`
	Reason        string     `json:"reason"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
}

func (db *DB) CreateMission(missionID, robotID string, waypointCount int) error {
	_, err := db.Exec(db.Q(`INSERT INTO missions (mission_id, robot_id, waypoint_count, outcome) VALUES (?, ?, ?, 'active')`),
		missionID, robotID, waypointCount)
	return err
}

func (db *DB) CloseMission(missionID, outcome, reason string) error {
	_, err := db.Exec(db.Q(`UPDATE missions SET outcome=?, reason=?, ended_at=datetime('now','localtime') WHERE mission_id=? AND ended_at IS NULL`),
		outcome, reason, missionID)
	return err
}

func (db *DB) ListMissions(robotID string, limit int) ([]*MissionRecord, error) {
	rows, err := db.Query(db.Q(`SELECT id, mission_id, robot_id, waypoint_count, outcome, reason, started_at, ended_at FROM missions WHERE robot_id=? ORDER BY id DESC LIMIT ?`),
		robotID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []*MissionRecord
	for rows.Next() {
		var r MissionRecord
		var startedAt, endedAt any
		if err := rows.Scan(&r.ID, &r.MissionID, &r.RobotID, &r.WaypointCount, &r.Outcome, &r.Reason, &startedAt, &endedAt); err != nil {
			return nil, err
		}
		r.StartedAt = parseTime(startedAt)
		r.EndedAt = parseTimePtr(endedAt)
		records = append(records, &r)
	}
	return records, rows.Err()
}
