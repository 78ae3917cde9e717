package store

import "time"

// CommandRecord is the audit trail of outbound robot commands. Every
// emitted command lands here, mission-driven or one-off.
type CommandRecord struct {
	ID        int64     `json:"id"`
	CommandID string    `json:"command_id"`
	RobotID   string    `json:"robot_id"`
	Kind      string    `json:"kind"`
	Source    string    `json:"source"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// Command sources.
const (
	CommandSourceMission  = "mission"
	CommandSourceOperator = "operator"
)

func (db *DB) RecordCommand(commandID, robotID, kind, source, payload string) error {
	_, err := db.Exec(db.Q(`INSERT INTO command_log (command_id, robot_id, kind, source, payload) VALUES (?, ?, ?, ?, ?)`),
		commandID, robotID, kind, source, payload)
	return err
}

func (db *DB) ListCommands(robotID string, limit int) ([]*CommandRecord, error) {
	rows, err := db.Query(db.Q(`SELECT id, command_id, robot_id, kind, source, payload, created_at FROM command_log WHERE robot_id=? ORDER BY id DESC LIMIT ?`),
		robotID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []*CommandRecord
	for rows.Next() {
		var r CommandRecord
		var createdAt any
		if err := rows.Scan(&r.ID, &r.CommandID, &r.RobotID, &r.Kind, &r.Source, &r.Payload, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt = parseTime(createdAt)
		records = append(records, &r)
	}
	return records, rows.Err()
}
