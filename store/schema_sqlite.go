package store

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS robots (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    robot_id     TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL DEFAULT '',
    enabled      INTEGER NOT NULL DEFAULT 1,
    created_at   TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);

CREATE TABLE IF NOT EXISTS command_log (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    command_id TEXT NOT NULL,
    robot_id   TEXT NOT NULL,
    kind       TEXT NOT NULL,
    source     TEXT NOT NULL DEFAULT 'operator',
    payload    TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
CREATE INDEX IF NOT EXISTS idx_command_log_robot ON command_log(robot_id);

CREATE TABLE IF NOT EXISTS missions (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    mission_id     TEXT NOT NULL UNIQUE,
    robot_id       TEXT NOT NULL,
    waypoint_count INTEGER NOT NULL DEFAULT 0,
    outcome        TEXT NOT NULL DEFAULT 'active',
    reason         TEXT NOT NULL DEFAULT '',
    started_at     TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    ended_at       TEXT
);
CREATE INDEX IF NOT EXISTS idx_missions_robot ON missions(robot_id);

CREATE TABLE IF NOT EXISTS outbox (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    topic      TEXT NOT NULL,
    payload    BLOB NOT NULL,
    kind       TEXT NOT NULL DEFAULT '',
    robot_id   TEXT NOT NULL DEFAULT '',
    retries    INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now','localtime')),
    sent_at    TEXT
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at) WHERE sent_at IS NULL;

CREATE TABLE IF NOT EXISTS admin_users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);
`
