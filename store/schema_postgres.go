package store

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS robots (
    id           BIGSERIAL PRIMARY KEY,
    robot_id     TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL DEFAULT '',
    enabled      INTEGER NOT NULL DEFAULT 1,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS command_log (
    id         BIGSERIAL PRIMARY KEY,
    command_id TEXT NOT NULL,
    robot_id   TEXT NOT NULL,
    kind       TEXT NOT NULL,
    source     TEXT NOT NULL DEFAULT 'operator',
    payload    TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_command_log_robot ON command_log(robot_id);

CREATE TABLE IF NOT EXISTS missions (
    id             BIGSERIAL PRIMARY KEY,
    mission_id     TEXT NOT NULL UNIQUE,
    robot_id       TEXT NOT NULL,
    waypoint_count INTEGER NOT NULL DEFAULT 0,
    outcome        TEXT NOT NULL DEFAULT 'active',
    reason         TEXT NOT NULL DEFAULT '',
    started_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    ended_at       TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_missions_robot ON missions(robot_id);

CREATE TABLE IF NOT EXISTS outbox (
    id         BIGSERIAL PRIMARY KEY,
    topic      TEXT NOT NULL,
    payload    BYTEA NOT NULL,
    kind       TEXT NOT NULL DEFAULT '',
    robot_id   TEXT NOT NULL DEFAULT '',
    retries    INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    sent_at    TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox(sent_at) WHERE sent_at IS NULL;

CREATE TABLE IF NOT EXISTS admin_users (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
