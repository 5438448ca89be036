package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id             TEXT PRIMARY KEY,
	train_id       TEXT NOT NULL DEFAULT '',
	task_type      TEXT NOT NULL DEFAULT '',
	priority_level TEXT NOT NULL DEFAULT '',
	location       TEXT NOT NULL DEFAULT '',
	due_date       TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);

CREATE TABLE IF NOT EXISTS sync_log (
	id          TEXT PRIMARY KEY,
	outcome     TEXT NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	task_count  INTEGER NOT NULL DEFAULT 0,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sync_log_started ON sync_log(started_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
