package archive

// migration is a single schema step. Statements must run on both SQLite and
// PostgreSQL.
type migration struct {
	Version int
	Name    string
	SQL     string
}

var migrations = []migration{
	{
		Version: 1,
		Name:    "create engagements",
		SQL: `
			CREATE TABLE engagements (
				session_id     TEXT PRIMARY KEY,
				scam_detected  BOOLEAN NOT NULL DEFAULT FALSE,
				scam_type      TEXT NOT NULL DEFAULT '',
				confidence     TEXT NOT NULL DEFAULT '',
				grade          TEXT NOT NULL DEFAULT '',
				score          INTEGER NOT NULL DEFAULT 0,
				turn_count     INTEGER NOT NULL DEFAULT 0,
				message_count  INTEGER NOT NULL DEFAULT 0,
				exit_reason    TEXT NOT NULL DEFAULT '',
				ended_at       TEXT NOT NULL,
				report         TEXT NOT NULL DEFAULT '{}'
			);

			CREATE INDEX idx_engagements_ended ON engagements (ended_at);
		`,
	},
	{
		Version: 2,
		Name:    "index engagements by scam type",
		SQL:     `CREATE INDEX idx_engagements_type ON engagements (scam_type);`,
	},
}

const upsertSQL = `
	INSERT INTO engagements (session_id, scam_detected, scam_type, confidence, grade, score,
		turn_count, message_count, exit_reason, ended_at, report)
	VALUES (%s)
	ON CONFLICT (session_id) DO UPDATE SET
		scam_detected = excluded.scam_detected,
		scam_type     = excluded.scam_type,
		confidence    = excluded.confidence,
		grade         = excluded.grade,
		score         = excluded.score,
		turn_count    = excluded.turn_count,
		message_count = excluded.message_count,
		exit_reason   = excluded.exit_reason,
		ended_at      = excluded.ended_at,
		report        = excluded.report`

const selectColumns = `session_id, scam_detected, scam_type, confidence, grade, score,
	turn_count, message_count, exit_reason, ended_at, report`
