package repository

import "strings"

const schemaTemplate = `
CREATE TABLE IF NOT EXISTS conversions (
	id {{id}},
	content_hash TEXT NOT NULL UNIQUE,
	path_hash TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	transcoder_status TEXT NOT NULL,
	alt_transcoder {{bool}},
	output_size BIGINT NOT NULL DEFAULT 0,
	has_hls {{bool}},
	media_info TEXT NOT NULL DEFAULT '',
	input_deleted {{bool}},
	time_created BIGINT NOT NULL,
	time_modified BIGINT NOT NULL,
	time_completed BIGINT
);
CREATE INDEX IF NOT EXISTS idx_conversions_status ON conversions (status, time_created);

CREATE TABLE IF NOT EXISTS conversion_subtitles (
	id {{id}},
	content_hash TEXT NOT NULL,
	language TEXT NOT NULL,
	status TEXT NOT NULL,
	retry_count INTEGER NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT '',
	message_id TEXT NOT NULL DEFAULT '',
	time_requested BIGINT NOT NULL,
	time_completed BIGINT,
	UNIQUE (content_hash, language)
);

CREATE TABLE IF NOT EXISTS conversion_messages (
	id {{id}},
	message_id TEXT NOT NULL DEFAULT '',
	payload_hash TEXT NOT NULL UNIQUE,
	content_hash TEXT NOT NULL,
	process TEXT NOT NULL,
	status TEXT NOT NULL,
	object_key TEXT NOT NULL,
	payload TEXT NOT NULL DEFAULT '',
	sent_at BIGINT NOT NULL,
	time_created BIGINT NOT NULL,
	processed {{bool}}
);
CREATE INDEX IF NOT EXISTS idx_conversion_messages_hash ON conversion_messages (content_hash, processed);

CREATE TABLE IF NOT EXISTS conversion_logs (
	id {{id}},
	type TEXT NOT NULL,
	subsystem TEXT NOT NULL,
	content_hash TEXT NOT NULL DEFAULT '',
	detail TEXT NOT NULL DEFAULT '{}',
	notify_admin {{bool}},
	time_created BIGINT NOT NULL
);
`

// schemaStatements renders the schema for the given driver as individual statements.
func schemaStatements(driverName string) []string {
	id, boolean := "INTEGER PRIMARY KEY AUTOINCREMENT", "INTEGER NOT NULL DEFAULT 0"
	if driverName == "postgres" {
		id, boolean = "BIGSERIAL PRIMARY KEY", "BOOLEAN NOT NULL DEFAULT FALSE"
	}
	ddl := strings.NewReplacer("{{id}}", id, "{{bool}}", boolean).Replace(schemaTemplate)

	var stmts []string
	for _, s := range strings.Split(ddl, ";") {
		if s = strings.TrimSpace(s); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
