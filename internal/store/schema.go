package store

// schemaDDL creates the debate graph tables. Everything hangs off debates
// and cascades with it.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS debates (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS transcripts (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	debate_id      INTEGER NOT NULL UNIQUE REFERENCES debates(id) ON DELETE CASCADE,
	external_id    TEXT NOT NULL DEFAULT '',
	text           TEXT NOT NULL,
	utterances     TEXT NOT NULL,
	words          TEXT NOT NULL,
	confidence     REAL NOT NULL,
	audio_duration REAL NOT NULL,
	status         TEXT NOT NULL,
	error          TEXT
);

CREATE TABLE IF NOT EXISTS arguments (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	debate_id  INTEGER NOT NULL REFERENCES debates(id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	scheme     TEXT NOT NULL,
	conclusion TEXT NOT NULL,
	text       TEXT NOT NULL,
	speaker    TEXT NOT NULL,
	start_ms   INTEGER NOT NULL,
	end_ms     INTEGER NOT NULL,
	short_name TEXT NOT NULL,
	UNIQUE (debate_id, position)
);

CREATE TABLE IF NOT EXISTS premises (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	argument_id INTEGER NOT NULL REFERENCES arguments(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	text        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS premises_argument ON premises(argument_id);

CREATE TABLE IF NOT EXISTS critical_questions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	argument_id INTEGER NOT NULL REFERENCES arguments(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	text        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS critical_questions_argument ON critical_questions(argument_id);

CREATE TABLE IF NOT EXISTS relations (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	debate_id   INTEGER NOT NULL REFERENCES debates(id) ON DELETE CASCADE,
	source_id   INTEGER NOT NULL REFERENCES arguments(id) ON DELETE CASCADE,
	target_id   INTEGER NOT NULL REFERENCES arguments(id) ON DELETE CASCADE,
	type        TEXT NOT NULL CHECK (type IN ('ATTACK', 'SUPPORT')),
	criterion   TEXT NOT NULL CHECK (criterion IN (
		'LOGICAL_CONTRADICTION', 'PREMISE_UNDERMINING', 'REBUTTAL', 'UNDERCUTTING',
		'PREMISE_REINFORCEMENT', 'CONCLUSION_STRENGTHENING', 'INFERENTIAL_BACKING',
		'EVIDENTIAL_SUPPORT', 'NO_RELATION')),
	confidence  REAL NOT NULL CHECK (confidence BETWEEN 0 AND 1),
	description TEXT,
	CHECK (source_id <> target_id)
);
CREATE INDEX IF NOT EXISTS relations_debate ON relations(debate_id);

CREATE TRIGGER IF NOT EXISTS relations_same_debate
BEFORE INSERT ON relations
WHEN (SELECT debate_id FROM arguments WHERE id = NEW.source_id) IS NOT NEW.debate_id
  OR (SELECT debate_id FROM arguments WHERE id = NEW.target_id) IS NOT NEW.debate_id
BEGIN
	SELECT RAISE(ABORT, 'relation endpoints must belong to the relation''s debate');
END;
`
