package queue

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    position INTEGER NOT NULL,
    source_url TEXT NOT NULL UNIQUE,
    status TEXT NOT NULL,
    metadata_json TEXT,
    transcript_json TEXT,
    error_stage TEXT,
    error_message TEXT,
    error_retriable INTEGER NOT NULL DEFAULT 0,
    download_attempts INTEGER NOT NULL DEFAULT 0,
    transcribe_attempts INTEGER NOT NULL DEFAULT 0,
    temp_audio_path TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_position ON jobs(position);
`
