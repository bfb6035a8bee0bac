package database

// Schema contains all SQL statements for creating tables and indexes
const Schema = `
-- Teams table: groups of athletes managed together
CREATE TABLE IF NOT EXISTS teams (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    category TEXT,

    -- Metadata
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

-- Athletes table: riders, with an optional Intervals.icu API key
CREATE TABLE IF NOT EXISTS athletes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    team_id INTEGER,

    first_name TEXT NOT NULL,
    last_name TEXT NOT NULL,
    weight_kg REAL,
    ftp_watts INTEGER,

    -- Intervals.icu credential (API key of the athlete's own profile)
    intervals_api_key TEXT,

    -- Metadata
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,

    FOREIGN KEY (team_id) REFERENCES teams(id) ON DELETE SET NULL
);

-- Races table: planned races, single or multi-stage
CREATE TABLE IF NOT EXISTS races (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    team_id INTEGER,

    name TEXT NOT NULL,
    start_date TEXT NOT NULL,  -- YYYY-MM-DD
    category TEXT NOT NULL DEFAULT 'C',
    location TEXT,

    -- Course metrics (single-stage races carry their own)
    distance_km REAL NOT NULL DEFAULT 0,
    elevation_m REAL NOT NULL DEFAULT 0,
    avg_speed_kmh REAL NOT NULL DEFAULT 0,

    -- Optional explicit predictions
    predicted_duration_min REAL,
    predicted_kj REAL,

    stage_count INTEGER NOT NULL DEFAULT 1,
    notes TEXT,

    -- Metadata
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,

    FOREIGN KEY (team_id) REFERENCES teams(id) ON DELETE SET NULL
);

-- Race stages table: one row per stage of a multi-stage race
CREATE TABLE IF NOT EXISTS race_stages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    race_id INTEGER NOT NULL,
    stage_number INTEGER NOT NULL,
    stage_date TEXT NOT NULL,  -- YYYY-MM-DD

    distance_km REAL NOT NULL DEFAULT 0,
    elevation_m REAL NOT NULL DEFAULT 0,
    avg_speed_kmh REAL NOT NULL DEFAULT 0,

    FOREIGN KEY (race_id) REFERENCES races(id) ON DELETE CASCADE
);

-- Race enrollments table: athletes taking part in a race
CREATE TABLE IF NOT EXISTS race_enrollments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    race_id INTEGER NOT NULL,
    athlete_id INTEGER NOT NULL,

    -- Athlete-specific objective (A/B/C) and energy rate (kJ/h/kg)
    objective_category TEXT,
    kj_per_hour_per_kg REAL,

    created_at INTEGER NOT NULL,

    FOREIGN KEY (race_id) REFERENCES races(id) ON DELETE CASCADE,
    FOREIGN KEY (athlete_id) REFERENCES athletes(id) ON DELETE CASCADE
);

-- Activities table: completed activities pulled from Intervals.icu
CREATE TABLE IF NOT EXISTS activities (
    id TEXT PRIMARY KEY,  -- Intervals.icu activity ID
    athlete_id INTEGER NOT NULL,

    -- Extracted fields for querying and indexing
    start_date_local TEXT,
    activity_type TEXT,  -- e.g., "Ride", "VirtualRide", "Run"
    name TEXT,
    distance_m REAL,
    moving_time_s INTEGER,
    training_load REAL,
    average_watts REAL,

    -- Activity data (stored as JSON)
    raw_json TEXT NOT NULL,

    synced_at INTEGER NOT NULL,

    FOREIGN KEY (athlete_id) REFERENCES athletes(id) ON DELETE CASCADE
);

-- Wellness table: one record per athlete per day
CREATE TABLE IF NOT EXISTS wellness (
    athlete_id INTEGER NOT NULL,
    date TEXT NOT NULL,  -- YYYY-MM-DD

    weight_kg REAL,
    resting_hr INTEGER,
    hrv REAL,
    ctl REAL,
    atl REAL,

    raw_json TEXT NOT NULL,
    synced_at INTEGER NOT NULL,

    PRIMARY KEY (athlete_id, date),
    FOREIGN KEY (athlete_id) REFERENCES athletes(id) ON DELETE CASCADE
);

-- Push runs table: history of race-to-calendar pushes
CREATE TABLE IF NOT EXISTS push_runs (
    id TEXT PRIMARY KEY,  -- UUID
    race_id INTEGER NOT NULL,

    started_at INTEGER NOT NULL,
    finished_at INTEGER NOT NULL,

    athletes_processed INTEGER NOT NULL,
    athletes_pushed INTEGER NOT NULL,
    events_created INTEGER NOT NULL,
    failure_count INTEGER NOT NULL,

    report_json TEXT NOT NULL,

    FOREIGN KEY (race_id) REFERENCES races(id) ON DELETE CASCADE
);

-- Indexes for athletes table
CREATE INDEX IF NOT EXISTS idx_athletes_team_id ON athletes(team_id);

-- Indexes for races table
CREATE INDEX IF NOT EXISTS idx_races_start_date ON races(start_date);
CREATE INDEX IF NOT EXISTS idx_races_team_id ON races(team_id);

-- Stage numbers are unique within a race
CREATE UNIQUE INDEX IF NOT EXISTS idx_race_stages_unique ON race_stages(race_id, stage_number);

-- An athlete is enrolled at most once per race
CREATE UNIQUE INDEX IF NOT EXISTS idx_race_enrollments_unique ON race_enrollments(race_id, athlete_id);
CREATE INDEX IF NOT EXISTS idx_race_enrollments_athlete ON race_enrollments(athlete_id);

-- Indexes for activities table
CREATE INDEX IF NOT EXISTS idx_activities_athlete_start ON activities(athlete_id, start_date_local DESC);

-- Indexes for push_runs table
CREATE INDEX IF NOT EXISTS idx_push_runs_race ON push_runs(race_id, started_at DESC);
`
