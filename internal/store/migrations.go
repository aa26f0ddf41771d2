package store

const schema = `
CREATE TABLE IF NOT EXISTS price_observations (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    item_name    TEXT NOT NULL,
    date         TEXT NOT NULL,
    price        REAL NOT NULL,
    volume       INTEGER NOT NULL DEFAULT 0,
    collected_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_prices_item_date ON price_observations(item_name, date);

CREATE TABLE IF NOT EXISTS player_counts (
    date            TEXT PRIMARY KEY,
    average_players INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tournaments (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT NOT NULL,
    start_date TEXT NOT NULL,
    end_date   TEXT NOT NULL,
    prize_pool TEXT NOT NULL DEFAULT '',
    location   TEXT NOT NULL DEFAULT '',
    UNIQUE(name, start_date)
);

CREATE TABLE IF NOT EXISTS daily_records (
    item_id         INTEGER NOT NULL,
    item_name       TEXT NOT NULL,
    date            TEXT NOT NULL,
    price           REAL NOT NULL,
    average_players INTEGER NOT NULL,
    has_tournament  BOOLEAN NOT NULL,
    PRIMARY KEY (item_id, date)
);

CREATE INDEX IF NOT EXISTS idx_records_item_name ON daily_records(item_name);
CREATE INDEX IF NOT EXISTS idx_records_date ON daily_records(date);
`
