package store

// Schema notes: radar_data_layer and radar_feature_layer enforce filename
// uniqueness cache-wide; insert-or-ignore on those indexes is the
// deduplication mechanism. The freshness table is keyed by
// (resource_kind, key) and only ever moves forward.
const schema = `
CREATE TABLE IF NOT EXISTS station (
	id INTEGER PRIMARY KEY,
	district_id TEXT NOT NULL,
	name TEXT NOT NULL,
	start INTEGER NOT NULL,
	end INTEGER,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	source TEXT,
	state TEXT NOT NULL,
	height REAL,
	barometric_height REAL,
	wmo_id INTEGER
);

CREATE TABLE IF NOT EXISTS location (
	id TEXT PRIMARY KEY,
	geohash TEXT NOT NULL,
	station_id INTEGER REFERENCES station(id),
	has_wave INTEGER NOT NULL DEFAULT 0,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	marine_area_id TEXT,
	name TEXT NOT NULL,
	state TEXT NOT NULL,
	postcode TEXT NOT NULL,
	tidal_point TEXT,
	timezone TEXT NOT NULL,
	weather TEXT
);

CREATE TABLE IF NOT EXISTS radar (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	full_name TEXT NOT NULL,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	state TEXT NOT NULL,
	type_ TEXT NOT NULL,
	group_ INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS radar_legend (
	id INTEGER PRIMARY KEY,
	image BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS radar_data_layer (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	image BLOB NOT NULL,
	radar_id INTEGER NOT NULL REFERENCES radar(id),
	radar_type_id TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	filename TEXT NOT NULL UNIQUE
);
CREATE INDEX IF NOT EXISTS idx_radar_data_layer_stream
	ON radar_data_layer(radar_id, radar_type_id, timestamp);

CREATE TABLE IF NOT EXISTS radar_feature_layer (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	image BLOB NOT NULL,
	radar_id INTEGER NOT NULL REFERENCES radar(id),
	feature TEXT NOT NULL,
	radar_type_id TEXT NOT NULL,
	filename TEXT NOT NULL UNIQUE
);
CREATE INDEX IF NOT EXISTS idx_radar_feature_layer_stream
	ON radar_feature_layer(radar_id, radar_type_id);

CREATE TABLE IF NOT EXISTS freshness (
	resource_kind TEXT NOT NULL,
	key TEXT NOT NULL,
	last_check DATETIME NOT NULL,
	PRIMARY KEY (resource_kind, key)
);
`
