package storage

// PostgresSchema documents the tables the Postgres stores read and write.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS creators (
	id            TEXT PRIMARY KEY,
	tenant_id     TEXT NOT NULL,
	name          TEXT,
	platform      TEXT,
	campaign_id   TEXT,
	spent         NUMERIC(14,2),
	conversions   BIGINT,
	clicks        BIGINT,
	views         BIGINT,
	content_count INTEGER
);
CREATE INDEX IF NOT EXISTS creators_tenant_idx ON creators (tenant_id);

CREATE TABLE IF NOT EXISTS creator_daily_stats (
	tenant_id   TEXT NOT NULL,
	creator_id  TEXT NOT NULL,
	day         DATE NOT NULL,
	conversions BIGINT,
	clicks      BIGINT,
	cost        NUMERIC(14,2),
	PRIMARY KEY (tenant_id, creator_id, day)
);

CREATE TABLE IF NOT EXISTS content_daily_stats (
	tenant_id  TEXT NOT NULL,
	creator_id TEXT NOT NULL,
	day        DATE NOT NULL,
	views      BIGINT,
	likes      BIGINT,
	PRIMARY KEY (tenant_id, creator_id, day)
);

CREATE TABLE IF NOT EXISTS tenant_aliases (
	alias     TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS benchmark_data (
	id                    UUID PRIMARY KEY,
	platform              TEXT NOT NULL,
	price_tier            TEXT NOT NULL,
	cpa                   DOUBLE PRECISION,
	cpc                   DOUBLE PRECISION,
	cpm                   DOUBLE PRECISION,
	conversion_rate       DOUBLE PRECISION,
	content_delivery_rate DOUBLE PRECISION,
	views_per_dollar      DOUBLE PRECISION,
	recorded_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS benchmark_data_recorded_idx ON benchmark_data (recorded_at);

CREATE TABLE IF NOT EXISTS benchmarks (
	segment                   TEXT PRIMARY KEY,
	sample_size               INTEGER NOT NULL,
	cpa_p25                   DOUBLE PRECISION,
	cpa_p50                   DOUBLE PRECISION,
	cpa_p75                   DOUBLE PRECISION,
	cpc_p50                   DOUBLE PRECISION,
	cpm_p50                   DOUBLE PRECISION,
	conversion_rate_p50       DOUBLE PRECISION,
	content_delivery_rate_p50 DOUBLE PRECISION,
	views_per_dollar_p50      DOUBLE PRECISION,
	updated_at                TIMESTAMPTZ NOT NULL
);
`

// ClickHouseSchema documents the contribution pool table on ClickHouse.
const ClickHouseSchema = `
CREATE TABLE IF NOT EXISTS benchmark_data (
	id                    UUID,
	platform              LowCardinality(String),
	price_tier            LowCardinality(String),
	cpa                   Nullable(Float64),
	cpc                   Nullable(Float64),
	cpm                   Nullable(Float64),
	conversion_rate       Nullable(Float64),
	content_delivery_rate Nullable(Float64),
	views_per_dollar      Nullable(Float64),
	recorded_at           DateTime64(3, 'UTC')
) ENGINE = MergeTree
ORDER BY (platform, price_tier, recorded_at)
TTL toDateTime(recorded_at) + INTERVAL 180 DAY
`
