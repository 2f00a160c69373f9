package storage

var migrations = []string{
	`CREATE SCHEMA IF NOT EXISTS content;`,
	`CREATE TABLE IF NOT EXISTS content.users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL,
		username      TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		avatar        TEXT NOT NULL DEFAULT '',
		balance       INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON content.users (lower(email));`,
	`CREATE TABLE IF NOT EXISTS content.products (
		id       INTEGER PRIMARY KEY,
		category TEXT NOT NULL,
		payload  JSONB NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS content.orders (
		id             TEXT PRIMARY KEY,
		user_id        TEXT NOT NULL REFERENCES content.users (id),
		items          JSONB NOT NULL,
		total          INTEGER NOT NULL CHECK (total >= 0),
		status         TEXT NOT NULL CHECK (status IN ('pending', 'processing', 'completed', 'failed')),
		payment_method TEXT NOT NULL,
		keys           JSONB,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS content.purchases (
		user_id        TEXT NOT NULL REFERENCES content.users (id),
		product_id     INTEGER NOT NULL REFERENCES content.products (id),
		order_id       TEXT NOT NULL REFERENCES content.orders (id),
		redemption_key TEXT NOT NULL
	);`,
}
