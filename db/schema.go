// ABOUTME: Database schema definitions and migrations
// ABOUTME: Creates CRM tables for SQLite and PostgreSQL from one template
package db

import (
	"database/sql"
	"strings"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	role TEXT NOT NULL CHECK(role IN ('SALES_REP', 'CLIENT')),
	company_name TEXT NOT NULL DEFAULT '',
	sales_goal {{real}} NOT NULL DEFAULT 0,
	created_at {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS api_tokens (
	token_hash TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	created_at {{ts}} NOT NULL,
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_api_tokens_user_id ON api_tokens(user_id);

CREATE TABLE IF NOT EXISTS deals (
	id TEXT PRIMARY KEY,
	sales_rep_id TEXT NOT NULL,
	deal_name TEXT NOT NULL,
	client_company_name TEXT NOT NULL,
	stage TEXT NOT NULL DEFAULT 'COURTING' CHECK(stage IN ('COURTING', 'REGISTERED', 'QUOTED', 'WON', 'CLOSED_LOST')),
	deal_value {{real}} NOT NULL,
	gross_profit {{real}} NOT NULL,
	expected_close_date {{ts}},
	probability INTEGER NOT NULL DEFAULT 10 CHECK(probability BETWEEN 0 AND 100),
	forecast_category TEXT NOT NULL DEFAULT 'PIPELINE' CHECK(forecast_category IN ('COMMIT', 'BEST_CASE', 'PIPELINE', 'OMIT')),
	meddic_metrics TEXT NOT NULL DEFAULT '',
	meddic_economic_buyer TEXT NOT NULL DEFAULT '',
	meddic_decision_criteria TEXT NOT NULL DEFAULT '',
	meddic_decision_process TEXT NOT NULL DEFAULT '',
	meddic_identify_pain TEXT NOT NULL DEFAULT '',
	meddic_champion TEXT NOT NULL DEFAULT '',
	created_at {{ts}} NOT NULL,
	updated_at {{ts}} NOT NULL,
	FOREIGN KEY (sales_rep_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_deals_sales_rep_id ON deals(sales_rep_id, updated_at);
CREATE INDEX IF NOT EXISTS idx_deals_client_company ON deals(client_company_name, stage);

CREATE TABLE IF NOT EXISTS activities (
	id TEXT PRIMARY KEY,
	deal_id TEXT NOT NULL,
	type TEXT NOT NULL CHECK(type IN ('CALL', 'EMAIL', 'MEETING', 'DEMO', 'NOTE')),
	subject TEXT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	activity_date {{ts}} NOT NULL,
	next_steps TEXT NOT NULL DEFAULT '',
	next_steps_due {{ts}},
	created_at {{ts}} NOT NULL,
	FOREIGN KEY (deal_id) REFERENCES deals(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_activities_deal_id ON activities(deal_id, activity_date);

CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	deal_id TEXT NOT NULL,
	name TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'INFLUENCER' CHECK(role IN ('CHAMPION', 'ECONOMIC_BUYER', 'TECHNICAL_BUYER', 'INFLUENCER', 'BLOCKER')),
	notes TEXT NOT NULL DEFAULT '',
	is_primary BOOLEAN NOT NULL DEFAULT {{false}},
	created_at {{ts}} NOT NULL,
	updated_at {{ts}} NOT NULL,
	FOREIGN KEY (deal_id) REFERENCES deals(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_contacts_deal_id ON contacts(deal_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_contacts_one_primary ON contacts(deal_id) WHERE is_primary = {{true}};

CREATE TABLE IF NOT EXISTS competitors (
	id TEXT PRIMARY KEY,
	deal_id TEXT NOT NULL,
	name TEXT NOT NULL,
	strengths TEXT NOT NULL DEFAULT '',
	weaknesses TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'ACTIVE' CHECK(status IN ('ACTIVE', 'ELIMINATED', 'UNKNOWN')),
	notes TEXT NOT NULL DEFAULT '',
	created_at {{ts}} NOT NULL,
	updated_at {{ts}} NOT NULL,
	FOREIGN KEY (deal_id) REFERENCES deals(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_competitors_deal_id ON competitors(deal_id);

CREATE TABLE IF NOT EXISTS files (
	id TEXT PRIMARY KEY,
	deal_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	filepath TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT 'INTERNAL' CHECK(category IN ('INTERNAL', 'EXTERNAL')),
	size {{bigint}} NOT NULL DEFAULT 0,
	uploaded_at {{ts}} NOT NULL,
	FOREIGN KEY (deal_id) REFERENCES deals(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_files_deal_id ON files(deal_id, category);
`

// Schema renders the DDL for dialect.
func Schema(d Dialect) string {
	r := strings.NewReplacer(
		"{{ts}}", "DATETIME",
		"{{real}}", "REAL",
		"{{bigint}}", "INTEGER",
		"{{true}}", "1",
		"{{false}}", "0",
	)
	if d == Postgres {
		r = strings.NewReplacer(
			"{{ts}}", "TIMESTAMPTZ",
			"{{real}}", "DOUBLE PRECISION",
			"{{bigint}}", "BIGINT",
			"{{true}}", "TRUE",
			"{{false}}", "FALSE",
		)
	}
	return r.Replace(schema)
}

func InitSchema(db *sql.DB, d Dialect) error {
	_, err := db.Exec(Schema(d))
	return err
}
