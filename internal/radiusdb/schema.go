package radiusdb

import "database/sql"

// InitSchema creates the tables the RADIUS daemon consumes. Idempotent;
// deployments pointing at an existing daemon schema are left untouched.
// None of the tables carry a tenant column: tenancy lives entirely in the
// username/groupname strings.
func InitSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS radcheck (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username VARCHAR(64) NOT NULL DEFAULT '',
		attribute VARCHAR(64) NOT NULL DEFAULT '',
		op CHAR(2) NOT NULL DEFAULT '==',
		value VARCHAR(253) NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_radcheck_username ON radcheck(username, attribute);

	CREATE TABLE IF NOT EXISTS radreply (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username VARCHAR(64) NOT NULL DEFAULT '',
		attribute VARCHAR(64) NOT NULL DEFAULT '',
		op CHAR(2) NOT NULL DEFAULT '=',
		value VARCHAR(253) NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_radreply_username ON radreply(username, attribute);

	CREATE TABLE IF NOT EXISTS radgroupcheck (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		groupname VARCHAR(64) NOT NULL DEFAULT '',
		attribute VARCHAR(64) NOT NULL DEFAULT '',
		op CHAR(2) NOT NULL DEFAULT '==',
		value VARCHAR(253) NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_radgroupcheck_groupname ON radgroupcheck(groupname, attribute);

	CREATE TABLE IF NOT EXISTS radgroupreply (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		groupname VARCHAR(64) NOT NULL DEFAULT '',
		attribute VARCHAR(64) NOT NULL DEFAULT '',
		op CHAR(2) NOT NULL DEFAULT '=',
		value VARCHAR(253) NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_radgroupreply_groupname ON radgroupreply(groupname, attribute);

	CREATE TABLE IF NOT EXISTS radusergroup (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username VARCHAR(64) NOT NULL DEFAULT '',
		groupname VARCHAR(64) NOT NULL DEFAULT '',
		priority INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_radusergroup_username ON radusergroup(username);

	CREATE TABLE IF NOT EXISTS nas (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		nasname VARCHAR(128) NOT NULL UNIQUE,
		shortname VARCHAR(32) NOT NULL DEFAULT '',
		type VARCHAR(30) NOT NULL DEFAULT 'other',
		secret VARCHAR(60) NOT NULL,
		description VARCHAR(200)
	);

	CREATE TABLE IF NOT EXISTS radacct (
		radacctid INTEGER PRIMARY KEY AUTOINCREMENT,
		acctsessionid VARCHAR(64) NOT NULL DEFAULT '',
		username VARCHAR(64) NOT NULL DEFAULT '',
		nasipaddress VARCHAR(45) NOT NULL DEFAULT '',
		framedipaddress VARCHAR(45) NOT NULL DEFAULT '',
		callingstationid VARCHAR(50) NOT NULL DEFAULT '',
		acctstarttime DATETIME,
		acctupdatetime DATETIME,
		acctstoptime DATETIME,
		acctsessiontime BIGINT NOT NULL DEFAULT 0,
		acctinputoctets BIGINT NOT NULL DEFAULT 0,
		acctoutputoctets BIGINT NOT NULL DEFAULT 0,
		acctterminatecause VARCHAR(32) NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_radacct_username ON radacct(username);
	CREATE INDEX IF NOT EXISTS idx_radacct_open ON radacct(acctstoptime);
	CREATE INDEX IF NOT EXISTS idx_radacct_start ON radacct(acctstarttime);
	`

	_, err := db.Exec(schema)
	return err
}
