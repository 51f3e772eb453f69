package db

import (
	"database/sql"
	"log"
)

const (
	sqlCreateAccountsTable = `CREATE TABLE IF NOT EXISTS accounts (
		id TEXT NOT NULL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT,
		summary TEXT,
		avatar_url TEXT,
		manual_approval INTEGER DEFAULT 0,
		web_public_key TEXT,
		web_private_key TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateAccountsIndices = `
		CREATE INDEX IF NOT EXISTS idx_accounts_username ON accounts(username);
	`

	sqlCreateRemoteAccountsTable = `CREATE TABLE IF NOT EXISTS remote_accounts (
		id TEXT NOT NULL PRIMARY KEY,
		username TEXT NOT NULL,
		domain TEXT NOT NULL,
		actor_uri TEXT UNIQUE NOT NULL,
		display_name TEXT,
		summary TEXT,
		inbox_uri TEXT NOT NULL,
		shared_inbox_uri TEXT,
		outbox_uri TEXT,
		public_key_pem TEXT NOT NULL,
		avatar_url TEXT,
		suspended INTEGER DEFAULT 0,
		last_fetched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(username, domain)
	)`

	sqlCreateRemoteAccountsIndices = `
		CREATE INDEX IF NOT EXISTS idx_remote_accounts_actor_uri ON remote_accounts(actor_uri);
		CREATE INDEX IF NOT EXISTS idx_remote_accounts_domain ON remote_accounts(domain);
	`

	sqlCreateFollowsTable = `CREATE TABLE IF NOT EXISTS follows (
		id TEXT NOT NULL PRIMARY KEY,
		account_id TEXT NOT NULL,
		target_account_id TEXT NOT NULL,
		uri TEXT NOT NULL,
		approved INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(account_id, target_account_id)
	)`

	sqlCreateFollowsIndices = `
		CREATE INDEX IF NOT EXISTS idx_follows_account_id ON follows(account_id);
		CREATE INDEX IF NOT EXISTS idx_follows_target_account_id ON follows(target_account_id);
		CREATE INDEX IF NOT EXISTS idx_follows_uri ON follows(uri);
	`

	sqlCreateStatusesTable = `CREATE TABLE IF NOT EXISTS statuses (
		id TEXT NOT NULL PRIMARY KEY,
		account_id TEXT NOT NULL,
		content TEXT NOT NULL,
		visibility TEXT DEFAULT 'public',
		sensitive INTEGER DEFAULT 0,
		content_warning TEXT,
		in_reply_to_uri TEXT,
		object_uri TEXT UNIQUE NOT NULL,
		activity_uri TEXT UNIQUE NOT NULL,
		local INTEGER DEFAULT 0,
		favourite_count INTEGER DEFAULT 0,
		reblog_count INTEGER DEFAULT 0,
		reply_count INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP
	)`

	sqlCreateStatusesIndices = `
		CREATE INDEX IF NOT EXISTS idx_statuses_account_id ON statuses(account_id);
		CREATE INDEX IF NOT EXISTS idx_statuses_created_at ON statuses(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_statuses_object_uri ON statuses(object_uri);
		CREATE INDEX IF NOT EXISTS idx_statuses_in_reply_to_uri ON statuses(in_reply_to_uri);
	`

	sqlCreateAttachmentsTable = `CREATE TABLE IF NOT EXISTS attachments (
		id TEXT NOT NULL PRIMARY KEY,
		status_id TEXT NOT NULL,
		url TEXT NOT NULL,
		media_type TEXT NOT NULL,
		description TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (status_id) REFERENCES statuses(id) ON DELETE CASCADE
	)`

	sqlCreateAttachmentsIndices = `
		CREATE INDEX IF NOT EXISTS idx_attachments_status_id ON attachments(status_id);
	`

	sqlCreateFavouritesTable = `CREATE TABLE IF NOT EXISTS favourites (
		id TEXT NOT NULL PRIMARY KEY,
		account_id TEXT NOT NULL,
		status_id TEXT NOT NULL,
		uri TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(account_id, status_id)
	)`

	sqlCreateFavouritesIndices = `
		CREATE INDEX IF NOT EXISTS idx_favourites_status_id ON favourites(status_id);
		CREATE INDEX IF NOT EXISTS idx_favourites_account_id ON favourites(account_id);
	`

	sqlCreateReblogsTable = `CREATE TABLE IF NOT EXISTS reblogs (
		id TEXT NOT NULL PRIMARY KEY,
		account_id TEXT NOT NULL,
		status_id TEXT NOT NULL,
		uri TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(account_id, status_id)
	)`

	sqlCreateReblogsIndices = `
		CREATE INDEX IF NOT EXISTS idx_reblogs_status_id ON reblogs(status_id);
		CREATE INDEX IF NOT EXISTS idx_reblogs_account_id ON reblogs(account_id);
	`

	sqlCreateActivitiesTable = `CREATE TABLE IF NOT EXISTS activities (
		id TEXT NOT NULL PRIMARY KEY,
		activity_uri TEXT UNIQUE NOT NULL,
		activity_type TEXT NOT NULL,
		actor_uri TEXT NOT NULL,
		object_uri TEXT,
		raw_json TEXT NOT NULL,
		processed INTEGER DEFAULT 0,
		local INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateActivitiesIndices = `
		CREATE INDEX IF NOT EXISTS idx_activities_uri ON activities(activity_uri);
		CREATE INDEX IF NOT EXISTS idx_activities_object_uri ON activities(object_uri);
		CREATE INDEX IF NOT EXISTS idx_activities_type ON activities(activity_type);
		CREATE INDEX IF NOT EXISTS idx_activities_created_at ON activities(created_at DESC);
	`

	sqlCreateNotificationsTable = `CREATE TABLE IF NOT EXISTS notifications (
		id TEXT NOT NULL PRIMARY KEY,
		account_id TEXT NOT NULL,
		notification_type TEXT NOT NULL,
		actor_id TEXT,
		actor_username TEXT,
		actor_domain TEXT,
		status_id TEXT,
		status_uri TEXT,
		read INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
	)`

	sqlCreateNotificationsIndices = `
		CREATE INDEX IF NOT EXISTS idx_notifications_account_id ON notifications(account_id);
		CREATE INDEX IF NOT EXISTS idx_notifications_created_at ON notifications(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_notifications_account_read ON notifications(account_id, read);
	`

	sqlCreateMentionsTable = `CREATE TABLE IF NOT EXISTS mentions (
		id TEXT NOT NULL PRIMARY KEY,
		status_id TEXT NOT NULL,
		mentioned_actor_uri TEXT NOT NULL,
		mentioned_username TEXT NOT NULL,
		mentioned_domain TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (status_id) REFERENCES statuses(id) ON DELETE CASCADE
	)`

	sqlCreateMentionsIndices = `
		CREATE INDEX IF NOT EXISTS idx_mentions_status_id ON mentions(status_id);
		CREATE INDEX IF NOT EXISTS idx_mentions_actor_uri ON mentions(mentioned_actor_uri);
	`

	sqlCreateJobsTable = `CREATE TABLE IF NOT EXISTS jobs (
		id TEXT NOT NULL PRIMARY KEY,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		attempts INTEGER DEFAULT 0,
		next_attempt_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateJobsIndices = `
		CREATE INDEX IF NOT EXISTS idx_jobs_next_attempt ON jobs(next_attempt_at);
		CREATE INDEX IF NOT EXISTS idx_jobs_kind ON jobs(kind);
	`
)

// RunMigrations executes all database migrations
func (db *DB) RunMigrations() error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if err := db.createTableIfNotExists(tx, sqlCreateAccountsTable, "accounts"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateRemoteAccountsTable, "remote_accounts"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateFollowsTable, "follows"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateStatusesTable, "statuses"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateAttachmentsTable, "attachments"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateFavouritesTable, "favourites"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateReblogsTable, "reblogs"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateActivitiesTable, "activities"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateNotificationsTable, "notifications"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateMentionsTable, "mentions"); err != nil {
			return err
		}
		if err := db.createTableIfNotExists(tx, sqlCreateJobsTable, "jobs"); err != nil {
			return err
		}

		if _, err := tx.Exec(sqlCreateAccountsIndices); err != nil {
			log.Printf("Warning: Failed to create accounts indices: %v", err)
		}
		if _, err := tx.Exec(sqlCreateRemoteAccountsIndices); err != nil {
			log.Printf("Warning: Failed to create remote_accounts indices: %v", err)
		}
		if _, err := tx.Exec(sqlCreateFollowsIndices); err != nil {
			log.Printf("Warning: Failed to create follows indices: %v", err)
		}
		if _, err := tx.Exec(sqlCreateStatusesIndices); err != nil {
			log.Printf("Warning: Failed to create statuses indices: %v", err)
		}
		if _, err := tx.Exec(sqlCreateAttachmentsIndices); err != nil {
			log.Printf("Warning: Failed to create attachments indices: %v", err)
		}
		if _, err := tx.Exec(sqlCreateFavouritesIndices); err != nil {
			log.Printf("Warning: Failed to create favourites indices: %v", err)
		}
		if _, err := tx.Exec(sqlCreateReblogsIndices); err != nil {
			log.Printf("Warning: Failed to create reblogs indices: %v", err)
		}
		if _, err := tx.Exec(sqlCreateActivitiesIndices); err != nil {
			log.Printf("Warning: Failed to create activities indices: %v", err)
		}
		if _, err := tx.Exec(sqlCreateNotificationsIndices); err != nil {
			log.Printf("Warning: Failed to create notifications indices: %v", err)
		}
		if _, err := tx.Exec(sqlCreateMentionsIndices); err != nil {
			log.Printf("Warning: Failed to create mentions indices: %v", err)
		}
		if _, err := tx.Exec(sqlCreateJobsIndices); err != nil {
			log.Printf("Warning: Failed to create jobs indices: %v", err)
		}

		return nil
	})
}

func (db *DB) createTableIfNotExists(tx *sql.Tx, createSQL string, tableName string) error {
	_, err := tx.Exec(createSQL)
	if err != nil {
		log.Printf("Error creating table %s: %v", tableName, err)
		return err
	}
	return nil
}
