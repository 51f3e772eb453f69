package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pictodon/pictodon/domain"
)

// Status queries
const (
	sqlInsertStatus = `INSERT INTO statuses(id, account_id, content, visibility, sensitive, content_warning, in_reply_to_uri, object_uri, activity_uri, local, favourite_count, reblog_count, reply_count, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlSelectStatusColumns      = `id, account_id, content, visibility, sensitive, content_warning, in_reply_to_uri, object_uri, activity_uri, local, favourite_count, reblog_count, reply_count, created_at, updated_at`
	sqlSelectStatusById         = `SELECT ` + sqlSelectStatusColumns + ` FROM statuses WHERE id = ?`
	sqlSelectStatusByObjectURI  = `SELECT ` + sqlSelectStatusColumns + ` FROM statuses WHERE object_uri = ?`
	sqlSelectStatusByActivity   = `SELECT ` + sqlSelectStatusColumns + ` FROM statuses WHERE activity_uri = ?`
	sqlUpdateStatusContent      = `UPDATE statuses SET content = ?, sensitive = ?, content_warning = ?, updated_at = ? WHERE id = ?`
	sqlDeleteStatusById         = `DELETE FROM statuses WHERE id = ?`
	sqlDeleteStatusesByAccount  = `DELETE FROM statuses WHERE account_id = ?`
	sqlSelectPublicByUsername   = `SELECT s.id, s.account_id, s.content, s.visibility, s.sensitive, s.content_warning, s.in_reply_to_uri, s.object_uri, s.activity_uri, s.local, s.favourite_count, s.reblog_count, s.reply_count, s.created_at, s.updated_at FROM statuses s INNER JOIN accounts a ON a.id = s.account_id WHERE a.username = ? AND s.visibility = 'public' ORDER BY s.created_at DESC LIMIT ? OFFSET ?`
	sqlCountPublicByUsername    = `SELECT COUNT(*) FROM statuses s INNER JOIN accounts a ON a.id = s.account_id WHERE a.username = ? AND s.visibility = 'public'`
	sqlSelectRecentLocalPublic  = `SELECT ` + sqlSelectStatusColumns + ` FROM statuses WHERE local = 1 AND visibility = 'public' ORDER BY created_at DESC LIMIT ?`
	sqlIncrementFavouriteCount  = `UPDATE statuses SET favourite_count = favourite_count + 1 WHERE id = ?`
	sqlDecrementFavouriteCount  = `UPDATE statuses SET favourite_count = MAX(favourite_count - 1, 0) WHERE id = ?`
	sqlIncrementReblogCount     = `UPDATE statuses SET reblog_count = reblog_count + 1 WHERE id = ?`
	sqlDecrementReblogCount     = `UPDATE statuses SET reblog_count = MAX(reblog_count - 1, 0) WHERE id = ?`
	sqlIncrementReplyCountByURI = `UPDATE statuses SET reply_count = reply_count + 1 WHERE object_uri = ?`
)

func (db *DB) CreateStatus(status *domain.Status) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertStatus,
			status.Id.String(),
			status.AccountId.String(),
			status.Content,
			string(status.Visibility),
			status.Sensitive,
			status.ContentWarning,
			status.InReplyToURI,
			status.ObjectURI,
			status.ActivityURI,
			status.Local,
			status.FavouriteCount,
			status.ReblogCount,
			status.ReplyCount,
			status.CreatedAt,
		)
		return err
	})
}

func scanStatusRow(scan func(dest ...any) error) (error, *domain.Status) {
	var status domain.Status
	var idStr, accountIdStr, visibility string
	var updatedAt sql.NullTime
	err := scan(
		&idStr,
		&accountIdStr,
		&status.Content,
		&visibility,
		&status.Sensitive,
		&status.ContentWarning,
		&status.InReplyToURI,
		&status.ObjectURI,
		&status.ActivityURI,
		&status.Local,
		&status.FavouriteCount,
		&status.ReblogCount,
		&status.ReplyCount,
		&status.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return err, nil
	}
	status.Id, _ = uuid.Parse(idStr)
	status.AccountId, _ = uuid.Parse(accountIdStr)
	status.Visibility = domain.Visibility(visibility)
	if updatedAt.Valid {
		t := updatedAt.Time
		status.UpdatedAt = &t
	}
	return nil, &status
}

func (db *DB) ReadStatusById(id uuid.UUID) (error, *domain.Status) {
	return scanStatusRow(db.db.QueryRow(sqlSelectStatusById, id.String()).Scan)
}

func (db *DB) ReadStatusByObjectURI(objectURI string) (error, *domain.Status) {
	return scanStatusRow(db.db.QueryRow(sqlSelectStatusByObjectURI, objectURI).Scan)
}

func (db *DB) ReadStatusByActivityURI(activityURI string) (error, *domain.Status) {
	return scanStatusRow(db.db.QueryRow(sqlSelectStatusByActivity, activityURI).Scan)
}

func (db *DB) UpdateStatusContent(id uuid.UUID, content string, sensitive bool, contentWarning string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateStatusContent, content, sensitive, contentWarning, time.Now(), id.String())
		return err
	})
}

func (db *DB) DeleteStatusById(id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlDeleteAttachmentsByStatus, id.String()); err != nil {
			return err
		}
		_, err := tx.Exec(sqlDeleteStatusById, id.String())
		return err
	})
}

func (db *DB) DeleteStatusesByAccountId(accountId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteStatusesByAccount, accountId.String())
		return err
	})
}

func (db *DB) ReadPublicStatusesByUsername(username string, limit, offset int) (error, *[]domain.Status) {
	rows, err := db.db.Query(sqlSelectPublicByUsername, username, limit, offset)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var statuses []domain.Status
	for rows.Next() {
		err, status := scanStatusRow(rows.Scan)
		if err != nil {
			return err, &statuses
		}
		statuses = append(statuses, *status)
	}
	if err = rows.Err(); err != nil {
		return err, &statuses
	}
	return nil, &statuses
}

func (db *DB) ReadRecentLocalStatuses(limit int) (error, *[]domain.Status) {
	rows, err := db.db.Query(sqlSelectRecentLocalPublic, limit)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var statuses []domain.Status
	for rows.Next() {
		err, status := scanStatusRow(rows.Scan)
		if err != nil {
			return err, &statuses
		}
		statuses = append(statuses, *status)
	}
	if err = rows.Err(); err != nil {
		return err, &statuses
	}
	return nil, &statuses
}

func (db *DB) CountPublicStatusesByUsername(username string) (int, error) {
	var count int
	err := db.db.QueryRow(sqlCountPublicByUsername, username).Scan(&count)
	return count, err
}

func (db *DB) IncrementFavouriteCount(statusId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlIncrementFavouriteCount, statusId.String())
		return err
	})
}

func (db *DB) DecrementFavouriteCount(statusId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDecrementFavouriteCount, statusId.String())
		return err
	})
}

func (db *DB) IncrementReblogCount(statusId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlIncrementReblogCount, statusId.String())
		return err
	})
}

func (db *DB) DecrementReblogCount(statusId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDecrementReblogCount, statusId.String())
		return err
	})
}

func (db *DB) IncrementReplyCountByURI(parentURI string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlIncrementReplyCountByURI, parentURI)
		return err
	})
}

// Attachment queries
const (
	sqlInsertAttachment          = `INSERT INTO attachments(id, status_id, url, media_type, description, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	sqlSelectAttachmentsByStatus = `SELECT id, status_id, url, media_type, description, created_at FROM attachments WHERE status_id = ? ORDER BY created_at ASC`
	sqlDeleteAttachmentsByStatus = `DELETE FROM attachments WHERE status_id = ?`
)

func (db *DB) CreateAttachment(att *domain.Attachment) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertAttachment,
			att.Id.String(),
			att.StatusId.String(),
			att.URL,
			att.MediaType,
			att.Description,
			att.CreatedAt,
		)
		return err
	})
}

func (db *DB) ReadAttachmentsByStatusId(statusId uuid.UUID) (error, *[]domain.Attachment) {
	rows, err := db.db.Query(sqlSelectAttachmentsByStatus, statusId.String())
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var attachments []domain.Attachment
	for rows.Next() {
		var att domain.Attachment
		var idStr, statusIdStr string
		if err := rows.Scan(&idStr, &statusIdStr, &att.URL, &att.MediaType, &att.Description, &att.CreatedAt); err != nil {
			return err, &attachments
		}
		att.Id, _ = uuid.Parse(idStr)
		att.StatusId, _ = uuid.Parse(statusIdStr)
		attachments = append(attachments, att)
	}
	if err = rows.Err(); err != nil {
		return err, &attachments
	}
	return nil, &attachments
}

// Favourite queries
const (
	sqlInsertFavourite          = `INSERT INTO favourites(id, account_id, status_id, uri, created_at) VALUES (?, ?, ?, ?, ?)`
	sqlCountFavourite           = `SELECT COUNT(*) FROM favourites WHERE account_id = ? AND status_id = ?`
	sqlSelectFavouriteByAccount = `SELECT id, account_id, status_id, uri, created_at FROM favourites WHERE account_id = ? AND status_id = ?`
	sqlDeleteFavourite          = `DELETE FROM favourites WHERE account_id = ? AND status_id = ?`
)

func (db *DB) CreateFavourite(fav *domain.Favourite) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertFavourite,
			fav.Id.String(),
			fav.AccountId.String(),
			fav.StatusId.String(),
			fav.URI,
			fav.CreatedAt,
		)
		return err
	})
}

func (db *DB) HasFavourite(accountId, statusId uuid.UUID) (bool, error) {
	var count int
	err := db.db.QueryRow(sqlCountFavourite, accountId.String(), statusId.String()).Scan(&count)
	return count > 0, err
}

func (db *DB) ReadFavourite(accountId, statusId uuid.UUID) (error, *domain.Favourite) {
	row := db.db.QueryRow(sqlSelectFavouriteByAccount, accountId.String(), statusId.String())
	var fav domain.Favourite
	var idStr, accountIdStr, statusIdStr string
	err := row.Scan(&idStr, &accountIdStr, &statusIdStr, &fav.URI, &fav.CreatedAt)
	if err != nil {
		return err, nil
	}
	fav.Id, _ = uuid.Parse(idStr)
	fav.AccountId, _ = uuid.Parse(accountIdStr)
	fav.StatusId, _ = uuid.Parse(statusIdStr)
	return nil, &fav
}

func (db *DB) DeleteFavourite(accountId, statusId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteFavourite, accountId.String(), statusId.String())
		return err
	})
}

// Reblog queries
const (
	sqlInsertReblog          = `INSERT INTO reblogs(id, account_id, status_id, uri, created_at) VALUES (?, ?, ?, ?, ?)`
	sqlCountReblog           = `SELECT COUNT(*) FROM reblogs WHERE account_id = ? AND status_id = ?`
	sqlSelectReblogByAccount = `SELECT id, account_id, status_id, uri, created_at FROM reblogs WHERE account_id = ? AND status_id = ?`
	sqlDeleteReblog          = `DELETE FROM reblogs WHERE account_id = ? AND status_id = ?`
)

func (db *DB) CreateReblog(reblog *domain.Reblog) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertReblog,
			reblog.Id.String(),
			reblog.AccountId.String(),
			reblog.StatusId.String(),
			reblog.URI,
			reblog.CreatedAt,
		)
		return err
	})
}

func (db *DB) HasReblog(accountId, statusId uuid.UUID) (bool, error) {
	var count int
	err := db.db.QueryRow(sqlCountReblog, accountId.String(), statusId.String()).Scan(&count)
	return count > 0, err
}

func (db *DB) ReadReblog(accountId, statusId uuid.UUID) (error, *domain.Reblog) {
	row := db.db.QueryRow(sqlSelectReblogByAccount, accountId.String(), statusId.String())
	var reblog domain.Reblog
	var idStr, accountIdStr, statusIdStr string
	err := row.Scan(&idStr, &accountIdStr, &statusIdStr, &reblog.URI, &reblog.CreatedAt)
	if err != nil {
		return err, nil
	}
	reblog.Id, _ = uuid.Parse(idStr)
	reblog.AccountId, _ = uuid.Parse(accountIdStr)
	reblog.StatusId, _ = uuid.Parse(statusIdStr)
	return nil, &reblog
}

func (db *DB) DeleteReblog(accountId, statusId uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteReblog, accountId.String(), statusId.String())
		return err
	})
}

// Activity bookkeeping queries
const (
	sqlInsertActivity            = `INSERT INTO activities(id, activity_uri, activity_type, actor_uri, object_uri, raw_json, processed, local, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	sqlUpdateActivity            = `UPDATE activities SET raw_json = ?, processed = ?, object_uri = ? WHERE id = ?`
	sqlSelectActivityColumns     = `id, activity_uri, activity_type, actor_uri, object_uri, raw_json, processed, local, created_at`
	sqlSelectActivityByURI       = `SELECT ` + sqlSelectActivityColumns + ` FROM activities WHERE activity_uri = ?`
	sqlSelectActivityByObjectURI = `SELECT ` + sqlSelectActivityColumns + ` FROM activities WHERE object_uri = ?`
	sqlDeleteActivityById        = `DELETE FROM activities WHERE id = ?`
)

func (db *DB) CreateActivity(activity *domain.Activity) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertActivity,
			activity.Id.String(),
			activity.ActivityURI,
			activity.ActivityType,
			activity.ActorURI,
			activity.ObjectURI,
			activity.RawJSON,
			activity.Processed,
			activity.Local,
			activity.CreatedAt,
		)
		return err
	})
}

func (db *DB) UpdateActivity(activity *domain.Activity) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateActivity,
			activity.RawJSON,
			activity.Processed,
			activity.ObjectURI,
			activity.Id.String(),
		)
		return err
	})
}

func scanActivity(row *sql.Row) (error, *domain.Activity) {
	var activity domain.Activity
	var idStr string
	err := row.Scan(
		&idStr,
		&activity.ActivityURI,
		&activity.ActivityType,
		&activity.ActorURI,
		&activity.ObjectURI,
		&activity.RawJSON,
		&activity.Processed,
		&activity.Local,
		&activity.CreatedAt,
	)
	if err != nil {
		return err, nil
	}
	activity.Id, _ = uuid.Parse(idStr)
	return nil, &activity
}

func (db *DB) ReadActivityByURI(uri string) (error, *domain.Activity) {
	return scanActivity(db.db.QueryRow(sqlSelectActivityByURI, uri))
}

func (db *DB) ReadActivityByObjectURI(objectURI string) (error, *domain.Activity) {
	return scanActivity(db.db.QueryRow(sqlSelectActivityByObjectURI, objectURI))
}

func (db *DB) DeleteActivity(id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteActivityById, id.String())
		return err
	})
}

// Notification and mention queries
const (
	sqlInsertNotification = `INSERT INTO notifications(id, account_id, notification_type, actor_id, actor_username, actor_domain, status_id, status_uri, read, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	sqlInsertMention      = `INSERT INTO mentions(id, status_id, mentioned_actor_uri, mentioned_username, mentioned_domain, created_at) VALUES (?, ?, ?, ?, ?, ?)`
)

func (db *DB) CreateNotification(notification *domain.Notification) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertNotification,
			notification.Id.String(),
			notification.AccountId.String(),
			string(notification.NotificationType),
			notification.ActorId.String(),
			notification.ActorUsername,
			notification.ActorDomain,
			notification.StatusId.String(),
			notification.StatusURI,
			notification.Read,
			notification.CreatedAt,
		)
		return err
	})
}

func (db *DB) CreateMention(mention *domain.Mention) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertMention,
			mention.Id.String(),
			mention.StatusId.String(),
			mention.MentionedActorURI,
			mention.MentionedUsername,
			mention.MentionedDomain,
			mention.CreatedAt,
		)
		return err
	})
}
