package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pictodon/pictodon/domain"
)

// Job queue storage. Jobs are claimed in ReadDueJobs order and either
// deleted on success or rescheduled with a bumped attempt count.
const (
	sqlInsertJob       = `INSERT INTO jobs(id, kind, payload, attempts, next_attempt_at, last_error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	sqlSelectDueJobs   = `SELECT id, kind, payload, attempts, next_attempt_at, last_error, created_at FROM jobs WHERE next_attempt_at <= ? ORDER BY next_attempt_at ASC LIMIT ?`
	sqlUpdateJobRetry  = `UPDATE jobs SET attempts = ?, next_attempt_at = ?, last_error = ? WHERE id = ?`
	sqlDeleteJobById   = `DELETE FROM jobs WHERE id = ?`
	sqlCountJobs       = `SELECT COUNT(*) FROM jobs`
	sqlCountJobsByKind = `SELECT COUNT(*) FROM jobs WHERE kind = ?`
)

func (db *DB) EnqueueJob(job *domain.Job) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertJob,
			job.Id.String(),
			job.Kind,
			string(job.Payload),
			job.Attempts,
			job.NextAttemptAt,
			job.LastError,
			job.CreatedAt,
		)
		return err
	})
}

func (db *DB) ReadDueJobs(now time.Time, limit int) (error, *[]domain.Job) {
	rows, err := db.db.Query(sqlSelectDueJobs, now, limit)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		var job domain.Job
		var idStr, payload string
		if err := rows.Scan(&idStr, &job.Kind, &payload, &job.Attempts, &job.NextAttemptAt, &job.LastError, &job.CreatedAt); err != nil {
			return err, &jobs
		}
		job.Id, _ = uuid.Parse(idStr)
		job.Payload = []byte(payload)
		jobs = append(jobs, job)
	}
	if err = rows.Err(); err != nil {
		return err, &jobs
	}
	return nil, &jobs
}

func (db *DB) RescheduleJob(id uuid.UUID, attempts int, nextAttemptAt time.Time, lastError string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateJobRetry, attempts, nextAttemptAt, lastError, id.String())
		return err
	})
}

func (db *DB) DeleteJob(id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteJobById, id.String())
		return err
	})
}

func (db *DB) CountJobs() (int, error) {
	var count int
	err := db.db.QueryRow(sqlCountJobs).Scan(&count)
	return count, err
}

func (db *DB) CountJobsByKind(kind string) (int, error) {
	var count int
	err := db.db.QueryRow(sqlCountJobsByKind, kind).Scan(&count)
	return count, err
}
