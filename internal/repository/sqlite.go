package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Register sqlite driver

	"github.com/joseph-ayodele/contracts-tracker/internal/common"
)

//go:embed migrations/001_contract_results.sql
var sqliteMigration string

// OpenSQLite opens the database, applies pragmas and runs the migration.
func OpenSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteMigration); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

type SQLiteArchive struct {
	db *sql.DB
}

func NewSQLiteArchive(db *sql.DB) *SQLiteArchive {
	return &SQLiteArchive{db: db}
}

func (a *SQLiteArchive) Save(ctx context.Context, r *ArchivedResult) error {
	const query = `INSERT INTO contract_results
		(job_id, filename, contract_number, contract_date, customer_name, contractor_name, amount_incl_vat, payload, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			filename = excluded.filename,
			contract_number = excluded.contract_number,
			contract_date = excluded.contract_date,
			customer_name = excluded.customer_name,
			contractor_name = excluded.contractor_name,
			amount_incl_vat = excluded.amount_incl_vat,
			payload = excluded.payload,
			archived_at = excluded.archived_at`

	payload, err := json.Marshal(r.Payload)
	if err != nil {
		return common.NewAppError(common.CodeStorage, "encode payload", err)
	}
	if r.ArchivedAt.IsZero() {
		r.ArchivedAt = time.Now().UTC()
	}
	_, err = a.db.ExecContext(ctx, query,
		r.JobID, r.Filename, r.ContractNumber, r.ContractDate,
		r.CustomerName, r.ContractorName, r.AmountInclVAT,
		string(payload), r.ArchivedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return common.NewAppError(common.CodeStorage, "save result "+r.JobID, err)
	}
	return nil
}

func (a *SQLiteArchive) Get(ctx context.Context, jobID string) (*ArchivedResult, error) {
	const query = `SELECT job_id, filename, contract_number, contract_date, customer_name,
		contractor_name, amount_incl_vat, payload, archived_at
		FROM contract_results WHERE job_id = ?`

	r := &ArchivedResult{}
	var payload, archivedAt string
	err := a.db.QueryRowContext(ctx, query, jobID).Scan(
		&r.JobID, &r.Filename, &r.ContractNumber, &r.ContractDate, &r.CustomerName,
		&r.ContractorName, &r.AmountInclVAT, &payload, &archivedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("archived result %s: %w", jobID, common.ErrNotFound)
	}
	if err != nil {
		return nil, common.NewAppError(common.CodeStorage, "get result "+jobID, err)
	}
	if err := json.Unmarshal([]byte(payload), &r.Payload); err != nil {
		return nil, common.NewAppError(common.CodeStorage, "decode payload "+jobID, err)
	}
	r.ArchivedAt, _ = time.Parse(time.RFC3339, archivedAt)
	return r, nil
}

func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}
