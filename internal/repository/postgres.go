package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/contracts-tracker/internal/common"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS contract_results (
	job_id          TEXT PRIMARY KEY,
	filename        TEXT NOT NULL DEFAULT '',
	contract_number TEXT NOT NULL DEFAULT '',
	contract_date   TEXT NOT NULL DEFAULT '',
	customer_name   TEXT NOT NULL DEFAULT '',
	contractor_name TEXT NOT NULL DEFAULT '',
	amount_incl_vat TEXT NOT NULL DEFAULT '',
	payload         JSONB NOT NULL,
	archived_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_contract_results_number ON contract_results(contract_number);`

type PostgresArchive struct {
	pool *pgxpool.Pool
}

// NewPostgresArchive creates the results table when missing.
func NewPostgresArchive(ctx context.Context, pool *pgxpool.Pool) (*PostgresArchive, error) {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, common.NewAppError(common.CodeStorage, "create contract_results", err)
	}
	return &PostgresArchive{pool: pool}, nil
}

func (a *PostgresArchive) Save(ctx context.Context, r *ArchivedResult) error {
	const query = `INSERT INTO contract_results
		(job_id, filename, contract_number, contract_date, customer_name, contractor_name, amount_incl_vat, payload, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (job_id) DO UPDATE SET
			filename = EXCLUDED.filename,
			contract_number = EXCLUDED.contract_number,
			contract_date = EXCLUDED.contract_date,
			customer_name = EXCLUDED.customer_name,
			contractor_name = EXCLUDED.contractor_name,
			amount_incl_vat = EXCLUDED.amount_incl_vat,
			payload = EXCLUDED.payload,
			archived_at = EXCLUDED.archived_at`

	if r.ArchivedAt.IsZero() {
		r.ArchivedAt = time.Now().UTC()
	}
	// pgx encodes map[string]any as json for a jsonb column
	_, err := a.pool.Exec(ctx, query,
		r.JobID, r.Filename, r.ContractNumber, r.ContractDate,
		r.CustomerName, r.ContractorName, r.AmountInclVAT,
		r.Payload, r.ArchivedAt,
	)
	if err != nil {
		return common.NewAppError(common.CodeStorage, "save result "+r.JobID, err)
	}
	return nil
}

func (a *PostgresArchive) Get(ctx context.Context, jobID string) (*ArchivedResult, error) {
	const query = `SELECT job_id, filename, contract_number, contract_date, customer_name,
		contractor_name, amount_incl_vat, payload, archived_at
		FROM contract_results WHERE job_id = $1`

	r := &ArchivedResult{}
	err := a.pool.QueryRow(ctx, query, jobID).Scan(
		&r.JobID, &r.Filename, &r.ContractNumber, &r.ContractDate, &r.CustomerName,
		&r.ContractorName, &r.AmountInclVAT, &r.Payload, &r.ArchivedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("archived result %s: %w", jobID, common.ErrNotFound)
	}
	if err != nil {
		return nil, common.NewAppError(common.CodeStorage, "get result "+jobID, err)
	}
	return r, nil
}

func (a *PostgresArchive) Close() error {
	a.pool.Close()
	return nil
}
