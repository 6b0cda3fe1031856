package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vetscribe/vetscribe/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *repoPG) Insert(ctx context.Context, e *Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	keys, err := json.Marshal(e.SectionKeys)
	if err != nil {
		return fmt.Errorf("marshal section keys: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO report_audit_event (id, consult_id, patient_id, report_type, input_mode, section_keys, finalized_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.ConsultID, e.PatientID, e.ReportType, e.InputMode, keys, e.FinalizedAt,
	)
	return err
}

func (r *repoPG) ListByConsult(ctx context.Context, consultID uuid.UUID) ([]*Event, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, consult_id, patient_id, report_type, input_mode, section_keys, finalized_at, created_at
		FROM report_audit_event
		WHERE consult_id = $1
		ORDER BY created_at`, consultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		var keys []byte
		if err := rows.Scan(&e.ID, &e.ConsultID, &e.PatientID, &e.ReportType, &e.InputMode, &keys, &e.FinalizedAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(keys) > 0 {
			if err := json.Unmarshal(keys, &e.SectionKeys); err != nil {
				return nil, fmt.Errorf("unmarshal section keys: %w", err)
			}
		}
		events = append(events, &e)
	}
	return events, nil
}
