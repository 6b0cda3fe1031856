package consult

import (
	"context"
	"encoding/json"
	"errors"
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

const consultCols = `id, patient_id, status, report_type, input_mode, original_input,
	sections, version_id, started_at, finalized_at, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, c *Consult) error {
	c.ID = uuid.New()
	if c.Status == "" {
		c.Status = StatusDraft
	}
	if c.Sections == nil {
		c.Sections = map[string]string{}
	}
	sections, err := json.Marshal(c.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO consult (id, patient_id, status, report_type, input_mode, sections, started_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW())`,
		c.ID, c.PatientID, c.Status, c.ReportType, c.InputMode, sections,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Consult, error) {
	return scanConsult(r.conn(ctx).QueryRow(ctx, `SELECT `+consultCols+` FROM consult WHERE id = $1`, id))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consult, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM consult WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+consultCols+` FROM consult
		WHERE patient_id = $1
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var consults []*Consult
	for rows.Next() {
		c, err := scanConsult(rows)
		if err != nil {
			return nil, 0, err
		}
		consults = append(consults, c)
	}
	return consults, total, nil
}

func (r *repoPG) UpdateSections(ctx context.Context, id uuid.UUID, sections map[string]string) error {
	data, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE consult SET sections = $2, updated_at = NOW() WHERE id = $1 AND status = 'draft'`,
		id, data)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var status string
		err := r.conn(ctx).QueryRow(ctx, `SELECT status FROM consult WHERE id = $1`, id).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("consult %s not found", id)
		}
		if err != nil {
			return err
		}
		return ErrFinalized
	}
	return nil
}

// The set-or-append branch lives in the statement itself so two concurrent
// captures serialize on the row instead of overwriting each other.
func (r *repoPG) MergeOriginalInput(ctx context.Context, id uuid.UUID, raw string) (bool, error) {
	var appended bool
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE consult SET
			original_input = CASE
				WHEN original_input IS NULL OR original_input = '' THEN $2
				ELSE original_input || E'\n\n' || $2
			END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING original_input <> $2`,
		id, raw).Scan(&appended)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("consult %s not found", id)
	}
	if err != nil {
		return false, err
	}
	return appended, nil
}

func (r *repoPG) SetInputMode(ctx context.Context, id uuid.UUID, mode string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE consult SET input_mode = $2, updated_at = NOW() WHERE id = $1`, id, mode)
	return err
}

func (r *repoPG) Finalize(ctx context.Context, id uuid.UUID, sections map[string]string) (*Consult, error) {
	data, err := json.Marshal(sections)
	if err != nil {
		return nil, fmt.Errorf("marshal sections: %w", err)
	}
	return scanConsult(r.conn(ctx).QueryRow(ctx, `
		UPDATE consult SET
			sections = $2,
			finalized_at = NOW(),
			status = 'finalized',
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+consultCols, id, data))
}

func (r *repoPG) AppendSegments(ctx context.Context, consultID uuid.UUID, segments []*TranscriptionSegment) error {
	if len(segments) == 0 {
		return nil
	}
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		var base int
		err := r.conn(ctx).QueryRow(ctx,
			`SELECT COALESCE(MAX(seq), 0) FROM transcription_segment WHERE consult_id = $1`,
			consultID).Scan(&base)
		if err != nil {
			return err
		}
		for i, s := range segments {
			s.ID = uuid.New()
			s.ConsultID = consultID
			s.Seq = base + i + 1
			_, err := r.conn(ctx).Exec(ctx, `
				INSERT INTO transcription_segment (id, consult_id, seq, text, speaker, start_sec, end_sec)
				VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				s.ID, s.ConsultID, s.Seq, s.Text, s.Speaker, s.StartSec, s.EndSec,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repoPG) ListSegments(ctx context.Context, consultID uuid.UUID) ([]*TranscriptionSegment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, consult_id, seq, text, speaker, start_sec, end_sec, created_at
		FROM transcription_segment
		WHERE consult_id = $1
		ORDER BY seq`, consultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segments []*TranscriptionSegment
	for rows.Next() {
		var s TranscriptionSegment
		if err := rows.Scan(&s.ID, &s.ConsultID, &s.Seq, &s.Text, &s.Speaker, &s.StartSec, &s.EndSec, &s.CreatedAt); err != nil {
			return nil, err
		}
		segments = append(segments, &s)
	}
	return segments, nil
}

func (r *repoPG) AddLineage(ctx context.Context, l *RegenerationLineage) error {
	l.ID = uuid.New()
	data, err := json.Marshal(l.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO regeneration_lineage (id, consult_id, supersedes, instruction, sections)
			VALUES ($1,$2,$3,$4,$5)`,
			l.ID, l.ConsultID, l.Supersedes, l.Instruction, data,
		)
		if err != nil {
			return err
		}
		_, err = r.conn(ctx).Exec(ctx,
			`UPDATE consult SET version_id = $2, updated_at = NOW() WHERE id = $1`,
			l.ConsultID, l.ID)
		return err
	})
}

func (r *repoPG) ListLineage(ctx context.Context, consultID uuid.UUID) ([]*RegenerationLineage, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, consult_id, supersedes, instruction, sections, created_at
		FROM regeneration_lineage
		WHERE consult_id = $1
		ORDER BY created_at`, consultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*RegenerationLineage
	for rows.Next() {
		l, err := scanLineage(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, l)
	}
	return entries, nil
}

func (r *repoPG) LatestLineage(ctx context.Context, consultID uuid.UUID) (*RegenerationLineage, error) {
	l, err := scanLineage(r.conn(ctx).QueryRow(ctx, `
		SELECT id, consult_id, supersedes, instruction, sections, created_at
		FROM regeneration_lineage
		WHERE consult_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, consultID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

func scanConsult(row pgx.Row) (*Consult, error) {
	var c Consult
	var sections []byte
	err := row.Scan(
		&c.ID, &c.PatientID, &c.Status, &c.ReportType, &c.InputMode, &c.OriginalInput,
		&sections, &c.VersionID, &c.StartedAt, &c.FinalizedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(sections) > 0 {
		if err := json.Unmarshal(sections, &c.Sections); err != nil {
			return nil, fmt.Errorf("unmarshal sections: %w", err)
		}
	}
	if c.Sections == nil {
		c.Sections = map[string]string{}
	}
	return &c, nil
}

func scanLineage(row pgx.Row) (*RegenerationLineage, error) {
	var l RegenerationLineage
	var sections []byte
	err := row.Scan(&l.ID, &l.ConsultID, &l.Supersedes, &l.Instruction, &sections, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(sections) > 0 {
		if err := json.Unmarshal(sections, &l.Sections); err != nil {
			return nil, fmt.Errorf("unmarshal sections: %w", err)
		}
	}
	return &l, nil
}
