package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sitetrace/sitetrace/internal/sitetrace/store"
	"github.com/sitetrace/sitetrace/internal/sitetrace/types"
)

const selectRecord = `
SELECT id, number, kind, status, priority, owner, assignee, title, location,
       description, details, due_at_ms, created_at_ms, updated_at_ms, version
FROM records`

// recordDetails is the JSON envelope for kind-specific fields.  At most
// one member is non-nil, matching the record's kind.
type recordDetails struct {
	Permit      *types.PermitDetails      `json:"permit,omitempty"`
	Capa        *types.CapaDetails        `json:"capa,omitempty"`
	Observation *types.ObservationDetails `json:"observation,omitempty"`
	JSA         *types.JSADetails         `json:"jsa,omitempty"`
}

func encodeDetails(rec types.Record) (any, error) {
	d := recordDetails{
		Permit:      rec.Permit,
		Capa:        rec.Capa,
		Observation: rec.Observation,
		JSA:         rec.JSA,
	}
	if d.Permit == nil && d.Capa == nil && d.Observation == nil && d.JSA == nil {
		return nil, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode details: %w", err)
	}
	return string(b), nil
}

func decodeDetails(rec *types.Record, raw sql.NullString) error {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var d recordDetails
	if err := json.Unmarshal([]byte(raw.String), &d); err != nil {
		return fmt.Errorf("decode details for %s: %w", rec.ID, err)
	}
	rec.Permit = d.Permit
	rec.Capa = d.Capa
	rec.Observation = d.Observation
	rec.JSA = d.JSA
	return nil
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (types.Record, error) {
	var rec types.Record
	var kind, status, priority string
	var details sql.NullString
	var dueMs sql.NullInt64
	var createdMs, updatedMs int64

	err := sc.Scan(
		&rec.ID, &rec.Number, &kind, &status, &priority, &rec.Owner, &rec.Assignee,
		&rec.Title, &rec.Location, &rec.Description, &details, &dueMs,
		&createdMs, &updatedMs, &rec.Version,
	)
	if err != nil {
		return types.Record{}, err
	}

	rec.Kind = types.RecordKind(kind)
	rec.Status = types.State(status)
	rec.Priority = types.Priority(priority)
	rec.CreatedAt = time.UnixMilli(createdMs).UTC()
	rec.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	if dueMs.Valid {
		due := time.UnixMilli(dueMs.Int64).UTC()
		rec.DueDate = &due
	}
	if err := decodeDetails(&rec, details); err != nil {
		return types.Record{}, err
	}
	return rec, nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, rec types.Record) error {
	details, err := encodeDetails(rec)
	if err != nil {
		return err
	}
	var dueMs any
	if rec.DueDate != nil {
		dueMs = rec.DueDate.UTC().UnixMilli()
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO records(
  id, number, kind, status, priority, owner, assignee, title, location,
  description, details, due_at_ms, created_at_ms, updated_at_ms, version
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
		rec.ID, rec.Number, string(rec.Kind), string(rec.Status), string(rec.Priority),
		rec.Owner, rec.Assignee, rec.Title, rec.Location, rec.Description,
		details, dueMs, rec.CreatedAt.UnixMilli(), rec.UpdatedAt.UnixMilli(), rec.Version,
	); err != nil {
		return fmt.Errorf("insert record %s: %w", rec.ID, err)
	}
	return nil
}

func updateRecord(ctx context.Context, tx *sql.Tx, rec types.Record) error {
	details, err := encodeDetails(rec)
	if err != nil {
		return err
	}
	var dueMs any
	if rec.DueDate != nil {
		dueMs = rec.DueDate.UTC().UnixMilli()
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE records SET
  status = ?, priority = ?, owner = ?, assignee = ?, title = ?, location = ?,
  description = ?, details = ?, due_at_ms = ?, updated_at_ms = ?, version = ?
WHERE id = ?;
`,
		string(rec.Status), string(rec.Priority), rec.Owner, rec.Assignee, rec.Title,
		rec.Location, rec.Description, details, dueMs, rec.UpdatedAt.UnixMilli(),
		rec.Version, rec.ID,
	); err != nil {
		return fmt.Errorf("update record %s: %w", rec.ID, err)
	}
	return nil
}

func insertAudit(ctx context.Context, tx *sql.Tx, e types.AuditEntry) error {
	var from, to any
	if e.FromStatus != nil {
		from = string(*e.FromStatus)
	}
	if e.ToStatus != nil {
		to = string(*e.ToStatus)
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO audit_entries(id, record_id, at_ms, actor, action, from_status, to_status, detail)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`,
		e.ID, e.RecordID, e.At.UTC().UnixMilli(), e.Actor, string(e.Action), from, to, e.Detail,
	); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func recordExists(ctx context.Context, tx *sql.Tx, id string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM records WHERE id = ?;`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("record exists %s: %w", id, err)
	}
	return nil
}

func getForUpdate(ctx context.Context, tx *sql.Tx, id string) (types.Record, error) {
	row := tx.QueryRowContext(ctx, selectRecord+` WHERE id = ?;`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return types.Record{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return types.Record{}, fmt.Errorf("get for update %s: %w", id, err)
	}
	return rec, nil
}
