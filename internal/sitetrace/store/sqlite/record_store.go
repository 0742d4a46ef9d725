// Package sqlite holds the durable RecordStore.  All writes go through
// the db.Worker so every mutation and its audit entries commit in one
// transaction.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	dbpkg "github.com/sitetrace/sitetrace/internal/db"
	"github.com/sitetrace/sitetrace/internal/sitetrace/store"
	"github.com/sitetrace/sitetrace/internal/sitetrace/types"
	"github.com/sitetrace/sitetrace/internal/sitetrace/workflow"
)

type RecordStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewRecordStore(conn *sql.DB, writer *dbpkg.Worker) *RecordStore {
	return &RecordStore{db: conn, writer: writer}
}

func (s *RecordStore) Create(ctx context.Context, rec types.Record, actor string) (types.Record, error) {
	now := time.Now().UTC()
	if err := store.PrepareNew(&rec, now); err != nil {
		return types.Record{}, err
	}

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM records WHERE id = ?;`, rec.ID).Scan(&exists)
		if err == nil {
			return fmt.Errorf("%w: %s", store.ErrDuplicateID, rec.ID)
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("Create check id: %w", err)
		}

		if rec.Number == "" {
			var seq int64
			err := tx.QueryRowContext(ctx, `
INSERT INTO record_counters(kind, year, last) VALUES (?, ?, 1)
ON CONFLICT(kind, year) DO UPDATE SET last = last + 1
RETURNING last;
`, string(rec.Kind), now.Year()).Scan(&seq)
			if err != nil {
				return fmt.Errorf("Create next number: %w", err)
			}
			rec.Number = store.FormatNumber(rec.Kind, now.Year(), seq)
		}

		if err := insertRecord(ctx, tx, rec); err != nil {
			return err
		}

		created := store.NewEntry(rec.ID, actor, types.ActionCreated)
		created.Detail = fmt.Sprintf("%s %s created", rec.Kind, rec.Number)
		return insertAudit(ctx, tx, created)
	})
	if err != nil {
		return types.Record{}, err
	}
	return rec, nil
}

func (s *RecordStore) Get(ctx context.Context, id string) (types.Record, error) {
	row := s.db.QueryRowContext(ctx, selectRecord+` WHERE id = ?;`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return types.Record{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return types.Record{}, fmt.Errorf("Get %s: %w", id, err)
	}
	return rec, nil
}

func (s *RecordStore) Update(ctx context.Context, id string, patch store.RecordPatch, actor string) (types.Record, error) {
	var out types.Record

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		rec, err := getForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		res, err := store.ApplyPatch(&rec, patch)
		if err != nil {
			return err
		}
		if !res.StatusChanged && !res.OtherChanged {
			out = rec
			return nil
		}
		store.Touch(&rec, time.Now().UTC())

		if err := updateRecord(ctx, tx, rec); err != nil {
			return err
		}

		var entry types.AuditEntry
		if res.StatusChanged {
			entry = store.StatusChangeEntry(id, actor, res.From, res.To)
		} else {
			entry = store.NewEntry(id, actor, types.ActionUpdated)
		}
		if err := insertAudit(ctx, tx, entry); err != nil {
			return err
		}

		out = rec
		return nil
	})
	if err != nil {
		return types.Record{}, err
	}
	return out, nil
}

func (s *RecordStore) Mutate(ctx context.Context, id string, fn store.MutateFn, entries ...types.AuditEntry) (types.Record, error) {
	var out types.Record

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		rec, err := getForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		before := rec.Status
		if err := fn(&rec); err != nil {
			return err
		}
		if rec.Status != before && !workflow.CanTransition(before, rec.Status) {
			return fmt.Errorf("%w: %s -> %s", store.ErrInvalidTransition, before, rec.Status)
		}
		if err := store.CheckDetails(rec); err != nil {
			return err
		}
		store.Touch(&rec, time.Now().UTC())

		if err := updateRecord(ctx, tx, rec); err != nil {
			return err
		}
		for _, entry := range entries {
			entry.RecordID = id
			if err := insertAudit(ctx, tx, entry); err != nil {
				return err
			}
		}

		out = rec
		return nil
	})
	if err != nil {
		return types.Record{}, err
	}
	return out, nil
}

func (s *RecordStore) AppendAudit(ctx context.Context, id string, entry types.AuditEntry) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := recordExists(ctx, tx, id); err != nil {
			return err
		}
		if entry.ID == "" {
			entry.ID = uuid.New().String()
		}
		if entry.At.IsZero() {
			entry.At = time.Now().UTC()
		}
		entry.RecordID = id
		return insertAudit(ctx, tx, entry)
	})
}

func (s *RecordStore) AuditLog(ctx context.Context, id string) ([]types.AuditEntry, error) {
	if err := s.exists(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, record_id, at_ms, actor, action, from_status, to_status, detail
FROM audit_entries
WHERE record_id = ?
ORDER BY seq DESC;
`, id)
	if err != nil {
		return nil, fmt.Errorf("AuditLog query: %w", err)
	}
	defer rows.Close()

	var out []types.AuditEntry
	for rows.Next() {
		var (
			e        types.AuditEntry
			atMs     int64
			from, to sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.RecordID, &atMs, &e.Actor, &e.Action, &from, &to, &e.Detail); err != nil {
			return nil, fmt.Errorf("AuditLog scan: %w", err)
		}
		e.At = time.UnixMilli(atMs).UTC()
		if from.Valid {
			st := types.State(from.String)
			e.FromStatus = &st
		}
		if to.Valid {
			st := types.State(to.String)
			e.ToStatus = &st
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *RecordStore) List(ctx context.Context, filter store.RecordFilter) ([]types.Record, error) {
	// Cheap filters go to SQL; search and due-date cutoffs are applied
	// through the shared predicate so both backends agree exactly.
	query := selectRecord
	var (
		clauses []string
		args    []any
	)
	if filter.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Assignee != "" {
		clauses = append(clauses, "assignee = ?")
		args = append(args, filter.Assignee)
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY created_at_ms DESC, number DESC;"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List query: %w", err)
	}
	defer rows.Close()

	var out []types.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("List scan: %w", err)
		}
		if filter.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out, rows.Err()
}

func (s *RecordStore) Delete(ctx context.Context, id string) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		// Audit, link and evidence rows cascade with the record.
		res, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?;`, id)
		if err != nil {
			return fmt.Errorf("Delete: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("Delete rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", store.ErrNotFound, id)
		}
		return nil
	})
}

func (s *RecordStore) AddLink(ctx context.Context, link types.LinkedRecord) (types.LinkedRecord, error) {
	if link.TargetID == "" {
		return types.LinkedRecord{}, fmt.Errorf("%w: link target id is required", store.ErrValidation)
	}
	if link.ID == "" {
		link.ID = uuid.New().String()
	}
	if link.AddedAt.IsZero() {
		link.AddedAt = time.Now().UTC()
	}

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := recordExists(ctx, tx, link.RecordID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO linked_records(id, record_id, target_id, target_kind, target_number, relation, added_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?);
`, link.ID, link.RecordID, link.TargetID, string(link.TargetKind), link.TargetNumber, link.Relation,
			link.AddedAt.UnixMilli())
		if err != nil {
			return fmt.Errorf("AddLink insert: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.LinkedRecord{}, err
	}
	return link, nil
}

func (s *RecordStore) Links(ctx context.Context, id string) ([]types.LinkedRecord, error) {
	if err := s.exists(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, record_id, target_id, target_kind, target_number, relation, added_at_ms
FROM linked_records
WHERE record_id = ?
ORDER BY seq ASC;
`, id)
	if err != nil {
		return nil, fmt.Errorf("Links query: %w", err)
	}
	defer rows.Close()

	var out []types.LinkedRecord
	for rows.Next() {
		var (
			l    types.LinkedRecord
			kind string
			atMs int64
		)
		if err := rows.Scan(&l.ID, &l.RecordID, &l.TargetID, &kind, &l.TargetNumber, &l.Relation, &atMs); err != nil {
			return nil, fmt.Errorf("Links scan: %w", err)
		}
		l.TargetKind = types.RecordKind(kind)
		l.AddedAt = time.UnixMilli(atMs).UTC()
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *RecordStore) AddEvidence(ctx context.Context, ev types.Evidence) (types.Evidence, error) {
	if ev.FileName == "" {
		return types.Evidence{}, fmt.Errorf("%w: evidence file name is required", store.ErrValidation)
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.AddedAt.IsZero() {
		ev.AddedAt = time.Now().UTC()
	}

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := recordExists(ctx, tx, ev.RecordID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO evidence(id, record_id, file_name, content_type, size_bytes, uploaded_by, note, added_at_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`, ev.ID, ev.RecordID, ev.FileName, ev.ContentType, ev.SizeBytes, ev.UploadedBy, ev.Note,
			ev.AddedAt.UnixMilli())
		if err != nil {
			return fmt.Errorf("AddEvidence insert: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.Evidence{}, err
	}
	return ev, nil
}

func (s *RecordStore) Evidence(ctx context.Context, id string) ([]types.Evidence, error) {
	if err := s.exists(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, record_id, file_name, content_type, size_bytes, uploaded_by, note, added_at_ms
FROM evidence
WHERE record_id = ?
ORDER BY seq ASC;
`, id)
	if err != nil {
		return nil, fmt.Errorf("Evidence query: %w", err)
	}
	defer rows.Close()

	var out []types.Evidence
	for rows.Next() {
		var (
			ev   types.Evidence
			atMs int64
		)
		if err := rows.Scan(&ev.ID, &ev.RecordID, &ev.FileName, &ev.ContentType, &ev.SizeBytes,
			&ev.UploadedBy, &ev.Note, &atMs); err != nil {
			return nil, fmt.Errorf("Evidence scan: %w", err)
		}
		ev.AddedAt = time.UnixMilli(atMs).UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *RecordStore) exists(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM records WHERE id = ?;`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("exists %s: %w", id, err)
	}
	return nil
}
