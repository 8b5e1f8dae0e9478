package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/hearth-archive/hearth/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

const deliveryColumns = `id, trigger_kind, trigger_date, memory_ids, delivered_at, viewed_at, dismissed_at, created_at`

type deliveryRepository struct {
	db *sql.DB
}

func (r *deliveryRepository) Claim(ctx context.Context, record *model.DeliveryRecord) (*model.DeliveryRecord, bool, error) {
	created := record.Copy()
	if created.ID == "" {
		created.ID = model.NewDeliveryID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	memoryIDs, err := json.Marshal(created.MemoryIDs)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to encode memory ids")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `INSERT INTO deliveries (`+deliveryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (trigger_kind, trigger_date) DO NOTHING`,
		string(created.ID), string(created.Kind), created.Date.String(), string(memoryIDs),
		formatNullTime(created.DeliveredAt), formatNullTime(created.ViewedAt), formatNullTime(created.DismissedAt),
		formatTime(created.CreatedAt))
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to insert delivery", goerr.V("key", created.Key().String()))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to read affected rows")
	}

	stored, err := scanDelivery(tx.QueryRowContext(ctx,
		`SELECT `+deliveryColumns+` FROM deliveries WHERE trigger_kind = ? AND trigger_date = ?`,
		string(created.Kind), created.Date.String()))
	if err != nil {
		return nil, false, goerr.Wrap(err, "failed to read claimed delivery", goerr.V("key", created.Key().String()))
	}

	if err := tx.Commit(); err != nil {
		return nil, false, goerr.Wrap(err, "failed to commit delivery claim")
	}
	return stored, affected > 0, nil
}

func (r *deliveryRepository) Get(ctx context.Context, id model.DeliveryID) (*model.DeliveryRecord, error) {
	rec, err := scanDelivery(r.db.QueryRowContext(ctx,
		`SELECT `+deliveryColumns+` FROM deliveries WHERE id = ?`, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(ErrNotFound, "delivery not found", goerr.V("deliveryID", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get delivery", goerr.V("deliveryID", id))
	}
	return rec, nil
}

func (r *deliveryRepository) FindByKey(ctx context.Context, key model.TriggerKey) (*model.DeliveryRecord, error) {
	rec, err := scanDelivery(r.db.QueryRowContext(ctx,
		`SELECT `+deliveryColumns+` FROM deliveries WHERE trigger_kind = ? AND trigger_date = ?`,
		string(key.Kind), key.Date.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find delivery", goerr.V("key", key.String()))
	}
	return rec, nil
}

func (r *deliveryRepository) List(ctx context.Context, limit int) ([]*model.DeliveryRecord, error) {
	q := `SELECT ` + deliveryColumns + ` FROM deliveries ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list deliveries")
	}
	defer rows.Close()

	records := make([]*model.DeliveryRecord, 0)
	for rows.Next() {
		rec, err := scanDelivery(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan delivery")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate deliveries")
	}
	return records, nil
}

func (r *deliveryRepository) Update(ctx context.Context, id model.DeliveryID, fn func(record *model.DeliveryRecord) error) (*model.DeliveryRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := scanDelivery(tx.QueryRowContext(ctx,
		`SELECT `+deliveryColumns+` FROM deliveries WHERE id = ?`, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(ErrNotFound, "delivery not found", goerr.V("deliveryID", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get delivery", goerr.V("deliveryID", id))
	}

	if err := fn(rec); err != nil {
		return nil, err
	}

	memoryIDs, err := json.Marshal(rec.MemoryIDs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode memory ids")
	}
	_, err = tx.ExecContext(ctx, `UPDATE deliveries
		SET memory_ids = ?, delivered_at = ?, viewed_at = ?, dismissed_at = ?
		WHERE id = ?`,
		string(memoryIDs), formatNullTime(rec.DeliveredAt), formatNullTime(rec.ViewedAt),
		formatNullTime(rec.DismissedAt), string(id))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update delivery", goerr.V("deliveryID", id))
	}

	if err := tx.Commit(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit delivery update", goerr.V("deliveryID", id))
	}

	return r.Get(ctx, id)
}

func (r *deliveryRepository) DeleteCreatedBefore(ctx context.Context, t time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM deliveries WHERE created_at < ?`, formatTime(t))
	if err != nil {
		return 0, goerr.Wrap(err, "failed to delete deliveries", goerr.V("before", t))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to read affected rows")
	}
	return int(n), nil
}

func scanDelivery(s scanner) (*model.DeliveryRecord, error) {
	var (
		rec                              model.DeliveryRecord
		id, kind, date, memoryIDs        string
		deliveredAt, viewedAt, dismissed sql.NullString
		createdAt                        string
	)
	if err := s.Scan(&id, &kind, &date, &memoryIDs, &deliveredAt, &viewedAt, &dismissed, &createdAt); err != nil {
		return nil, err
	}

	d, err := model.ParseDate(date)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid trigger date", goerr.V("deliveryID", id))
	}
	if err := json.Unmarshal([]byte(memoryIDs), &rec.MemoryIDs); err != nil {
		return nil, goerr.Wrap(err, "failed to decode memory ids", goerr.V("deliveryID", id))
	}

	rec.ID = model.DeliveryID(id)
	rec.Kind = types.TriggerKind(kind)
	rec.Date = d
	if rec.DeliveredAt, err = parseNullTime(deliveredAt); err != nil {
		return nil, err
	}
	if rec.ViewedAt, err = parseNullTime(viewedAt); err != nil {
		return nil, err
	}
	if rec.DismissedAt, err = parseNullTime(dismissed); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &rec, nil
}
