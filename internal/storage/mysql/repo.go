package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"staybook/internal/domain"
)

// Repo is the payments and upload ledger.
type Repo struct{ db *sql.DB }

var _ domain.LedgerRepository = (*Repo)(nil)

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// Open connects and pings; the DSN must carry parseTime=true.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	return db, nil
}

type scanner interface{ Scan(dest ...any) error }

func scanPayment(s scanner) (domain.PaymentRecord, error) {
	var p domain.PaymentRecord
	err := s.Scan(&p.SessionID, &p.BookingID, &p.Amount, &p.Currency, &p.Status, &p.Paid, &p.ConfirmedAt)
	return p, err
}

func (r *Repo) GetPayment(ctx context.Context, sessionID string) (domain.PaymentRecord, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, getPaymentSQL, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PaymentRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.PaymentRecord{}, fmt.Errorf("get payment %s: %w", sessionID, err)
	}
	return p, nil
}

func (r *Repo) SavePayment(ctx context.Context, p domain.PaymentRecord) error {
	_, err := r.db.ExecContext(ctx, insertPaymentSQL,
		p.SessionID,
		p.BookingID,
		p.Amount,
		p.Currency,
		p.Status,
		p.Paid,
		p.ConfirmedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save payment %s: %w", p.SessionID, err)
	}
	return nil
}

// RecordOrphanImages notes uploaded images that could not be deleted after
// a failed create. Re-recording an id reopens it.
func (r *Repo) RecordOrphanImages(ctx context.Context, ids []int64, reason string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(reason) > 512 {
		reason = reason[:512]
	}
	values := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids)*2)
	for _, id := range ids {
		values = append(values, "(?,?)")
		args = append(args, id, reason)
	}
	sqlStr := insertOrphansPrefix + strings.Join(values, ",") + insertOrphansOnDup
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("record orphan images: %w", err)
	}
	return nil
}
