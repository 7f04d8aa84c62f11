package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/glossly/dealdesk/internal/core/domain"
	"github.com/glossly/dealdesk/internal/port"
)

const orderColumns = `id, gig_id, client_id, dealer_id, client_name, dealer_name,
	proposed_price, agreed_price, scheduled_date, notes, status,
	created_at, updated_at, opened_at`

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) Insert(ctx context.Context, order domain.Order) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.GigID, order.ClientID, order.DealerID,
		nullString(order.ClientName), nullString(order.DealerName),
		order.ProposedPrice.String(), nullDecimal(order.AgreedPrice),
		nullTime(order.ScheduledDate), nullString(order.Notes),
		string(order.Status), order.CreatedAt, order.UpdatedAt, nullTime(order.OpenedAt),
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE id = ?`, orderID)

	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return order, nil
}

func (m *MySQLAdapter) ListByDealer(ctx context.Context, dealerID string) ([]domain.Order, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE dealer_id = ? ORDER BY created_at DESC`, dealerID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

// UpdateStatus applies a status change only while the row still carries the
// expected status. A zero row count means another writer got there first.
func (m *MySQLAdapter) UpdateStatus(ctx context.Context, orderID string, expected, target domain.Status, agreedPrice *decimal.Decimal, updatedAt time.Time) (*domain.Order, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, agreed_price = COALESCE(?, agreed_price), updated_at = ?
		WHERE id = ? AND status = ?`,
		string(target), nullDecimal(agreedPrice), updatedAt,
		orderID, string(expected),
	)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, port.ErrStatusConflict
	}

	row := tx.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE id = ?`, orderID)
	order, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("reload order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return order, nil
}

// SetOpenedAt stamps opened_at at most once: the NULL guard makes a repeat
// call affect zero rows, which is success, not an error.
func (m *MySQLAdapter) SetOpenedAt(ctx context.Context, orderID string, at time.Time) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE orders SET opened_at = ?
		WHERE id = ? AND opened_at IS NULL`, at, orderID)
	if err != nil {
		return fmt.Errorf("set opened_at: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o             domain.Order
		clientName    sql.NullString
		dealerName    sql.NullString
		proposedPrice string
		agreedPrice   sql.NullString
		scheduledDate sql.NullTime
		notes         sql.NullString
		status        string
		openedAt      sql.NullTime
	)
	err := row.Scan(
		&o.ID, &o.GigID, &o.ClientID, &o.DealerID, &clientName, &dealerName,
		&proposedPrice, &agreedPrice, &scheduledDate, &notes, &status,
		&o.CreatedAt, &o.UpdatedAt, &openedAt,
	)
	if err != nil {
		return nil, err
	}

	o.ClientName = clientName.String
	o.DealerName = dealerName.String
	o.Notes = notes.String
	o.Status = domain.Status(status)

	o.ProposedPrice, err = decimal.NewFromString(proposedPrice)
	if err != nil {
		return nil, fmt.Errorf("parse proposed_price: %w", err)
	}
	if agreedPrice.Valid {
		agreed, err := decimal.NewFromString(agreedPrice.String)
		if err != nil {
			return nil, fmt.Errorf("parse agreed_price: %w", err)
		}
		o.AgreedPrice = &agreed
	}
	if scheduledDate.Valid {
		t := scheduledDate.Time
		o.ScheduledDate = &t
	}
	if openedAt.Valid {
		t := openedAt.Time
		o.OpenedAt = &t
	}
	return &o, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
