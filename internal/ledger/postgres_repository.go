package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// PostgresRepository keeps all records in a single ledger_records table.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(cred *Credentials) (*PostgresRepository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "ledger_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

const recordColumns = `id, kind, buyer_id, items, amount, currency, description, contact, shipping,
	payment_method, status, recurring, billing_interval, processor_ref, cancelled_at, created_at, updated_at`

func (r *PostgresRepository) Insert(ctx context.Context, rec *domain.Record) error {
	itemsJSON, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}
	contactJSON, err := json.Marshal(rec.Contact)
	if err != nil {
		return fmt.Errorf("failed to marshal contact: %w", err)
	}
	var shippingJSON []byte
	if rec.Shipping != nil {
		if shippingJSON, err = json.Marshal(rec.Shipping); err != nil {
			return fmt.Errorf("failed to marshal shipping: %w", err)
		}
	}

	query := `INSERT INTO ledger_records (` + recordColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, insertErr := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.Kind,
		rec.BuyerID,
		itemsJSON,
		rec.Amount,
		rec.Currency,
		rec.Description,
		contactJSON,
		shippingJSON,
		rec.PaymentMethod,
		rec.Status,
		rec.Recurring,
		rec.Interval,
		rec.ProcessorRef,
		rec.CancelledAt,
		rec.CreatedAt,
		rec.UpdatedAt)

	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateRecord
		}
		return fmt.Errorf("insert record: %w", insertErr)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*domain.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM ledger_records WHERE id = $1`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		// a malformed uuid can never match a stored record
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "22P02" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) CompareAndSetStatus(ctx context.Context, id string, change StatusChange) (bool, error) {
	var cancelledAt *time.Time
	if change.To == domain.StatusCancelled {
		cancelledAt = &change.At
	}

	query := `UPDATE ledger_records
	          SET status = $1,
	              processor_ref = COALESCE(NULLIF($2, ''), processor_ref),
	              cancelled_at = COALESCE($3, cancelled_at),
	              updated_at = $4
	          WHERE id = $5 AND status = $6`

	res, err := r.db.ExecContext(ctx, query, change.To, change.ProcessorRef, cancelledAt, change.At, id, change.From)
	if err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	return r.applied(ctx, res, id)
}

func (r *PostgresRepository) SetProcessorRef(ctx context.Context, id, ref string, at time.Time) (bool, error) {
	query := `UPDATE ledger_records SET processor_ref = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, ref, at, id, domain.StatusPending)
	if err != nil {
		return false, fmt.Errorf("set processor ref: %w", err)
	}
	return r.applied(ctx, res, id)
}

func (r *PostgresRepository) applied(ctx context.Context, res sql.Result, id string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return true, nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *PostgresRepository) ListByBuyer(ctx context.Context, buyerID string, f Filter) ([]*domain.Record, error) {
	conds := []string{"buyer_id = $1"}
	args := []any{buyerID}
	if f.Kind != "" {
		args = append(args, f.Kind)
		conds = append(conds, fmt.Sprintf("kind = $%d", len(args)))
	}
	if f.RecurringOnly {
		conds = append(conds, "recurring")
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + recordColumns + ` FROM ledger_records WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY created_at DESC`
	return r.query(ctx, query, args...)
}

func (r *PostgresRepository) ListPending(ctx context.Context, page PendingPage) ([]*domain.Record, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + recordColumns + ` FROM ledger_records
	          WHERE status = $1 AND created_at < $2
	            AND (created_at > $3 OR (created_at = $3 AND id::text > $4))
	          ORDER BY created_at ASC, id ASC
	          LIMIT $5`
	return r.query(ctx, query, domain.StatusPending, page.OlderThan, page.AfterCreatedAt, page.AfterID, limit)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.Record, error) {
	var (
		rec                                 domain.Record
		itemsJSON, contactJSON, shippingRaw []byte
		cancelledAt                         sql.NullTime
	)
	err := row.Scan(
		&rec.ID,
		&rec.Kind,
		&rec.BuyerID,
		&itemsJSON,
		&rec.Amount,
		&rec.Currency,
		&rec.Description,
		&contactJSON,
		&shippingRaw,
		&rec.PaymentMethod,
		&rec.Status,
		&rec.Recurring,
		&rec.Interval,
		&rec.ProcessorRef,
		&cancelledAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &rec.Items); err != nil {
			return nil, fmt.Errorf("unmarshal items: %w", err)
		}
	}
	if err := json.Unmarshal(contactJSON, &rec.Contact); err != nil {
		return nil, fmt.Errorf("unmarshal contact: %w", err)
	}
	if len(shippingRaw) > 0 {
		var addr domain.Address
		if err := json.Unmarshal(shippingRaw, &addr); err != nil {
			return nil, fmt.Errorf("unmarshal shipping: %w", err)
		}
		rec.Shipping = &addr
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time.UTC()
		rec.CancelledAt = &t
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}
