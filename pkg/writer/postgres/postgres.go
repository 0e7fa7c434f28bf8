// Package postgres exports the ledger to a PostgreSQL database.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/luthenlog/luthen/pkg/api"
	"github.com/luthenlog/luthen/pkg/format"
	"github.com/luthenlog/luthen/pkg/writer/buffered"
)

//go:embed 001_create_ledger.sql
var migrationSQL string

// Config holds the PostgreSQL writer configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// BatchSize is the number of records to buffer before writing.
	BatchSize int
	// FlushInterval is the time between automatic flushes.
	FlushInterval time.Duration

	// MaxPoolSize is the maximum number of connections in the pool.
	MaxPoolSize int
}

// ConnString builds the libpq connection string for cfg.
func (cfg Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)
}

// Writer upserts records and funds into PostgreSQL.
type Writer struct {
	pool     *pgxpool.Pool
	logger   *slog.Logger
	buffered *buffered.Writer
}

func (cfg *Config) applyDefaults() {
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 4
	}
}

// New connects, runs the embedded migration and returns the writer.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Host == "" {
		return nil, errors.New("postgres writer: host is required")
	}
	cfg.applyDefaults()

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("connected to PostgreSQL",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Database,
	)

	w := &Writer{pool: pool, logger: logger}

	if _, err := pool.Exec(ctx, migrationSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	w.buffered = buffered.New(w.writeBatch, buffered.Config{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
	}, logger.With("component", "postgres_buffer"))

	return w, nil
}

// Write consumes records from in and upserts them in batches.
func (w *Writer) Write(ctx context.Context, in <-chan *api.Record, ackChan chan<- string) error {
	return w.buffered.Write(ctx, in, ackChan)
}

const upsertRecord = `
	INSERT INTO records (
		id, amount, date, occurred_at, fund_id, correlated_fund_id, note, tag, type
	) VALUES ($1, $2::numeric, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
		amount = EXCLUDED.amount,
		date = EXCLUDED.date,
		occurred_at = EXCLUDED.occurred_at,
		fund_id = EXCLUDED.fund_id,
		correlated_fund_id = EXCLUDED.correlated_fund_id,
		note = EXCLUDED.note,
		tag = EXCLUDED.tag,
		type = EXCLUDED.type,
		updated_at = NOW()`

const upsertFund = `
	INSERT INTO funds (id, name, balance, is_main)
	VALUES ($1, $2, $3::numeric, $4)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		balance = EXCLUDED.balance,
		is_main = EXCLUDED.is_main,
		updated_at = NOW()`

// writeBatch upserts records on id in one transaction.
func (w *Writer) writeBatch(ctx context.Context, records []*api.Record) error {
	batch := &pgx.Batch{}
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record without id cannot be exported")
		}
		var occurredAt *time.Time
		if t, err := format.ParseDate(r.Date); err == nil {
			occurredAt = &t
		} else {
			w.logger.Warn("unparseable record date", "record_id", r.ID, "date", r.Date)
		}
		var correlated *string
		if r.CorrelatedFundID != "" {
			correlated = &r.CorrelatedFundID
		}
		batch.Queue(upsertRecord,
			r.ID, r.Amount.String(), r.Date, occurredAt, r.FundID, correlated, r.Note, r.Tag, int16(r.Type),
		)
	}
	return w.sendBatch(ctx, batch)
}

// WriteFunds upserts funds on id.
func (w *Writer) WriteFunds(ctx context.Context, funds []api.Fund) error {
	if len(funds) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, f := range funds {
		batch.Queue(upsertFund, f.ID, f.Name, f.Balance.String(), f.IsMain)
	}
	if err := w.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("writing funds: %w", err)
	}
	w.logger.Info("wrote funds", "count", len(funds))
	return nil
}

func (w *Writer) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("executing statement %d: %w", i, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("closing batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Close closes the database connection pool.
func (w *Writer) Close() {
	if w.pool != nil {
		w.pool.Close()
		w.logger.Info("closed PostgreSQL connection pool")
	}
}
