package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"netvoya-bot/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// PostgresStorage keeps a bot-side copy of every submitted inventory
// request for admin stats, listing and export. The backend remains the
// system of record for fulfillment.
type PostgresStorage struct {
	db     *sqlx.DB
	logger *zap.Logger
}

type InventoryRequest struct {
	ID              int64     `db:"id"`
	BackendID       string    `db:"backend_id"`
	ChatID          int64     `db:"chat_id"`
	Username        string    `db:"username"`
	TotalTokens     int       `db:"total_tokens"`
	TotalAmount     float64   `db:"total_amount"`
	DiscountPercent float64   `db:"discount_percent"`
	DiscountLabel   string    `db:"discount_label"`
	CreatedAt       time.Time `db:"created_at"`

	Items []InventoryRequestItem `db:"-"`
}

type InventoryRequestItem struct {
	ID          int64   `db:"id"`
	RequestID   int64   `db:"request_id"`
	PackageID   string  `db:"package_id"`
	PackageName string  `db:"package_name"`
	Region      string  `db:"region"`
	Quantity    int     `db:"quantity"`
	UnitPrice   float64 `db:"unit_price"`
	LineTotal   float64 `db:"line_total"`
}

type RequestStatistics struct {
	TotalRequests int     `db:"total_requests"`
	TotalTokens   int     `db:"total_tokens"`
	TotalRevenue  float64 `db:"total_revenue"`
	TodayRequests int     `db:"today_requests"`
	WeekRequests  int     `db:"week_requests"`
	MonthRequests int     `db:"month_requests"`
}

func NewPostgresStorage(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	const operation = "storage.NewPostgresStorage"

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
	)

	var db *sqlx.DB
	var err error

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = 2 * time.Minute
	retryPolicy.MaxInterval = 15 * time.Second

	logger.Info("Connecting to PostgreSQL...")

	err = backoff.RetryNotify(
		func() error {
			db, err = sqlx.ConnectContext(ctx, "postgres", connStr)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			if err = db.PingContext(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			return nil
		},
		retryPolicy,
		func(err error, duration time.Duration) {
			logger.Warn("PostgreSQL connection failed, retrying...",
				zap.Error(err),
				zap.Duration("next_attempt_in", duration))
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect after retries: %w", operation, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	logger.Info("Successfully connected to PostgreSQL")
	return &PostgresStorage{
		db:     db,
		logger: logger,
	}, nil
}

// SaveRequest records a submitted inventory request and its lines in
// one transaction.
func (s *PostgresStorage) SaveRequest(ctx context.Context, req InventoryRequest) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const insertRequest = `
        INSERT INTO inventory_requests (
            backend_id, chat_id, username, total_tokens, total_amount,
            discount_percent, discount_label, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `

	var requestID int64
	err = tx.QueryRowContext(ctx, insertRequest,
		req.BackendID,
		req.ChatID,
		req.Username,
		req.TotalTokens,
		req.TotalAmount,
		req.DiscountPercent,
		req.DiscountLabel,
		req.CreatedAt,
	).Scan(&requestID)
	if err != nil {
		return 0, fmt.Errorf("failed to save request: %w", err)
	}

	const insertItem = `
        INSERT INTO inventory_request_items (
            request_id, package_id, package_name, region,
            quantity, unit_price, line_total
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)
    `

	for _, item := range req.Items {
		if _, err := tx.ExecContext(ctx, insertItem,
			requestID,
			item.PackageID,
			item.PackageName,
			item.Region,
			item.Quantity,
			item.UnitPrice,
			item.LineTotal,
		); err != nil {
			return 0, fmt.Errorf("failed to save request item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	return requestID, nil
}

// GetRequestByID returns a request with its items.
func (s *PostgresStorage) GetRequestByID(ctx context.Context, requestID int64) (*InventoryRequest, error) {
	const query = `SELECT * FROM inventory_requests WHERE id = $1`

	var req InventoryRequest
	if err := s.db.GetContext(ctx, &req, query, requestID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("request not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get request: %w", err)
	}

	const itemsQuery = `SELECT * FROM inventory_request_items WHERE request_id = $1 ORDER BY id`
	if err := s.db.SelectContext(ctx, &req.Items, itemsQuery, requestID); err != nil {
		return nil, fmt.Errorf("failed to get request items: %w", err)
	}

	return &req, nil
}

// ListRecentRequests returns the latest n requests, newest first.
func (s *PostgresStorage) ListRecentRequests(ctx context.Context, n int) ([]InventoryRequest, error) {
	const query = `SELECT * FROM inventory_requests ORDER BY created_at DESC LIMIT $1`

	var requests []InventoryRequest
	if err := s.db.SelectContext(ctx, &requests, query, n); err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return requests, nil
}

// GetRequestStatistics aggregates request counts and revenue.
func (s *PostgresStorage) GetRequestStatistics(ctx context.Context) (*RequestStatistics, error) {
	const query = `
        SELECT
            COUNT(*)                                                          AS total_requests,
            COALESCE(SUM(total_tokens), 0)                                    AS total_tokens,
            COALESCE(SUM(total_amount), 0)                                    AS total_revenue,
            COUNT(*) FILTER (WHERE created_at >= CURRENT_DATE)                AS today_requests,
            COUNT(*) FILTER (WHERE created_at >= NOW() - INTERVAL '7 days')   AS week_requests,
            COUNT(*) FILTER (WHERE created_at >= NOW() - INTERVAL '30 days')  AS month_requests
        FROM inventory_requests
    `

	var stats RequestStatistics
	if err := s.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}
	return &stats, nil
}

// ExportRequestsToExcel writes all recorded requests to an xlsx report
// and returns the file path.
func (s *PostgresStorage) ExportRequestsToExcel(ctx context.Context, filename string) (string, error) {
	const query = `SELECT * FROM inventory_requests ORDER BY created_at DESC`
	var requests []InventoryRequest
	if err := s.db.SelectContext(ctx, &requests, query); err != nil {
		return "", fmt.Errorf("failed to fetch requests: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet("Requests")
	if err != nil {
		return "", fmt.Errorf("failed to create sheet: %w", err)
	}

	headers := []string{
		"ID", "Backend ID", "Chat ID", "Username", "Total Tokens",
		"Total Amount", "Discount %", "Discount Label", "Created At",
	}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue("Requests", cell, header)
	}

	for row, req := range requests {
		data := []interface{}{
			req.ID,
			req.BackendID,
			req.ChatID,
			req.Username,
			req.TotalTokens,
			req.TotalAmount,
			req.DiscountPercent,
			req.DiscountLabel,
			req.CreatedAt.Format("2006-01-02 15:04"),
		}
		for col, value := range data {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue("Requests", cell, value)
		}
	}

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellStyle("Requests", "A1", "I1", style)
	f.SetActiveSheet(index)

	if err := os.MkdirAll("reports", 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}

	filepath := fmt.Sprintf("reports/%s.xlsx", filename)
	if err := f.SaveAs(filepath); err != nil {
		return "", fmt.Errorf("failed to save Excel file: %w", err)
	}

	return filepath, nil
}

// DB exposes the underlying handle for the goose migrator.
func (s *PostgresStorage) DB() *sql.DB {
	return s.db.DB
}

func (s *PostgresStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
