package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LowStockScanJob scans inventory for items at or below the threshold
// and mails every active admin a digest.
type LowStockScanJob struct {
	Pool      *pgxpool.Pool
	Logger    *slog.Logger
	Mail      *Client
	Threshold int64
}

// NewLowStockScanJob initialises the low stock scan handler.
func NewLowStockScanJob(pool *pgxpool.Pool, logger *slog.Logger, mail *Client, threshold int64) *LowStockScanJob {
	return &LowStockScanJob{Pool: pool, Logger: logger, Mail: mail, Threshold: threshold}
}

// Handle executes the scan.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("low stock scan: handler not configured")
	}

	rows, err := j.Pool.Query(ctx,
		`SELECT name, quantity FROM inventory_items WHERE quantity <= $1 ORDER BY quantity, name`,
		j.Threshold,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var name string
		var quantity int64
		if err := rows.Scan(&name, &quantity); err != nil {
			return err
		}
		lines = append(lines, fmt.Sprintf("%s: %d left", name, quantity))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(lines) == 0 {
		j.Logger.Info("low stock scan", slog.Int("items", 0))
		return nil
	}

	admins, err := j.adminEmails(ctx)
	if err != nil {
		return err
	}
	body := "The following items are running low:\n\n" + strings.Join(lines, "\n")
	for _, email := range admins {
		if j.Mail == nil {
			continue
		}
		if err := j.Mail.EnqueueSendEmail(ctx, email, "Low stock alert", body); err != nil {
			j.Logger.Warn("enqueue low stock mail", slog.String("to", email), slog.Any("error", err))
		}
	}
	j.Logger.Info("low stock scan", slog.Int("items", len(lines)), slog.Int("admins", len(admins)))
	return nil
}

func (j *LowStockScanJob) adminEmails(ctx context.Context) ([]string, error) {
	rows, err := j.Pool.Query(ctx, `SELECT email FROM users WHERE role = 'admin' AND is_active`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
