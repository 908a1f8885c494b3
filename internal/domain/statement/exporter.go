// Package statement exports the full ledger history of a customer at a
// restaurant as a CSV document.
package statement

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/loyaltyhub/loyalty-api/internal/domain/ledger"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/logger"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/storage"
)

const pageSize = 100

var ErrUploadFailed = errors.New("statement upload failed")

var header = []string{
	"id", "occurred_at", "kind", "points", "monetary_value",
	"is_expired", "source_earn_id", "receipt_id",
}

// History is the ledger read the exporter needs.
type History interface {
	ListTransactions(ctx context.Context, customerID, restaurantID int64, filter ledger.Filter, page ledger.Page) ([]ledger.Transaction, int, error)
}

// Statement describes an uploaded export.
type Statement struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	Rows        int       `json:"rows"`
	GeneratedAt time.Time `json:"generated_at"`
}

type Exporter struct {
	history History
	store   storage.Storage
	now     func() time.Time
}

func NewExporter(history History, store storage.Storage) *Exporter {
	return &Exporter{history: history, store: store, now: time.Now}
}

// Export writes every row of the pair, expired ones included, oldest first.
func (e *Exporter) Export(ctx context.Context, restaurantID, customerID int64) (*Statement, error) {
	rows, err := e.collect(ctx, restaurantID, customerID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := writeCSV(&buf, rows); err != nil {
		return nil, err
	}

	generatedAt := e.now().UTC()
	key := fmt.Sprintf("statements/%d/%d/%s-%s.csv",
		restaurantID, customerID, generatedAt.Format("20060102T150405Z"), uuid.NewString())
	if err := e.store.Put(ctx, key, &buf, "text/csv"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	logger.FromContext(ctx).Info().
		Int64("restaurant_id", restaurantID).
		Int64("customer_id", customerID).
		Int("rows", len(rows)).
		Str("key", key).
		Msg("Ledger statement exported")

	return &Statement{Key: key, URL: e.store.GetURL(key), Rows: len(rows), GeneratedAt: generatedAt}, nil
}

// collect pages through the history with an id cursor, so rows written
// while the export runs neither shift nor repeat earlier pages. Pages come
// newest first and the result is reversed afterwards.
func (e *Exporter) collect(ctx context.Context, restaurantID, customerID int64) ([]ledger.Transaction, error) {
	filter := ledger.Filter{IncludeExpired: true}
	var all []ledger.Transaction
	for {
		items, _, err := e.history.ListTransactions(ctx, customerID, restaurantID, filter,
			ledger.Page{Limit: pageSize})
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < pageSize {
			break
		}
		filter.BeforeID = items[len(items)-1].ID
	}

	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all, nil
}

func writeCSV(buf *bytes.Buffer, rows []ledger.Transaction) error {
	w := csv.NewWriter(buf)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, t := range rows {
		record := []string{
			strconv.FormatInt(t.ID, 10),
			t.OccurredAt.UTC().Format(time.RFC3339),
			string(t.Kind),
			strconv.FormatInt(t.Points, 10),
			t.MonetaryValue.StringFixed(2),
			strconv.FormatBool(t.IsExpired),
			"",
			"",
		}
		if t.SourceEarnID != nil {
			record[6] = strconv.FormatInt(*t.SourceEarnID, 10)
		}
		if t.ReceiptID != nil {
			record[7] = *t.ReceiptID
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
