// Package audit persists one record per extraction request so operators
// can review what the engine did for each URL.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/webtext/idgen"
)

// Schema creates the extraction event table. Pass to dbopen.WithSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS extraction_events (
	event_id      TEXT PRIMARY KEY,
	timestamp     INTEGER NOT NULL,
	url           TEXT NOT NULL,
	final_url     TEXT,
	tier          TEXT,
	strategy      TEXT,
	status        TEXT NOT NULL,
	status_code   INTEGER,
	error_type    TEXT,
	error_message TEXT,
	text_length   INTEGER,
	duration_ms   INTEGER,
	proxy_used    TEXT
);
CREATE INDEX IF NOT EXISTS idx_events_ts ON extraction_events(timestamp);
CREATE INDEX IF NOT EXISTS idx_events_status ON extraction_events(status);
`

// Event is one extraction request's outcome.
type Event struct {
	EventID      string
	Timestamp    time.Time
	URL          string
	FinalURL     string
	Tier         string
	Strategy     string
	Status       string // "success", "empty", "error", "timeout"
	StatusCode   int
	ErrorType    string
	ErrorMessage string
	TextLength   int
	DurationMs   int64
	ProxyUsed    string
}

// Filter controls Query results.
type Filter struct {
	Since  *time.Time
	Until  *time.Time
	Status string
	Tier   string
	Limit  int // default 100
	Offset int
}

// Log persists extraction events asynchronously with batched inserts.
type Log struct {
	db     *sql.DB
	newID  idgen.Generator
	logger *slog.Logger
	ch     chan *Event
	stop   chan struct{}
	done   chan struct{}
}

// Option configures a Log.
type Option func(*Log)

// WithIDGenerator sets a custom generator for event IDs.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(l *Log) { l.newID = gen }
}

// WithLogger sets the slog logger for flush failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

// New creates an async event log. Recommended bufferSize: 1000.
func New(db *sql.DB, bufferSize int, opts ...Option) *Log {
	l := &Log{
		db:     db,
		newID:  idgen.Prefixed("evt_", idgen.Default),
		logger: slog.Default(),
		ch:     make(chan *Event, bufferSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	go l.flushLoop()
	return l
}

// Record inserts an event synchronously.
func (l *Log) Record(ctx context.Context, e *Event) error {
	l.fillDefaults(e)
	return l.insert(ctx, e)
}

// RecordAsync queues an event for batched persistence. Falls back to a
// synchronous insert when the buffer is full.
func (l *Log) RecordAsync(e *Event) {
	l.fillDefaults(e)
	select {
	case l.ch <- e:
	default:
		l.logger.Warn("audit: buffer full, sync fallback", "url", e.URL)
		if err := l.insert(context.Background(), e); err != nil {
			l.logger.Error("audit: sync fallback failed", "error", err)
		}
	}
}

// Query retrieves events matching the filter, newest first.
func (l *Log) Query(ctx context.Context, f *Filter) ([]*Event, error) {
	q := `SELECT event_id, timestamp, url, final_url, tier, strategy,
		status, status_code, error_type, error_message, text_length,
		duration_ms, proxy_used
		FROM extraction_events WHERE 1=1`
	var args []any

	if f.Since != nil {
		q += " AND timestamp >= ?"
		args = append(args, f.Since.Unix())
	}
	if f.Until != nil {
		q += " AND timestamp <= ?"
		args = append(args, f.Until.Unix())
	}
	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.Tier != "" {
		q += " AND tier = ?"
		args = append(args, f.Tier)
	}

	q += " ORDER BY timestamp DESC LIMIT ?"
	limit := 100
	if f.Limit > 0 {
		limit = f.Limit
	}
	args = append(args, limit)
	if f.Offset > 0 {
		q += " OFFSET ?"
		args = append(args, f.Offset)
	}

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		var ts int64
		var finalURL, tier, strategy, errorType, errorMessage, proxyUsed sql.NullString
		var statusCode, textLength sql.NullInt64
		var durationMs sql.NullInt64

		if err := rows.Scan(
			&e.EventID, &ts, &e.URL, &finalURL, &tier, &strategy,
			&e.Status, &statusCode, &errorType, &errorMessage, &textLength,
			&durationMs, &proxyUsed,
		); err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}

		e.Timestamp = time.Unix(ts, 0)
		e.FinalURL = finalURL.String
		e.Tier = tier.String
		e.Strategy = strategy.String
		e.ErrorType = errorType.String
		e.ErrorMessage = errorMessage.String
		e.ProxyUsed = proxyUsed.String
		e.StatusCode = int(statusCode.Int64)
		e.TextLength = int(textLength.Int64)
		e.DurationMs = durationMs.Int64
		events = append(events, &e)
	}
	return events, rows.Err()
}

// Cleanup deletes events older than retentionDays.
func (l *Log) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	threshold := time.Now().AddDate(0, 0, -retentionDays).Unix()
	result, err := l.db.ExecContext(ctx,
		"DELETE FROM extraction_events WHERE timestamp < ?", threshold)
	if err != nil {
		return 0, fmt.Errorf("audit: cleanup: %w", err)
	}
	return result.RowsAffected()
}

// Close drains the buffer and stops the flush goroutine.
func (l *Log) Close() error {
	close(l.stop)
	<-l.done
	return nil
}

func (l *Log) fillDefaults(e *Event) {
	if e.EventID == "" {
		e.EventID = l.newID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Status == "" {
		if e.ErrorMessage != "" {
			e.Status = "error"
		} else {
			e.Status = "success"
		}
	}
}

func (l *Log) flushLoop() {
	defer close(l.done)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	batch := make([]*Event, 0, 100)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		tx, err := l.db.BeginTx(ctx, nil)
		if err != nil {
			l.logger.Error("audit: begin tx", "error", err)
			return
		}
		stmt, err := tx.PrepareContext(ctx, insertSQL)
		if err != nil {
			tx.Rollback()
			l.logger.Error("audit: prepare", "error", err)
			return
		}
		defer stmt.Close()

		for _, e := range batch {
			if _, err := stmt.ExecContext(ctx, insertArgs(e)...); err != nil {
				l.logger.Error("audit: insert", "error", err, "event_id", e.EventID)
			}
		}
		if err := tx.Commit(); err != nil {
			l.logger.Error("audit: commit", "error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-l.stop:
			for {
				select {
				case e := <-l.ch:
					batch = append(batch, e)
				default:
					flush()
					return
				}
			}
		case e := <-l.ch:
			batch = append(batch, e)
			if len(batch) >= 100 {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

var insertSQL = `INSERT INTO extraction_events
	(event_id, timestamp, url, final_url, tier, strategy,
	 status, status_code, error_type, error_message, text_length,
	 duration_ms, proxy_used)
	VALUES (` + strings.TrimSuffix(strings.Repeat("?,", 13), ",") + `)`

func insertArgs(e *Event) []any {
	return []any{
		e.EventID, e.Timestamp.Unix(), e.URL, e.FinalURL, e.Tier, e.Strategy,
		e.Status, e.StatusCode, e.ErrorType, e.ErrorMessage, e.TextLength,
		e.DurationMs, e.ProxyUsed,
	}
}

func (l *Log) insert(ctx context.Context, e *Event) error {
	_, err := l.db.ExecContext(ctx, insertSQL, insertArgs(e)...)
	return err
}
