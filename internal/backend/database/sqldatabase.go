package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Gamlio/MechineLearning-skin-cancer/internal/common"
)

// SQLDatabase implements DatabaseService over database/sql. The handle keeps no idle
// connections by default, so every operation opens a connection and closes it again.
type SQLDatabase struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

func newSQLDatabase(d dialect, connectionString string, maxIdleConns int) (*SQLDatabase, error) {
	db, err := sql.Open(d.driverName, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d.name, err)
	}
	if maxIdleConns < 0 {
		maxIdleConns = 0
	}
	db.SetMaxIdleConns(maxIdleConns)

	return &SQLDatabase{
		db:      db,
		dialect: d,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *SQLDatabase) CreateDatabase(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range s.dialect.schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
		}
		return nil
	})
}

func (s *SQLDatabase) Ping(ctx context.Context) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		return conn.PingContext(ctx)
	})
}

func (s *SQLDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLDatabase) InsertRequestLog(ctx context.Context, address, filename, prediction string, confidence float64, isValid bool) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := s.dialect.rebind(`INSERT INTO requests (ip_address, request_time, filename, prediction, confidence, is_valid_case)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
		return tx.QueryRowContext(ctx, query, address, s.now(), filename, prediction, confidence, isValid).Scan(&id)
	})
	if err != nil {
		slog.Error("failed to insert request log", "filename", filename, "prediction", prediction, "error", err)
		return 0, fmt.Errorf("failed to insert request log: %w", err)
	}
	slog.Debug("request log stored", "log_id", id, "prediction", prediction)
	return id, nil
}

func (s *SQLDatabase) InvalidateRequestLog(ctx context.Context, id int64) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.dialect.rebind(`UPDATE requests SET is_valid_case = ? WHERE id = ?`), false, id)
		return err
	})
	if err != nil {
		slog.Error("failed to invalidate request log", "log_id", id, "error", err)
		return fmt.Errorf("failed to invalidate request log %d: %w", id, err)
	}
	return nil
}

func (s *SQLDatabase) GetRequestLogs(ctx context.Context) ([]RequestLog, error) {
	logs := []RequestLog{}
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `SELECT id, ip_address, request_time, filename, prediction, confidence, is_valid_case
			FROM requests ORDER BY request_time DESC, id DESC`)
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close()
		}()

		for rows.Next() {
			entry, err := scanRequestLog(rows)
			if err != nil {
				return err
			}
			logs = append(logs, *entry)
		}
		return rows.Err()
	})
	if err != nil {
		slog.Error("failed to fetch request logs", "error", err)
		return nil, fmt.Errorf("failed to fetch request logs: %w", err)
	}
	return logs, nil
}

// GetRequestLogByID returns nil without an error when the id does not exist.
func (s *SQLDatabase) GetRequestLogByID(ctx context.Context, id int64) (*RequestLog, error) {
	var entry *RequestLog
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, s.dialect.rebind(`SELECT id, ip_address, request_time, filename, prediction, confidence, is_valid_case
			FROM requests WHERE id = ?`), id)
		var err error
		entry, err = scanRequestLog(row)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch request log %d: %w", id, err)
	}
	return entry, nil
}

func (s *SQLDatabase) InsertFeedback(ctx context.Context, imageData string, label common.Label) (int64, error) {
	if !label.IsValid() {
		return 0, fmt.Errorf("%w: %q", common.ErrInvalidLabel, label)
	}
	decoded, err := DecodeImagePayload(imageData)
	if err != nil {
		slog.Error("failed to decode feedback image", "label", label, "error", err)
		return 0, err
	}

	var id int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		query := s.dialect.rebind(`INSERT INTO feedback (image_data, label, created_at) VALUES (?, ?, ?) RETURNING id`)
		return tx.QueryRowContext(ctx, query, decoded, string(label), s.now()).Scan(&id)
	})
	if err != nil {
		slog.Error("failed to insert feedback", "label", label, "error", err)
		return 0, fmt.Errorf("failed to insert feedback: %w", err)
	}
	slog.Debug("feedback stored", "feedback_id", id, "label", label, "image_size_bytes", len(decoded))
	return id, nil
}

func (s *SQLDatabase) GetFeedbackLogs(ctx context.Context) ([]FeedbackRecord, error) {
	records := []FeedbackRecord{}
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `SELECT id, image_data, label, created_at FROM feedback ORDER BY created_at DESC, id DESC`)
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close()
		}()

		for rows.Next() {
			var rec FeedbackRecord
			if err := rows.Scan(&rec.ID, &rec.ImageData, &rec.Label, &rec.CreatedAt); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		slog.Error("failed to fetch feedback logs", "error", err)
		return nil, fmt.Errorf("failed to fetch feedback logs: %w", err)
	}
	return records, nil
}

func (s *SQLDatabase) GetPredictionCounts(ctx context.Context) (map[common.Label]int64, error) {
	counts := make(map[common.Label]int64, len(common.Labels()))
	for _, label := range common.Labels() {
		counts[label] = 0
	}

	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, s.dialect.rebind(`SELECT prediction, COUNT(*) FROM requests
			WHERE is_valid_case = ? GROUP BY prediction`), true)
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close()
		}()

		for rows.Next() {
			var prediction string
			var count int64
			if err := rows.Scan(&prediction, &count); err != nil {
				return err
			}
			if label := common.Label(prediction); label.IsValid() {
				counts[label] = count
			}
		}
		return rows.Err()
	})
	if err != nil {
		slog.Error("failed to fetch prediction counts", "error", err)
		return nil, fmt.Errorf("failed to fetch prediction counts: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequestLog(row rowScanner) (*RequestLog, error) {
	var entry RequestLog
	var address, filename sql.NullString
	if err := row.Scan(&entry.ID, &address, &entry.RequestTime, &filename, &entry.Prediction, &entry.Confidence, &entry.IsValidCase); err != nil {
		return nil, err
	}
	entry.IPAddress = address.String
	entry.Filename = filename.String
	return &entry, nil
}

// withConn scopes a single connection to fn and releases it afterwards.
func (s *SQLDatabase) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire %s connection: %w", s.dialect.name, err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			slog.Warn("failed to release database connection", "error", cerr)
		}
	}()
	return fn(conn)
}

// withTx runs fn in a transaction on a scoped connection. It commits when fn
// succeeds and rolls back otherwise.
func (s *SQLDatabase) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		if err := fn(tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Warn("failed to roll back transaction", "error", rbErr)
			}
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}
