// Copyright 2025 The stomp-go Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const (
	pgTimeout = 10 * time.Second

	createEventsTable = `CREATE TABLE IF NOT EXISTS stomp_audit_events (
		id BIGSERIAL PRIMARY KEY,
		at TIMESTAMPTZ NOT NULL,
		kind TEXT NOT NULL,
		username TEXT NOT NULL,
		filename TEXT,
		destination TEXT
	)`
	insertEvent = `INSERT INTO stomp_audit_events (at, kind, username, filename, destination)
		VALUES ($1, $2, $3, $4, $5)`
	summarizeEvents = `SELECT kind, COUNT(*) FROM stomp_audit_events GROUP BY kind ORDER BY kind`
)

// PostgresRecorder writes audit events to a PostgreSQL table. Event writes
// are best-effort: a failed insert is logged and dropped rather than failing
// the triggering command.
type PostgresRecorder struct {
	db *sql.DB
}

// OpenPostgres connects to PostgreSQL with the given DSN and ensures the
// audit table exists.
func OpenPostgres(dsn string) (*PostgresRecorder, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres audit store: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), pgTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach postgres audit store: %w", err)
	}
	if _, err := db.ExecContext(ctx, createEventsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit table: %w", err)
	}
	return &PostgresRecorder{db: db}, nil
}

// RecordLogin inserts a login event.
func (p *PostgresRecorder) RecordLogin(username string) {
	p.insert("login", username, "", "")
}

// RecordUpload inserts an upload event.
func (p *PostgresRecorder) RecordUpload(username, filename, destination string) {
	p.insert("upload", username, filename, destination)
}

func (p *PostgresRecorder) insert(kind, username, filename, destination string) {
	ctx, cancel := context.WithTimeout(context.Background(), pgTimeout)
	defer cancel()
	if _, err := p.db.ExecContext(ctx, insertEvent,
		time.Now(), kind, username, filename, destination); err != nil {
		log.Printf("[WARN] Failed to record %s audit event: %v", kind, err)
	}
}

// WriteReport renders per-kind event counts from the database.
func (p *PostgresRecorder) WriteReport(w io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), pgTimeout)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, summarizeEvents)
	if err != nil {
		return fmt.Errorf("failed to summarize audit events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s: %d\n", kind, count); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close closes the database handle.
func (p *PostgresRecorder) Close() error {
	return p.db.Close()
}
