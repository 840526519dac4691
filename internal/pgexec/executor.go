// Package pgexec runs candidate SQL against PostgreSQL.
//
// Every Execute call opens its own connection, pins the search path, runs
// the statement text and closes the connection, whatever the outcome. A
// connection left in an aborted transaction by one attempt is never reused
// by the next.
package pgexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Conn is the part of *pgx.Conn used here. pgxmock connections satisfy it too.
type Conn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Close(ctx context.Context) error
}

// Dialer opens a fresh connection.
type Dialer func(ctx context.Context) (Conn, error)

// Executor applies SQL to the target database.
type Executor struct {
	dial       Dialer
	searchPath string
	logger     *slog.Logger
}

// New returns an Executor connecting with connString.
func New(connString, searchPath string, logger *slog.Logger) (*Executor, error) {
	if connString == "" {
		return nil, errors.New("target connection string is required")
	}
	if _, err := pgx.ParseConfig(connString); err != nil {
		return nil, fmt.Errorf("parse target connection string: %w", err)
	}
	dial := func(ctx context.Context) (Conn, error) {
		conn, err := pgx.Connect(ctx, connString)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return NewWithDialer(dial, searchPath, logger), nil
}

// NewWithDialer returns an Executor using dial for every attempt.
func NewWithDialer(dial Dialer, searchPath string, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{dial: dial, searchPath: searchPath, logger: logger}
}

// Execute runs sql on a new connection. The statement text is sent without
// arguments, so multi-statement scripts go through the simple protocol.
func (e *Executor) Execute(ctx context.Context, sql string) error {
	conn, err := e.dial(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(ctx); closeErr != nil {
			e.logger.Warn("closing target connection", "error", closeErr)
		}
	}()

	if e.searchPath != "" {
		if _, err := conn.Exec(ctx, SearchPathStatement(e.searchPath)); err != nil {
			return fmt.Errorf("set search_path: %w", err)
		}
	}

	if _, err := conn.Exec(ctx, sql); err != nil {
		return err
	}
	return nil
}

// SearchPathStatement returns the SET statement pinning schemas, quoting each
// comma-separated name as an identifier.
func SearchPathStatement(searchPath string) string {
	parts := strings.Split(searchPath, ",")
	quoted := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			quoted = append(quoted, pgx.Identifier{p}.Sanitize())
		}
	}
	return "SET search_path TO " + strings.Join(quoted, ", ")
}

// ErrorMessage renders err for a correction prompt. PostgreSQL errors carry
// their detail, hint and position when present.
func ErrorMessage(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err.Error()
	}

	var b strings.Builder
	b.WriteString(pgErr.Error())
	if pgErr.Detail != "" {
		fmt.Fprintf(&b, "; detail: %s", pgErr.Detail)
	}
	if pgErr.Hint != "" {
		fmt.Fprintf(&b, "; hint: %s", pgErr.Hint)
	}
	if pgErr.Position > 0 {
		fmt.Fprintf(&b, "; position: %d", pgErr.Position)
	}
	return b.String()
}
