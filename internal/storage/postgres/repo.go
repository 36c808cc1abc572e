// Package postgres implements the Postgres warehouse backend on pgx v5.
// Postgres DDL is transactional: a table is replaced by drop, create and COPY
// inside one transaction, so readers see either the old or the new contents.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"aviation/internal/ddl"
	"aviation/internal/storage"
	"aviation/internal/table"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN string // connection string for pgxpool
}

// Repository is a Postgres-backed implementation of storage.Repository. The
// database part of a TableID is ignored; the pool's database holds every
// table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres: ping: %w", err)
	}
	closeFn := func() { pool.Close() }
	return &Repository{pool: pool}, closeFn, nil
}

// ReadTable implements storage.Repository.
func (r *Repository) ReadTable(ctx context.Context, id storage.TableID) (*table.Table, error) {
	ok, err := r.exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("postgres: %s: %w", id, storage.ErrTableNotFound)
	}

	rows, err := r.pool.Query(ctx, "SELECT * FROM "+pgTable(id))
	if err != nil {
		return nil, wrapPgErr("select "+id.String(), err)
	}
	defer rows.Close()

	tm := rows.Conn().TypeMap()
	fds := rows.FieldDescriptions()
	cols := make([]table.Column, len(fds))
	for i, fd := range fds {
		name := "text"
		if typ, ok := tm.TypeForOID(fd.DataTypeOID); ok {
			name = typ.Name
		}
		cols[i] = table.Column{Name: fd.Name, Type: columnType(name)}
	}
	out := table.New(cols)

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, wrapPgErr("scan "+id.String(), err)
		}
		row := make(table.Row, len(cols))
		for i, v := range vals {
			row[i] = table.Normalize(fromPg(v), cols[i].Type)
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgErr("read "+id.String(), err)
	}
	return out, nil
}

// ReplaceTable implements storage.Repository.
func (r *Repository) ReplaceTable(ctx context.Context, id storage.TableID, t *table.Table) error {
	if t == nil || len(t.Columns) == 0 {
		return fmt.Errorf("postgres: replace %s: table has no columns", id)
	}
	create, err := createSQL(id, t.Columns, false)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if id.Schema != "" {
		if _, err := tx.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgIdent(id.Schema)); err != nil {
			return wrapPgErr("create schema", err)
		}
	}
	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+pgTable(id)); err != nil {
		return wrapPgErr("drop "+id.String(), err)
	}
	if _, err := tx.Exec(ctx, create); err != nil {
		return wrapPgErr("create "+id.String(), err)
	}
	if _, err := copyRows(ctx, tx, id, t.ColumnNames(), t.Rows); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// EnsureTable implements storage.Repository.
func (r *Repository) EnsureTable(ctx context.Context, id storage.TableID, cols []table.Column) error {
	create, err := createSQL(id, cols, true)
	if err != nil {
		return err
	}
	if id.Schema != "" {
		if _, err := r.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgIdent(id.Schema)); err != nil {
			return wrapPgErr("create schema", err)
		}
	}
	if _, err := r.pool.Exec(ctx, create); err != nil {
		return wrapPgErr("create "+id.String(), err)
	}
	return nil
}

// Append implements storage.Repository using COPY; values are never spliced
// into SQL text.
func (r *Repository) Append(ctx context.Context, id storage.TableID, columns []string, rows []table.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	n, err := copyRows(ctx, tx, id, columns, rows)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit: %w", err)
	}
	return n, nil
}

// Close implements storage.Repository.
func (r *Repository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

func (r *Repository) exists(ctx context.Context, id storage.TableID) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", pgTable(id)).Scan(&ok); err != nil {
		return false, wrapPgErr("check "+id.String(), err)
	}
	return ok, nil
}

func copyRows(ctx context.Context, tx pgx.Tx, id storage.TableID, columns []string, rows []table.Row) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("postgres: copy %s: columns must not be empty", id)
	}
	src := make([][]any, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("postgres: copy %s: row length %d != columns length %d", id, len(row), len(columns))
		}
		src[i] = row
	}
	n, err := tx.CopyFrom(ctx, pgIdentifier(id), columns, pgx.CopyFromRows(src))
	if err != nil {
		return 0, wrapPgErr("copy into "+id.String(), err)
	}
	return n, nil
}

func createSQL(id storage.TableID, cols []table.Column, ifNotExists bool) (string, error) {
	stmt, err := ddl.BuildCreateTableSQL(
		ddl.FromColumns(pgTable(id), cols, mapType),
		ddl.Options{QuoteIdent: pgIdent, IfNotExists: ifNotExists},
	)
	if err != nil {
		return "", fmt.Errorf("postgres: %w", err)
	}
	return stmt, nil
}

// wrapPgErr surfaces the server detail of a PgError when present.
func wrapPgErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("postgres: %s: %s (%s): %w", op, pgErr.Detail, pgErr.SQLState(), err)
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}

func mapType(t table.Type) string {
	switch t {
	case table.Int:
		return "BIGINT"
	case table.Float:
		return "DOUBLE PRECISION"
	case table.Bool:
		return "BOOLEAN"
	case table.Timestamp:
		return "TIMESTAMPTZ"
	case table.Date:
		return "DATE"
	}
	return "TEXT"
}

// columnType maps a pgtype name back to a logical type.
func columnType(name string) table.Type {
	switch name {
	case "int2", "int4", "int8":
		return table.Int
	case "float4", "float8", "numeric":
		return table.Float
	case "bool":
		return table.Bool
	case "timestamp", "timestamptz":
		return table.Timestamp
	case "date":
		return table.Date
	}
	return table.String
}

// fromPg unwraps pgtype values that have no plain Go equivalent.
func fromPg(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	}
	return v
}

func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgTable quotes a TableID as "schema"."name" or "name".
func pgTable(id storage.TableID) string {
	if id.Schema == "" {
		return pgIdent(id.Name)
	}
	return pgIdent(id.Schema) + "." + pgIdent(id.Name)
}

func pgIdentifier(id storage.TableID) pgx.Identifier {
	if id.Schema == "" {
		return pgx.Identifier{id.Name}
	}
	return pgx.Identifier{id.Schema, id.Name}
}
