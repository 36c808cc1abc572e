package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"aviation/internal/ddl"
	"aviation/internal/storage"
	"aviation/internal/table"
)

// StagingSuffix names the table ReplaceBySwap fills before swapping.
const StagingSuffix = "__STAGING"

// Repository is a database/sql backed storage.Repository.
type Repository struct {
	db *sql.DB
	d  Dialect
}

var _ storage.Repository = (*Repository)(nil)

// New wraps an open pool. The repository owns db and closes it in Close.
func New(db *sql.DB, d Dialect) *Repository {
	return &Repository{db: db, d: d}
}

// DB exposes the underlying pool.
func (r *Repository) DB() *sql.DB { return r.db }

// Dialect returns the dialect in use.
func (r *Repository) Dialect() Dialect { return r.d }

// Close implements storage.Repository.
func (r *Repository) Close() {
	if r.db != nil {
		_ = r.db.Close()
	}
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *Repository) exists(ctx context.Context, q queryer, id storage.TableID) (bool, error) {
	query, args := r.d.ExistsSQL(id)
	var n int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("%s: check table %s: %w", r.d.Name(), id, err)
	}
	return n != 0, nil
}

// ReadTable implements storage.Repository.
func (r *Repository) ReadTable(ctx context.Context, id storage.TableID) (*table.Table, error) {
	ok, err := r.exists(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %s: %w", r.d.Name(), id, storage.ErrTableNotFound)
	}

	rows, err := r.db.QueryContext(ctx, "SELECT * FROM "+r.d.Table(id))
	if err != nil {
		return nil, fmt.Errorf("%s: select %s: %w", r.d.Name(), id, err)
	}
	defer rows.Close()

	cts, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("%s: column types %s: %w", r.d.Name(), id, err)
	}
	cols := make([]table.Column, len(cts))
	for i, ct := range cts {
		cols[i] = table.Column{Name: ct.Name(), Type: r.d.ColumnType(ct)}
	}
	out := table.New(cols)

	dest := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%s: scan %s: %w", r.d.Name(), id, err)
		}
		row := make(table.Row, len(cols))
		for i, v := range dest {
			row[i] = table.Normalize(v, cols[i].Type)
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: read %s: %w", r.d.Name(), id, err)
	}
	return out, nil
}

func (r *Repository) createSQL(id storage.TableID, cols []table.Column, ifNotExists bool) (string, error) {
	if f, ok := r.d.(Flavored); ok {
		if len(cols) == 0 {
			return "", fmt.Errorf("create %s: at least one column is required", id)
		}
		ctb := f.Flavor().NewCreateTableBuilder().CreateTable(r.d.Table(id))
		if ifNotExists {
			ctb.IfNotExists()
		}
		for _, c := range cols {
			ctb.Define(r.d.QuoteIdent(c.Name), r.d.MapType(c.Type))
		}
		stmt, _ := ctb.Build()
		return stmt, nil
	}
	return ddl.BuildCreateTableSQL(
		ddl.FromColumns(r.d.Table(id), cols, r.d.MapType),
		ddl.Options{QuoteIdent: r.d.QuoteIdent, IfNotExists: ifNotExists},
	)
}

func (r *Repository) ensureSchema(ctx context.Context, ex execer, id storage.TableID) error {
	for _, stmt := range r.d.EnsureSchemaSQL(id) {
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: ensure schema for %s: %w", r.d.Name(), id, err)
		}
	}
	return nil
}

// EnsureTable implements storage.Repository.
func (r *Repository) EnsureTable(ctx context.Context, id storage.TableID, cols []table.Column) error {
	if err := r.ensureSchema(ctx, r.db, id); err != nil {
		return err
	}
	ok, err := r.exists(ctx, r.db, id)
	if err != nil || ok {
		return err
	}
	stmt, err := r.createSQL(id, cols, false)
	if err != nil {
		return fmt.Errorf("%s: %w", r.d.Name(), err)
	}
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		// A concurrent creator may have won the race.
		if again, _ := r.exists(ctx, r.db, id); again {
			return nil
		}
		return fmt.Errorf("%s: create %s: %w", r.d.Name(), id, err)
	}
	return nil
}

// ReplaceTable implements storage.Repository.
func (r *Repository) ReplaceTable(ctx context.Context, id storage.TableID, t *table.Table) error {
	if t == nil || len(t.Columns) == 0 {
		return fmt.Errorf("%s: replace %s: table has no columns", r.d.Name(), id)
	}
	if err := r.ensureSchema(ctx, r.db, id); err != nil {
		return err
	}
	if r.d.Replace() == ReplaceBySwap {
		return r.replaceBySwap(ctx, id, t)
	}
	return r.replaceInTx(ctx, id, t)
}

func (r *Repository) replaceInTx(ctx context.Context, id storage.TableID, t *table.Table) error {
	create, err := r.createSQL(id, t.Columns, false)
	if err != nil {
		return fmt.Errorf("%s: %w", r.d.Name(), err)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", r.d.Name(), err)
	}
	if _, err := tx.ExecContext(ctx, r.d.DropSQL(id)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%s: drop %s: %w", r.d.Name(), id, err)
	}
	if _, err := tx.ExecContext(ctx, create); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%s: create %s: %w", r.d.Name(), id, err)
	}
	if _, err := r.insert(ctx, tx, id, t.ColumnNames(), t.Rows); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", r.d.Name(), err)
	}
	return nil
}

func (r *Repository) replaceBySwap(ctx context.Context, id storage.TableID, t *table.Table) error {
	staging := id.WithSuffix(StagingSuffix)
	if _, err := r.db.ExecContext(ctx, r.d.DropSQL(staging)); err != nil {
		return fmt.Errorf("%s: drop %s: %w", r.d.Name(), staging, err)
	}
	create, err := r.createSQL(staging, t.Columns, false)
	if err != nil {
		return fmt.Errorf("%s: %w", r.d.Name(), err)
	}
	if _, err := r.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("%s: create %s: %w", r.d.Name(), staging, err)
	}
	// The staging table is private until the swap, so a failed fill leaves
	// the target untouched.
	cleanup := func() { _, _ = r.db.ExecContext(context.WithoutCancel(ctx), r.d.DropSQL(staging)) }

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		cleanup()
		return fmt.Errorf("%s: begin tx: %w", r.d.Name(), err)
	}
	if _, err := r.insert(ctx, tx, staging, t.ColumnNames(), t.Rows); err != nil {
		_ = tx.Rollback()
		cleanup()
		return err
	}
	if err := tx.Commit(); err != nil {
		cleanup()
		return fmt.Errorf("%s: commit: %w", r.d.Name(), err)
	}

	target, err := r.createSQL(id, t.Columns, true)
	if err != nil {
		cleanup()
		return fmt.Errorf("%s: %w", r.d.Name(), err)
	}
	if _, err := r.db.ExecContext(ctx, target); err != nil {
		cleanup()
		return fmt.Errorf("%s: create %s: %w", r.d.Name(), id, err)
	}
	for _, stmt := range r.d.SwapSQL(id, staging) {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			cleanup()
			return fmt.Errorf("%s: swap %s: %w", r.d.Name(), id, err)
		}
	}
	cleanup()
	return nil
}

// Append implements storage.Repository.
func (r *Repository) Append(ctx context.Context, id storage.TableID, columns []string, rows []table.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin tx: %w", r.d.Name(), err)
	}
	n, err := r.insert(ctx, tx, id, columns, rows)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", r.d.Name(), err)
	}
	return n, nil
}

// insert writes rows with multi-row parameterized INSERTs, chunked to stay
// under the dialect's parameter limit.
func (r *Repository) insert(ctx context.Context, ex execer, id storage.TableID, columns []string, rows []table.Row) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("%s: insert %s: columns must not be empty", r.d.Name(), id)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	per := r.d.MaxParams() / len(columns)
	if per < 1 {
		per = 1
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = r.d.QuoteIdent(c)
	}

	var inserted int64
	for start := 0; start < len(rows); start += per {
		end := min(start+per, len(rows))
		chunk := rows[start:end]
		for _, row := range chunk {
			if len(row) != len(columns) {
				return inserted, fmt.Errorf("%s: insert %s: row length %d != columns length %d",
					r.d.Name(), id, len(row), len(columns))
			}
		}

		stmt, args := r.insertSQL(id, quoted, chunk)
		if _, err := ex.ExecContext(ctx, stmt, args...); err != nil {
			return inserted, fmt.Errorf("%s: insert %s: %w", r.d.Name(), id, err)
		}
		inserted += int64(len(chunk))
	}
	return inserted, nil
}

// insertSQL renders one multi-row INSERT of rows into the quoted columns.
func (r *Repository) insertSQL(id storage.TableID, quoted []string, rows []table.Row) (string, []any) {
	if f, ok := r.d.(Flavored); ok {
		ib := f.Flavor().NewInsertBuilder().InsertInto(r.d.Table(id)).Cols(quoted...)
		for _, row := range rows {
			vals := make([]any, len(row))
			for j, v := range row {
				vals[j] = r.d.Bind(v)
			}
			ib.Values(vals...)
		}
		return ib.Build()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", r.d.Table(id), strings.Join(quoted, ", "))
	args := make([]any, 0, len(rows)*len(quoted))
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j, v := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			args = append(args, r.d.Bind(v))
			sb.WriteString(r.d.Placeholder(len(args)))
		}
		sb.WriteByte(')')
	}
	return sb.String(), args
}
