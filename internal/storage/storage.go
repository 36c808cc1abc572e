// Package storage contains the warehouse contract shared by every backend and
// a small factory through which backends register themselves.
//
// Backends live in sub-packages (sqlite, postgres, mssql, mysql, snowflake)
// and call Register from init. Importing storage/all wires them all.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"aviation/internal/table"
)

// ErrTableNotFound is returned (wrapped) by ReadTable when the table does
// not exist.
var ErrTableNotFound = errors.New("table not found")

// ErrUnsupportedKind is returned (wrapped) by New for unregistered kinds.
var ErrUnsupportedKind = errors.New("unsupported storage.kind")

// TableID names a warehouse table. Database and Schema may be empty.
type TableID struct {
	Database string
	Schema   string
	Name     string
}

// ParseTableID parses "name", "schema.name" or "database.schema.name".
func ParseTableID(s string) (TableID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TableID{}, fmt.Errorf("storage: empty table name")
	}
	parts := strings.Split(s, ".")
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return TableID{}, fmt.Errorf("storage: invalid table name %q", s)
		}
	}
	switch len(parts) {
	case 1:
		return TableID{Name: parts[0]}, nil
	case 2:
		return TableID{Schema: parts[0], Name: parts[1]}, nil
	case 3:
		return TableID{Database: parts[0], Schema: parts[1], Name: parts[2]}, nil
	}
	return TableID{}, fmt.Errorf("storage: table name %q has more than three parts", s)
}

// MustParseTableID is ParseTableID for compile-time constants.
func MustParseTableID(s string) TableID {
	id, err := ParseTableID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// Qualify returns id with missing database/schema parts taken from ns, a
// "<database>.<schema>" or "<schema>" prefix. A fully qualified id is
// returned unchanged.
func Qualify(id TableID, ns string) TableID {
	if id.Schema != "" || ns == "" {
		return id
	}
	parts := strings.Split(ns, ".")
	switch len(parts) {
	case 1:
		id.Schema = parts[0]
	default:
		id.Database, id.Schema = parts[0], parts[1]
	}
	return id
}

// String renders the id in dotted form, omitting empty parts.
func (id TableID) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{id.Database, id.Schema, id.Name} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

// WithSuffix returns a sibling id whose name carries suffix.
func (id TableID) WithSuffix(suffix string) TableID {
	id.Name += suffix
	return id
}

// Repository is the warehouse contract used by jobs and the audit logger.
type Repository interface {
	// ReadTable returns every row of id. Values are normalized to the column
	// types reported by the backend. Missing tables yield ErrTableNotFound.
	ReadTable(ctx context.Context, id TableID) (*table.Table, error)

	// ReplaceTable atomically replaces id with t, creating it when absent.
	// Readers never observe a partially written table.
	ReplaceTable(ctx context.Context, id TableID, t *table.Table) error

	// EnsureTable creates id with cols when it does not exist. An existing
	// table is left untouched.
	EnsureTable(ctx context.Context, id TableID, cols []table.Column) error

	// Append inserts rows (aligned to columns) into an existing table and
	// returns the number of rows inserted. Values are bound as parameters.
	Append(ctx context.Context, id TableID, columns []string, rows []table.Row) (int64, error)

	// Close releases the underlying connection pool.
	Close()
}

// Config carries backend-agnostic connection settings.
type Config struct {
	Kind string
	DSN  string
}

// Factory opens a repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w=%s", ErrUnsupportedKind, cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
