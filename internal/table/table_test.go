package table

import (
	"reflect"
	"testing"
	"time"
)

func sample() *Table {
	t := New([]Column{{Name: "A", Type: Int}, {Name: "B", Type: String}})
	t.Rows = []Row{{int64(1), "x"}, {nil, "y"}}
	return t
}

func TestTableBasics(t *testing.T) {
	tb := sample()
	if tb.Len() != 2 {
		t.Fatalf("Len = %d", tb.Len())
	}
	if tb.Index("B") != 1 || tb.Index("b") != -1 {
		t.Fatalf("Index is not case-sensitive")
	}
	if got := tb.ColumnNames(); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("ColumnNames = %v", got)
	}
	col, err := tb.Column("A")
	if err != nil || !reflect.DeepEqual(col, []any{int64(1), nil}) {
		t.Fatalf("Column(A) = %v, %v", col, err)
	}
	if _, err := tb.Column("C"); err == nil {
		t.Fatal("Column(C) succeeded")
	}
	if err := tb.Append(Row{int64(3)}); err == nil {
		t.Fatal("Append accepted a short row")
	}
	var nilTable *Table
	if nilTable.Len() != 0 {
		t.Fatal("nil table Len != 0")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := sample()
	c := orig.Clone()
	c.Rows[0][0] = int64(99)
	c.Columns[0].Type = String
	c.Rows = c.Rows[:1]

	if orig.Rows[0][0] != int64(1) || orig.Columns[0].Type != Int || len(orig.Rows) != 2 {
		t.Fatalf("clone mutation leaked into original: %+v", orig)
	}
}

func TestFingerprint(t *testing.T) {
	a := sample()
	b := sample()
	if Fingerprint(a) != Fingerprint(b) {
		t.Fatal("equal tables have different fingerprints")
	}

	b.Rows[0][1] = "z"
	if Fingerprint(a) == Fingerprint(b) {
		t.Fatal("different content has the same fingerprint")
	}

	// "1" and 1 must not collide.
	s := New([]Column{{Name: "A", Type: Int}, {Name: "B", Type: String}})
	s.Rows = []Row{{"1", "x"}, {nil, "y"}}
	if Fingerprint(a) == Fingerprint(s) {
		t.Fatal("string and int values collide")
	}

	// Row order matters.
	r := sample()
	r.Rows[0], r.Rows[1] = r.Rows[1], r.Rows[0]
	if Fingerprint(a) == Fingerprint(r) {
		t.Fatal("row order ignored")
	}
}

func TestFingerprintExclude(t *testing.T) {
	mk := func(ts time.Time) *Table {
		t := New([]Column{{Name: "A", Type: String}, {Name: "LOAD_TIMESTAMP", Type: Timestamp}})
		t.Rows = []Row{{"x", ts}}
		return t
	}
	t1 := mk(time.Unix(1, 0).UTC())
	t2 := mk(time.Unix(2, 0).UTC())
	if Fingerprint(t1) == Fingerprint(t2) {
		t.Fatal("timestamps ignored without exclusion")
	}
	if Fingerprint(t1, "LOAD_TIMESTAMP") != Fingerprint(t2, "LOAD_TIMESTAMP") {
		t.Fatal("excluded column still affects the fingerprint")
	}
	if Fingerprint(t1, "MISSING") != Fingerprint(t1) {
		t.Fatal("unknown exclusion changed the fingerprint")
	}
}
