package wikiextract

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestSkipUntilPrefix(t *testing.T) {
	r := strings.NewReader("-- noise\nINSERT INTO `linktarget` VALUES (1,0,'A')")
	if err := SkipUntilPrefix(r, []byte(linkTargetPreamble)); err != nil {
		t.Fatalf("Error skipping to preamble: %v", err)
	}
	rest, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("Error reading remainder: %v", err)
	}
	if string(rest) != "(1,0,'A')" {
		t.Errorf("Expected reader positioned at tuple, got %q", rest)
	}
}

func TestSkipUntilPrefixMissing(t *testing.T) {
	r := strings.NewReader("no insert statement here")
	err := SkipUntilPrefix(r, []byte(linkTargetPreamble))
	if !errors.Is(err, ErrAnchorNotFound) {
		t.Fatalf("Expected ErrAnchorNotFound, got %v", err)
	}
}

func TestParseTuplesSignedField(t *testing.T) {
	schema := []Field{{Kind: FieldUint}, {Kind: FieldInt}}
	var rows [][]int64
	err := ParseTuples(strings.NewReader("(1,-2),(3,4);"), schema, func(row Row) error {
		rows = append(rows, append([]int64{}, row.Ints...))
		return nil
	})
	if err != nil {
		t.Fatalf("Error parsing tuples: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != 1 || rows[0][1] != -2 {
		t.Errorf("Expected (1,-2), got %v", rows[0])
	}
	if rows[1][0] != 3 || rows[1][1] != 4 {
		t.Errorf("Expected (3,4), got %v", rows[1])
	}
}

func TestParseTuplesSyntaxError(t *testing.T) {
	tests := []struct {
		name   string
		schema []Field
		data   string
	}{
		{"letter in integer", pageLinkSchema, "(12a,0,5)"},
		{"minus in unsigned field", pageLinkSchema, "(-1,0,5)"},
		{"unquoted string", linkTargetSchema, "(1,0,Example)"},
		{"too few fields", pageLinkSchema, "(1,0)"},
	}
	for _, test := range tests {
		err := ParseTuples(strings.NewReader(test.data), test.schema, func(Row) error {
			return nil
		})
		var syntaxErr *TupleSyntaxError
		if !errors.As(err, &syntaxErr) {
			t.Errorf("%v: expected TupleSyntaxError, got %v", test.name, err)
		}
	}
}

func TestParseTuplesStringEscapes(t *testing.T) {
	schema := []Field{{Kind: FieldUint}, {Kind: FieldString, FoldUnderscores: true}}
	var got []string
	err := ParseTuples(strings.NewReader(`(1,'Example\'Page'),(2,'A\_B'),(3,'C\\D')`), schema,
		func(row Row) error {
			got = append(got, row.Strs[0])
			return nil
		})
	if err != nil {
		t.Fatalf("Error parsing tuples: %v", err)
	}
	expected := []string{"Example'Page", "A_B", `C\D`}
	if len(got) != len(expected) {
		t.Fatalf("Expected %d rows, got %d", len(expected), len(got))
	}
	for i, want := range expected {
		if got[i] != want {
			t.Errorf("Row %d: expected %q, got %q", i, want, got[i])
		}
	}
}

func TestParseTuplesEmitError(t *testing.T) {
	wantErr := errors.New("stop")
	err := ParseTuples(strings.NewReader("(1,2,3)"), pageLinkSchema, func(Row) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Expected emit error to propagate, got %v", err)
	}
}
