package wikiextract

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// FieldKind is the grammar of one tuple column.
type FieldKind int

const (
	// FieldUint is an unsigned decimal integer.
	FieldUint FieldKind = iota
	// FieldInt is a decimal integer with an optional leading minus.
	FieldInt
	// FieldString is a single-quoted string using backslash escapes.
	FieldString
)

// Field describes one column of a tuple schema.
type Field struct {
	Kind FieldKind
	// FoldUnderscores replaces unescaped underscores with spaces while
	// decoding a string column. Titles are stored with underscores
	// standing in for spaces; escaped characters are kept verbatim.
	FoldUnderscores bool
}

// Row is one decoded tuple. Ints and Strs hold the integer and string
// columns in schema order. The slices are reused between emit calls.
type Row struct {
	Ints []int64
	Strs []string
}

// TupleSyntaxError reports a byte that cannot continue the grammar of
// the field being decoded. The schema is asserted, not guessed, so the
// whole stream is abandoned.
type TupleSyntaxError struct {
	Field int
	Byte  byte
}

func (e *TupleSyntaxError) Error() string {
	return fmt.Sprintf("unexpected byte %q in tuple field %d", e.Byte, e.Field)
}

// ErrAnchorNotFound means the end of the stream was reached before an
// expected literal marker. The dump's structural anchors are assumed
// present, so this is fatal to the stage.
var ErrAnchorNotFound = errors.New("end of stream before expected anchor")

// SkipUntilPrefix consumes bytes until the given literal has just been
// read, comparing through a fixed-size circular buffer.
func SkipUntilPrefix(r io.ByteReader, prefix []byte) error {
	buf := make([]byte, len(prefix))
	pos := 0
	for {
		b, err := r.ReadByte()
		if err == io.EOF {
			return errors.Wrapf(ErrAnchorNotFound, "%q", prefix)
		}
		if err != nil {
			return errors.Wrapf(err, "scanning for %q", prefix)
		}
		buf[pos] = b
		pos = (pos + 1) % len(buf)

		match := true
		for i, want := range prefix {
			if buf[(pos+i)%len(buf)] != want {
				match = false
				break
			}
		}
		if match {
			return nil
		}
	}
}

type tupleState int

const (
	stateSearching tupleState = iota
	stateInt
	stateStringOpen
	stateString
	stateStringEscape
	stateAfterString
)

// ParseTuples reconstructs successive "(f1,f2,...)" tuples from a byte
// stream positioned just after the INSERT preamble and calls emit for
// each. Bytes between tuples (commas, the trailing semicolon) are
// skipped; a byte that cannot continue the current field's grammar
// aborts with a TupleSyntaxError. Parsing stops at end of stream.
func ParseTuples(r io.ByteReader, schema []Field, emit func(Row) error) error {
	row := Row{
		Ints: make([]int64, 0, len(schema)),
		Strs: make([]string, 0, len(schema)),
	}
	var (
		state  = stateSearching
		field  int
		intVal int64
		neg    bool
		sb     strings.Builder
	)

	enterField := func() {
		if schema[field].Kind == FieldString {
			state = stateStringOpen
			return
		}
		state = stateInt
		intVal, neg = 0, false
	}

	commitInt := func() {
		if neg {
			intVal = -intVal
		}
		row.Ints = append(row.Ints, intVal)
	}

	lastField := len(schema) - 1
	for {
		b, err := r.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "reading tuple stream")
		}

		switch state {
		case stateSearching:
			if b == '(' {
				row.Ints = row.Ints[:0]
				row.Strs = row.Strs[:0]
				field = 0
				enterField()
			}

		case stateInt:
			switch {
			case b >= '0' && b <= '9':
				intVal = intVal*10 + int64(b-'0')
			case b == '-' && schema[field].Kind == FieldInt && intVal == 0:
				neg = true
			case b == ',' && field < lastField:
				commitInt()
				field++
				enterField()
			case b == ')' && field == lastField:
				commitInt()
				if err := emit(row); err != nil {
					return err
				}
				state = stateSearching
			default:
				return &TupleSyntaxError{Field: field, Byte: b}
			}

		case stateStringOpen:
			if b != '\'' {
				return &TupleSyntaxError{Field: field, Byte: b}
			}
			sb.Reset()
			state = stateString

		case stateString:
			switch b {
			case '\'':
				row.Strs = append(row.Strs, sb.String())
				state = stateAfterString
			case '\\':
				state = stateStringEscape
			default:
				if b == '_' && schema[field].FoldUnderscores {
					sb.WriteByte(' ')
				} else {
					sb.WriteByte(b)
				}
			}

		case stateStringEscape:
			sb.WriteByte(b)
			state = stateString

		case stateAfterString:
			switch {
			case b == ',' && field < lastField:
				field++
				enterField()
			case b == ')' && field == lastField:
				if err := emit(row); err != nil {
					return err
				}
				state = stateSearching
			default:
				return &TupleSyntaxError{Field: field, Byte: b}
			}
		}
	}
}
