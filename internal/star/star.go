// Package star reads and writes the STAR-flavored table format the
// pipeline persists through: named data blocks holding either single
// key/value items or a loop_ table of whitespace-separated rows.
//
// The format is line-oriented and human-readable:
//
//	data_pipeline_general
//
//	_pipelineName  Preprocessing
//
//	data_pipeline_nodes
//
//	loop_
//	_nodeName
//	_nodeType
//	Import/job001/movies.star 0
//
// Values containing whitespace are double-quoted. Lines starting with '#'
// are comments. The package is format-level only; translating blocks to
// and from the domain model is the caller's job, so a parse failure never
// touches any live state.
package star

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// File is a parsed document: an ordered list of data blocks.
type File struct {
	Blocks []*Block
}

// Block returns the first block with the given name.
func (f *File) Block(name string) (*Block, bool) {
	for _, b := range f.Blocks {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}

// Block is one data_ section: key/value items, an optional loop table, or
// both.
type Block struct {
	Name  string
	Items []Item
	Loop  *Loop
}

// Item is a single _key value line.
type Item struct {
	Key   string
	Value string
}

// Value returns the value of the item with the given key.
func (b *Block) Value(key string) (string, bool) {
	for _, it := range b.Items {
		if it.Key == key {
			return it.Value, true
		}
	}
	return "", false
}

// Loop is a loop_ table: column keys followed by rows of fields.
type Loop struct {
	Keys []string
	Rows [][]string
}

// Parse reads a complete document from r.
func Parse(r io.Reader) (*File, error) {
	f := &File{}
	var block *Block
	inLoopHeader := false

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "#"):
			continue

		case strings.HasPrefix(line, "data_"):
			block = &Block{Name: strings.TrimPrefix(line, "data_")}
			f.Blocks = append(f.Blocks, block)
			inLoopHeader = false

		case line == "loop_":
			if block == nil {
				return nil, parseErr(lineno, "loop_ outside a data block")
			}
			if block.Loop != nil {
				return nil, parseErr(lineno, "second loop_ in block %q", block.Name)
			}
			block.Loop = &Loop{}
			inLoopHeader = true

		case strings.HasPrefix(line, "_"):
			if block == nil {
				return nil, parseErr(lineno, "item outside a data block")
			}
			fields, err := splitFields(line)
			if err != nil {
				return nil, parseErr(lineno, "%v", err)
			}
			if inLoopHeader {
				if len(fields) != 1 {
					return nil, parseErr(lineno, "loop column %q must not carry a value", fields[0])
				}
				block.Loop.Keys = append(block.Loop.Keys, fields[0])
				continue
			}
			if len(fields) != 2 {
				return nil, parseErr(lineno, "item %q must have exactly one value", fields[0])
			}
			block.Items = append(block.Items, Item{Key: fields[0], Value: fields[1]})

		default:
			// A data row of the current loop table.
			if block == nil || block.Loop == nil {
				return nil, parseErr(lineno, "unexpected row outside a loop_ table")
			}
			inLoopHeader = false
			fields, err := splitFields(line)
			if err != nil {
				return nil, parseErr(lineno, "%v", err)
			}
			if len(fields) != len(block.Loop.Keys) {
				return nil, parseErr(lineno, "row has %d fields, table %q has %d columns",
					len(fields), block.Name, len(block.Loop.Keys))
			}
			block.Loop.Rows = append(block.Loop.Rows, fields)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("star: reading input: %w", err)
	}
	return f, nil
}

func parseErr(lineno int, format string, args ...any) error {
	return fmt.Errorf("star: line %d: %s", lineno, fmt.Sprintf(format, args...))
}

// splitFields splits a line into whitespace-separated fields, honoring
// double quotes around fields that contain whitespace.
func splitFields(line string) ([]string, error) {
	var fields []string
	i := 0
	for i < len(line) {
		for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
			i++
		}
		if i >= len(line) {
			break
		}
		if line[i] == '"' {
			j := strings.IndexByte(line[i+1:], '"')
			if j < 0 {
				return nil, fmt.Errorf("unterminated quote")
			}
			fields = append(fields, line[i+1:i+1+j])
			i += j + 2
			continue
		}
		j := strings.IndexAny(line[i:], " \t")
		if j < 0 {
			fields = append(fields, line[i:])
			break
		}
		fields = append(fields, line[i:i+j])
		i += j
	}
	return fields, nil
}

// Writer emits a document block by block. Errors stick to the Writer and
// are reported once by Flush, so emit calls can be chained without
// per-call checks.
type Writer struct {
	bw      *bufio.Writer
	err     error
	columns int
}

// NewWriter returns a Writer emitting to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// Block starts a new data block.
func (w *Writer) Block(name string) {
	w.printf("\ndata_%s\n\n", name)
	w.columns = 0
}

// Item emits a single _key value line.
func (w *Writer) Item(key, value string) {
	w.printf("%s %s\n", key, w.quote(value))
}

// Loop starts a loop table with the given column keys.
func (w *Writer) Loop(keys ...string) {
	w.printf("loop_\n")
	for _, k := range keys {
		w.printf("%s\n", k)
	}
	w.columns = len(keys)
}

// Row emits one table row; the field count must match the open loop.
func (w *Writer) Row(fields ...string) {
	if w.err == nil && len(fields) != w.columns {
		w.err = fmt.Errorf("star: row has %d fields, loop has %d columns", len(fields), w.columns)
		return
	}
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = w.quote(f)
	}
	w.printf("%s\n", strings.Join(quoted, " "))
}

// Flush writes any buffered output and returns the first error
// encountered while emitting.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.bw.Flush()
}

func (w *Writer) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.bw, format, args...)
}

// quote wraps fields containing whitespace in double quotes. Double
// quotes and line breaks have no single-line representation, so a field
// containing one fails the whole write instead of being rewritten.
func (w *Writer) quote(s string) string {
	if strings.ContainsAny(s, "\"\n\r") {
		if w.err == nil {
			w.err = fmt.Errorf("star: field %q contains a quote or line break", s)
		}
		return s
	}
	if s == "" || strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}
