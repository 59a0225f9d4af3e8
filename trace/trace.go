// Package trace reads allocation traces in the malloc lab format and replays them against
// an mm.Allocator, checking every block the allocator hands out.
//
// A trace starts with four integers: the suggested heap size, the number of distinct block
// ids, the number of operations and a weight. Each operation that follows is one of
//
//	a <id> <size>   allocate size bytes for id
//	r <id> <size>   reallocate id to size bytes
//	f <id>          free id
package trace

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cockroachdb/errors"
)

// ErrMalformedTrace indicates a trace that could not be parsed
var ErrMalformedTrace = errors.New("trace: malformed trace")

type OpKind int

const (
	OpAlloc OpKind = iota
	OpFree
	OpRealloc
)

var opKindMapping = map[OpKind]string{
	OpAlloc:   "alloc",
	OpFree:    "free",
	OpRealloc: "realloc",
}

func (k OpKind) String() string {
	return opKindMapping[k]
}

// Op is a single trace operation. Size is unused for OpFree.
type Op struct {
	Kind OpKind
	ID   int
	Size int
}

type Trace struct {
	Name              string
	SuggestedHeapSize int
	IDCount           int
	Weight            int
	Ops               []Op
}

type tokenizer struct {
	scanner *bufio.Scanner
	name    string
}

func (t *tokenizer) next(what string) (string, error) {
	if !t.scanner.Scan() {
		err := t.scanner.Err()
		if err != nil {
			return "", errors.Wrapf(err, "read trace %s", t.name)
		}
		return "", errors.Mark(errors.Newf("trace %s ended while reading %s", t.name, what), ErrMalformedTrace)
	}

	return t.scanner.Text(), nil
}

func (t *tokenizer) nextInt(what string) (int, error) {
	token, err := t.next(what)
	if err != nil {
		return 0, err
	}

	value, err := strconv.Atoi(token)
	if err != nil {
		return 0, errors.Mark(errors.Wrapf(err, "trace %s: %s", t.name, what), ErrMalformedTrace)
	}

	if value < 0 {
		return 0, errors.Mark(errors.Newf("trace %s: %s is negative: %d", t.name, what, value), ErrMalformedTrace)
	}

	return value, nil
}

// Parse reads a trace from r. name only labels the trace and its errors.
func Parse(name string, r io.Reader) (*Trace, error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	tokens := &tokenizer{scanner: scanner, name: name}

	trace := &Trace{Name: name}

	var err error
	trace.SuggestedHeapSize, err = tokens.nextInt("suggested heap size")
	if err != nil {
		return nil, err
	}

	trace.IDCount, err = tokens.nextInt("id count")
	if err != nil {
		return nil, err
	}

	opCount, err := tokens.nextInt("op count")
	if err != nil {
		return nil, err
	}

	trace.Weight, err = tokens.nextInt("weight")
	if err != nil {
		return nil, err
	}

	trace.Ops = make([]Op, 0, opCount)
	for i := 0; i < opCount; i++ {
		what := "op " + strconv.Itoa(i)

		kind, err := tokens.next(what)
		if err != nil {
			return nil, err
		}

		var op Op
		switch kind {
		case "a":
			op.Kind = OpAlloc
		case "r":
			op.Kind = OpRealloc
		case "f":
			op.Kind = OpFree
		default:
			return nil, errors.Mark(errors.Newf("trace %s: %s has unknown kind %q", name, what, kind), ErrMalformedTrace)
		}

		op.ID, err = tokens.nextInt(what + " id")
		if err != nil {
			return nil, err
		}

		if op.ID >= trace.IDCount {
			return nil, errors.Mark(errors.Newf("trace %s: %s uses id %d, but the trace declares %d ids", name, what, op.ID, trace.IDCount), ErrMalformedTrace)
		}

		if op.Kind != OpFree {
			op.Size, err = tokens.nextInt(what + " size")
			if err != nil {
				return nil, err
			}
		}

		trace.Ops = append(trace.Ops, op)
	}

	if scanner.Scan() {
		return nil, errors.Mark(errors.Newf("trace %s has data past its %d declared ops: %q", name, opCount, scanner.Text()), ErrMalformedTrace)
	}

	return trace, nil
}

// ParseFile reads the trace at path, naming it after the file
func ParseFile(path string) (*Trace, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open trace")
	}
	defer file.Close()

	return Parse(filepath.Base(path), file)
}
