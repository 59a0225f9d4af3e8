package memlib

import "github.com/cockroachdb/errors"

// ErrHeapExhausted is returned from Sbrk when the heap cannot grow by the requested amount
var ErrHeapExhausted = errors.New("heap exhausted")
