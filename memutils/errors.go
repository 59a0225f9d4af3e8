package memutils

import "github.com/pkg/errors"

// PowerOfTwoError is returned from CheckPow2 when a size or alignment that must be a power
// of two, such as a heap chunk size, is not one
var PowerOfTwoError error = errors.New("value must be a power of two")
