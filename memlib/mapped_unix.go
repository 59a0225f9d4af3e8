//go:build linux || darwin || freebsd || netbsd || openbsd

package memlib

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

func reserve(size int) ([]byte, func() error, error) {
	buf, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "reserve %d bytes of heap", size)
	}

	return buf, func() error {
		return unix.Munmap(buf)
	}, nil
}
