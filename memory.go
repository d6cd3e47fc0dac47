package sprintpatch

import (
	"fmt"
	"strconv"
)

// Address is a location in the host process. It is not a Go pointer: its
// validity comes from the host process, not the type system, and it is only
// ever read or written through a Memory.
type Address uintptr

func (a Address) String() string {
	return "0x" + strconv.FormatUint(uint64(a), 16)
}

// Protection is a native page protection value: PROT_* flags on Unix and a
// PAGE_* constant on Windows.
type Protection uint32

// Memory gives access to the host process's address space.
type Memory interface {
	// Read copies len(buf) bytes starting at addr into buf.
	Read(addr Address, buf []byte) error

	// Write copies buf to addr. It does not change protection, so the
	// range must already be writable.
	Write(addr Address, buf []byte) error

	// Protect changes the protection of the pages covering
	// [addr, addr+size) and returns the protection they had before.
	Protect(addr Address, size int, prot Protection) (Protection, error)
}

// Region is a span of fake process memory with a single protection value.
// It stands in for the live process when planning or testing a patch.
type Region struct {
	base Address
	data []byte
	prot Protection
}

// NewRegion returns a zero-filled region of size bytes at base.
func NewRegion(base Address, size int, prot Protection) *Region {
	return &Region{
		base: base,
		data: make([]byte, size),
		prot: prot,
	}
}

// NewRegionFrom returns a region at base backed by data.
func NewRegionFrom(base Address, data []byte, prot Protection) *Region {
	return &Region{
		base: base,
		data: data,
		prot: prot,
	}
}

// Base returns the address of the first byte of the region.
func (r *Region) Base() Address { return r.base }

// End returns the address just past the region.
func (r *Region) End() Address { return r.base + Address(len(r.data)) }

// Bytes returns the region's backing storage.
func (r *Region) Bytes() []byte { return r.data }

// Protection returns the region's current protection.
func (r *Region) Protection() Protection { return r.prot }

// Contains reports whether [addr, addr+size) lies inside the region.
func (r *Region) Contains(addr Address, size int) bool {
	if addr < r.base || size < 0 {
		return false
	}
	off := uint64(addr - r.base)
	return off+uint64(size) <= uint64(len(r.data))
}

func (r *Region) slice(addr Address, size int) ([]byte, error) {
	if !r.Contains(addr, size) {
		return nil, fmt.Errorf("%w: %d bytes at %v outside [%v, %v)", ErrFault, size, addr, r.base, r.End())
	}
	off := int(addr - r.base)
	return r.data[off : off+size], nil
}

func (r *Region) Read(addr Address, buf []byte) error {
	src, err := r.slice(addr, len(buf))
	if err != nil {
		return err
	}
	copy(buf, src)
	return nil
}

func (r *Region) Write(addr Address, buf []byte) error {
	dst, err := r.slice(addr, len(buf))
	if err != nil {
		return err
	}
	if !writable(r.prot) {
		return fmt.Errorf("%w: write to %v with protection %#x", ErrFault, addr, uint32(r.prot))
	}
	copy(dst, buf)
	return nil
}

func (r *Region) Protect(addr Address, size int, prot Protection) (Protection, error) {
	if _, err := r.slice(addr, size); err != nil {
		return 0, err
	}
	old := r.prot
	r.prot = prot
	return old, nil
}

// Space is a sparse address space made of non-overlapping regions.
type Space []*Region

func (s Space) find(addr Address, size int) (*Region, error) {
	for _, r := range s {
		if r.Contains(addr, size) {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %d bytes at %v not mapped", ErrFault, size, addr)
}

func (s Space) Read(addr Address, buf []byte) error {
	r, err := s.find(addr, len(buf))
	if err != nil {
		return err
	}
	return r.Read(addr, buf)
}

func (s Space) Write(addr Address, buf []byte) error {
	r, err := s.find(addr, len(buf))
	if err != nil {
		return err
	}
	return r.Write(addr, buf)
}

func (s Space) Protect(addr Address, size int, prot Protection) (Protection, error) {
	r, err := s.find(addr, size)
	if err != nil {
		return 0, err
	}
	return r.Protect(addr, size, prot)
}
