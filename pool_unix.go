//go:build unix

package sprintpatch

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/pboyd/malloc"
	"golang.org/x/sys/unix"
)

// ExecPool allocates trampolines from an executable arena mapped in the
// current process.
//
// The arena is mapped writable and dropped to read+execute after the first
// slot is carved out of it.
// Writing code into a slot goes through a Patcher like any other code page.
type ExecPool struct {
	*malloc.Arena
	mprotect func(int) error
	mu       sync.Mutex
	mutable  bool
}

// NewExecPool maps an executable arena of at least size bytes.
//
// near is passed to mmap as a placement hint. On linux/amd64 the kernel
// ignores hints above 2 GiB for MAP_32BIT mappings and places the arena in
// the low 2 GiB, which keeps it in range of images loaded there. Either way
// the installer still checks every branch.
func NewExecPool(near Address, size int) (*ExecPool, error) {
	be := malloc.MmapBackend(
		malloc.MmapProt(unix.PROT_EXEC),
		malloc.MmapFlags(map32bit),
		malloc.MmapAddr(uintptr(near)),
	)

	p := &ExecPool{}
	if protBE, ok := be.(malloc.ProtectedArenaBackend); ok {
		p.mprotect = protBE.Protect
	} else {
		p.mprotect = func(int) error {
			return nil
		}
	}

	p.Arena = malloc.NewArena(uint64(size), malloc.Backend(be))
	if p.Arena == nil {
		return nil, fmt.Errorf("%w: unable to initialize arena", ErrPoolExhausted)
	}
	p.mutable = true
	return p, nil
}

func (p *ExecPool) beginMutate() error {
	if p.mutable {
		return nil
	}
	err := p.mprotect(unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC)
	if err == nil {
		p.mutable = true
	}
	return err
}

func (p *ExecPool) endMutate() error {
	if !p.mutable {
		return nil
	}
	err := p.mprotect(unix.PROT_READ | unix.PROT_EXEC)
	if err == nil {
		p.mutable = false
	}
	return err
}

func (p *ExecPool) Allocate(size int) (addr Address, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if size <= 0 {
		return 0, fmt.Errorf("invalid trampoline size %d", size)
	}

	if err := p.beginMutate(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProtect, err)
	}
	defer func() {
		if endErr := p.endMutate(); endErr != nil {
			err = errors.Join(err, fmt.Errorf("%w: %w", ErrProtect, endErr))
		}
	}()

	// Round up so slots stay aligned and never share their tail.
	size = (size + slotAlign - 1) &^ (slotAlign - 1)

	buf, err := malloc.MallocSlice[byte](p.Arena, size)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPoolExhausted, err)
	}
	return Address(uintptr(unsafe.Pointer(unsafe.SliceData(buf)))), nil
}
