package sprintpatch

import (
	"fmt"
	"sync"
)

// slotAlign matches the 16 byte function alignment compilers use.
const slotAlign = 16

// A Pool hands out executable memory for trampolines. Memory is never given
// back; a trampoline lives as long as the process.
type Pool interface {
	Allocate(size int) (Address, error)
}

// SpanPool carves slots out of a fixed span of memory, front to back.
type SpanPool struct {
	mu   sync.Mutex
	next Address
	end  Address
}

// NewSpanPool returns a pool over [start, start+size).
func NewSpanPool(start Address, size int) *SpanPool {
	return &SpanPool{
		next: start,
		end:  start + Address(size),
	}
}

func (p *SpanPool) Allocate(size int) (Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if size <= 0 {
		return 0, fmt.Errorf("invalid trampoline size %d", size)
	}

	slot := p.next
	next := (slot + Address(size) + slotAlign - 1) &^ (slotAlign - 1)
	if slot+Address(size) > p.end {
		return 0, fmt.Errorf("%w: %d bytes requested, %d left", ErrPoolExhausted, size, p.end-slot)
	}
	if next > p.end {
		next = p.end
	}
	p.next = next
	return slot, nil
}

// Remaining returns the number of bytes left in the pool.
func (p *SpanPool) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int(p.end - p.next)
}
