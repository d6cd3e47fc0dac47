package sprintpatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCodeRegion(base Address, size int) *Region {
	r := NewRegion(base, size, ProtReadExec)
	for i := range r.Bytes() {
		r.Bytes()[i] = opcodeINT3
	}
	return r
}

func TestPatcher_WriteFixedWidth(t *testing.T) {
	const base = Address(0x140001000)

	cases := map[string]struct {
		write func(*Patcher, Address) error
		want  []byte
	}{
		"8": {
			write: func(p *Patcher, addr Address) error { return p.Write8(addr, 0x90) },
			want:  []byte{0x90},
		},
		"16": {
			write: func(p *Patcher, addr Address) error { return p.Write16(addr, 0xb848) },
			want:  []byte{0x48, 0xb8},
		},
		"32": {
			write: func(p *Patcher, addr Address) error { return p.Write32(addr, 0xdeadbeef) },
			want:  []byte{0xef, 0xbe, 0xad, 0xde},
		},
		"64": {
			write: func(p *Patcher, addr Address) error { return p.Write64(addr, 0x00007ffe12345678) },
			want:  []byte{0x78, 0x56, 0x34, 0x12, 0xfe, 0x7f, 0x00, 0x00},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			r := newCodeRegion(base, 32)
			p := NewPatcher(r)

			require.NoError(t, tc.write(p, base+8))

			assert.Equal(tc.want, r.Bytes()[8:8+len(tc.want)])
			assert.Equal(ProtReadExec, r.Protection(), "protection not restored")

			// Nothing else changed.
			for i, b := range r.Bytes() {
				if i >= 8 && i < 8+len(tc.want) {
					continue
				}
				assert.Equal(byte(opcodeINT3), b, "byte %d", i)
			}
		})
	}
}

func TestPatcher_WriteJump(t *testing.T) {
	r := newCodeRegion(0x140001000, 32)
	p := NewPatcher(r)

	require.NoError(t, p.WriteJump(0x140001000, 0x140001010))
	assert.Equal(t, []byte{0xe9, 0x0b, 0x00, 0x00, 0x00}, r.Bytes()[:5])
	assert.Equal(t, ProtReadExec, r.Protection())

	require.NoError(t, p.WriteCall(0x140001008, 0x140001000))
	assert.Equal(t, []byte{0xe8, 0xf3, 0xff, 0xff, 0xff}, r.Bytes()[8:13])
}

func TestPatcher_WriteJumpOutOfRange(t *testing.T) {
	r := newCodeRegion(0x140001000, 32)
	p := NewPatcher(r)

	err := p.WriteJump(0x140001000, 0x7ffe12340000)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Equal(t, newCodeRegion(0x140001000, 32).Bytes(), r.Bytes(), "bytes written on failure")
}

type protectFailure struct {
	*Region
	failRestore bool
	calls       int
}

func (m *protectFailure) Protect(addr Address, size int, prot Protection) (Protection, error) {
	m.calls++
	if !m.failRestore || m.calls > 1 {
		return 0, errors.New("access denied")
	}
	return m.Region.Protect(addr, size, prot)
}

func TestPatcher_ProtectFailure(t *testing.T) {
	t.Run("unprotect", func(t *testing.T) {
		m := &protectFailure{Region: newCodeRegion(0x1000, 16)}
		err := NewPatcher(m).Write32(0x1000, 1)
		assert.ErrorIs(t, err, ErrProtect)
		assert.Equal(t, byte(opcodeINT3), m.Bytes()[0])
	})

	t.Run("restore", func(t *testing.T) {
		m := &protectFailure{Region: newCodeRegion(0x1000, 16), failRestore: true}
		err := NewPatcher(m).Write8(0x1000, 0x90)
		assert.ErrorIs(t, err, ErrProtect)
		assert.Contains(t, err.Error(), "restoring")
	})
}

func TestPatcher_Unmapped(t *testing.T) {
	r := newCodeRegion(0x1000, 16)
	err := NewPatcher(r).Write64(0x100c, 0)
	assert.ErrorIs(t, err, ErrProtect)
	assert.ErrorIs(t, err, ErrFault)
}

func TestRegion_WriteRequiresWritable(t *testing.T) {
	r := newCodeRegion(0x1000, 16)
	assert.ErrorIs(t, r.Write(0x1000, []byte{0x90}), ErrFault)

	_, err := r.Protect(0x1000, 1, ProtReadWriteExec)
	require.NoError(t, err)
	assert.NoError(t, r.Write(0x1000, []byte{0x90}))
}

func TestSpace(t *testing.T) {
	a := NewRegion(0x1000, 16, ProtReadWrite)
	b := NewRegion(0x8000, 16, ProtReadWrite)
	space := Space{a, b}

	require.NoError(t, space.Write(0x8004, []byte{1, 2}))
	assert.Equal(t, []byte{1, 2}, b.Bytes()[4:6])

	buf := make([]byte, 2)
	require.NoError(t, space.Read(0x8004, buf))
	assert.Equal(t, []byte{1, 2}, buf)

	// Straddling two regions is a fault even if both ends are mapped.
	assert.ErrorIs(t, space.Read(0x100f, buf), ErrFault)
	assert.ErrorIs(t, space.Read(0x4000, buf), ErrFault)
}
