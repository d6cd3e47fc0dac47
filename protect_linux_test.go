package sprintpatch

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func mapCodePage(t *testing.T) []byte {
	t.Helper()

	page, err := unix.Mmap(-1, 0, unix.Getpagesize(), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	require.NoError(t, err)
	t.Cleanup(func() { unix.Munmap(page) })

	for i := range page {
		page[i] = opcodeINT3
	}
	require.NoError(t, unix.Mprotect(page, unix.PROT_READ|unix.PROT_EXEC))
	return page
}

func TestSelf_WriteCodePage(t *testing.T) {
	assert := assert.New(t)

	page := mapCodePage(t)
	base := Address(uintptr(unsafe.Pointer(&page[0])))

	prot, err := currentProtection(base)
	require.NoError(t, err)
	require.Equal(t, ProtReadExec, prot)

	p := NewPatcher(Self())
	require.NoError(t, p.WriteJump(base+0x10, base+0x100))

	assert.Equal([]byte{0xe9, 0xeb, 0x00, 0x00, 0x00}, page[0x10:0x15])
	assert.Equal(byte(opcodeINT3), page[0x15])

	prot, err = currentProtection(base)
	require.NoError(t, err)
	assert.Equal(ProtReadExec, prot, "protection not restored")

	op, target, err := FollowBranch(Self(), base+0x10)
	require.NoError(t, err)
	assert.Equal(OpJump, op)
	assert.Equal(base+0x100, target)
}

func TestCurrentProtection_Unmapped(t *testing.T) {
	_, err := currentProtection(0x1000)
	assert.ErrorIs(t, err, ErrFault)
}

func TestParsePerms(t *testing.T) {
	assert.Equal(t, ProtReadExec, parsePerms("r-xp"))
	assert.Equal(t, ProtReadWrite, parsePerms("rw-p"))
	assert.Equal(t, ProtReadWriteExec, parsePerms("rwxs"))
	assert.Equal(t, Protection(0), parsePerms("---p"))
}
