//go:build unix && !(linux && amd64)

package sprintpatch

// Only linux/amd64 has MAP_32BIT. Elsewhere we'll have to trust the OS to
// give us a suitable address.
const map32bit = 0
