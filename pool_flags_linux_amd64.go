package sprintpatch

import "golang.org/x/sys/unix"

// Map the arena below 2 GiB where a rel32 branch from a low image can reach it.
//
// https://man7.org/linux/man-pages/man2/mmap.2.html
const map32bit = unix.MAP_32BIT
