package sprintpatch

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// currentProtection looks up the mapping containing addr in /proc/self/maps.
func currentProtection(addr Address) (Protection, error) {
	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		// 7f2c4a1e5000-7f2c4a1e7000 r-xp 00000000 00:00 0
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		lo, hi, ok := strings.Cut(fields[0], "-")
		if !ok {
			continue
		}
		start, err := strconv.ParseUint(lo, 16, 64)
		if err != nil {
			continue
		}
		end, err := strconv.ParseUint(hi, 16, 64)
		if err != nil {
			continue
		}
		if uint64(addr) < start || uint64(addr) >= end {
			continue
		}
		return parsePerms(fields[1]), nil
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("%w: %v is not mapped", ErrFault, addr)
}

func parsePerms(perms string) Protection {
	var prot Protection
	if strings.HasPrefix(perms, "r") {
		prot |= unix.PROT_READ
	}
	if len(perms) > 1 && perms[1] == 'w' {
		prot |= unix.PROT_WRITE
	}
	if len(perms) > 2 && perms[2] == 'x' {
		prot |= unix.PROT_EXEC
	}
	return prot
}
