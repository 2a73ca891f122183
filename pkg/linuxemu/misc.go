package linuxemu

import (
	"rvfuzz/pkg/mmu"
)

// sysGetrandom draws from e.rng rather than host entropy: the harness seeds
// every LinuxEmu explicitly (New's seed parameter), so the same seed and
// the same sequence of guest syscalls reproduce the same random bytes
// across a fork/reset replay.
func (e *LinuxEmu) sysGetrandom(bufAddr, count uint64, _ uint32) (int64, error) {
	count = clampIOSize(count)
	buf := make([]byte, count)
	e.rng.Read(buf) // math/rand.Rand.Read never errors
	if err := e.Core.Mmu.WriteChecked(mmu.VirtAddr(bufAddr), buf); err != nil {
		return 0, err
	}
	return int64(count), nil
}

// sysFstat writes a minimal riscv64 (asm-generic) struct stat: everything
// that isn't plausibly reconstructable from the host fd (device, inode,
// link counts) is left zero. Good enough for guests that merely branch on
// st_mode.
func (e *LinuxEmu) sysFstat(fd int32, statAddr uint64) (int64, error) {
	f, ok := e.fds.get(fd)
	if !ok {
		return 0, &BadFDError{FD: fd}
	}
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	const statSize = 128
	var buf [statSize]byte
	putU64(buf[16:20], modeToStMode(info))  // st_mode (32-bit)
	putU64(buf[48:56], uint64(info.Size())) // st_size

	if err := e.Core.Mmu.WriteChecked(mmu.VirtAddr(statAddr), buf[:]); err != nil {
		return 0, err
	}
	return 0, nil
}

const (
	sIfReg = 0o100000
	sIfChr = 0o020000
)

func modeToStMode(info interface{ IsDir() bool }) uint64 {
	if info.IsDir() {
		return 0o040000 | 0o755
	}
	return sIfReg | 0o644
}

func putU64(dst []byte, v uint64) {
	for i := range dst {
		dst[i] = byte(v >> (8 * uint(i)))
	}
}

// sysUname writes a struct utsname: six NUL-padded 65-byte fields.
func (e *LinuxEmu) sysUname(bufAddr uint64) (int64, error) {
	const field = 65
	var buf [field * 6]byte
	put := func(i int, s string) { copy(buf[i*field:(i+1)*field], s) }
	put(0, "Linux")           // sysname
	put(1, "rvfuzz-guest")    // nodename
	put(2, "6.1.0-rvfuzz")    // release
	put(3, "#1 SMP rvfuzz")   // version
	put(4, "riscv64")         // machine
	put(5, "")                // domainname

	if err := e.Core.Mmu.WriteChecked(mmu.VirtAddr(bufAddr), buf[:]); err != nil {
		return 0, err
	}
	return 0, nil
}

// sysSetTidAddress has no real thread group to address; it reports a fixed
// fake tid, which is all a single-threaded guest ever checks.
func (e *LinuxEmu) sysSetTidAddress(_ uint64) (int64, error) {
	const fakeTid = 1000
	return fakeTid, nil
}

// Linux clock ids. sysClockGettime does not distinguish them: these and
// any other id are all served from the same logical counter rather than
// failing, since guests rarely branch on which one they got.
const (
	clockRealtime  = 0
	clockMonotonic = 1
)

// sysClockGettime reports a logical clock, not host time: e.clock advances
// by one (simulated) millisecond on every call, from a fixed epoch. Any
// clock id is served from the same counter — see the clockRealtime /
// clockMonotonic comment above for why distinguishing them isn't worth it
// here either. Using host time would make two runs of the same seed at
// different wall-clock moments diverge on any guest that branches on the
// value, which defeats the reproducibility a fuzzing harness exists for.
func (e *LinuxEmu) sysClockGettime(_ int32, tsAddr uint64) (int64, error) {
	e.clock++
	const fixedEpochSec = 1700000000 // 2023-11-14, arbitrary but constant
	totalNanos := e.clock * 1_000_000
	sec := fixedEpochSec + totalNanos/1_000_000_000
	nsec := totalNanos % 1_000_000_000

	var buf [16]byte
	putU64(buf[0:8], sec)
	putU64(buf[8:16], nsec)
	if err := e.Core.Mmu.WriteChecked(mmu.VirtAddr(tsAddr), buf[:]); err != nil {
		return 0, err
	}
	return 0, nil
}
