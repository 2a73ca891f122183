package linuxemu

import "rvfuzz/pkg/mmu"

// Linux mmap(2) PROT_* bits.
const (
	protRead  = 0x1
	protWrite = 0x2
	protExec  = 0x4
)

func protToPerm(prot uint32) mmu.Perm {
	var p mmu.Perm
	if prot&protRead != 0 {
		p |= mmu.PermRead
	}
	if prot&protWrite != 0 {
		p |= mmu.PermWrite
	}
	if prot&protExec != 0 {
		p |= mmu.PermExec
	}
	return p
}

func (e *LinuxEmu) sysBrk(newEnd uint64) (int64, error) {
	end, err := e.Core.Mmu.Brk(mmu.VirtAddr(newEnd))
	if err != nil {
		return 0, err
	}
	return int64(end), nil
}

// sysMmap supports only MAP_ANONYMOUS, matching the Mmu's own policy
// minimum — file-backed mappings are rejected by Mmu.Mmap itself.
func (e *LinuxEmu) sysMmap(addr, length uint64, prot, flags uint32) (int64, error) {
	base, err := e.Core.Mmu.Mmap(mmu.VirtAddr(addr), length, protToPerm(prot), mmu.MmapFlags(flags))
	if err != nil {
		return 0, err
	}
	return int64(base), nil
}

func (e *LinuxEmu) sysMunmap(addr, length uint64) (int64, error) {
	if err := e.Core.Mmu.Munmap(mmu.VirtAddr(addr), length); err != nil {
		return 0, err
	}
	return 0, nil
}
