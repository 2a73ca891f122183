// Package loader builds a guest address space from an ELF object: it maps
// PT_LOAD segments (and, for dynamically-linked objects, an interpreter),
// reserves the brk/data segment, and lays out the initial stack image
// (argv, envp, auxv) the way the Linux kernel hands off to a freshly
// exec'd process.
package loader

import (
	"fmt"

	"rvfuzz/pkg/mmu"
)

// pieBase is the load address chosen for ET_DYN (position-independent)
// objects, kept well clear of the null page so null-pointer derefs still
// fault, and clear of the Mmu's auto-allocation cursor and mmap range.
const pieBase = mmu.VirtAddr(0x0000000000400000)

const stackTop = mmu.VirtAddr(0x00007ffffff00000)

// Loader holds everything that doesn't vary per-object: the ELF
// interpreter image (if guest objects are dynamically linked), the
// platform string and random seed placed in the stack's AT_RANDOM entry,
// and the stack size to reserve.
type Loader struct {
	InterpName  string
	InterpBytes []byte
	InterpBase  mmu.VirtAddr

	RandomBytes []byte
	Platform    string
	StackSize   uint64
}

// Result describes where LoadObject put everything the guest's _start
// (or the interpreter's, if one was loaded) needs to begin running.
type Result struct {
	EntryPoint       mmu.VirtAddr
	InterpEntryPoint mmu.VirtAddr
	StackPointer     mmu.VirtAddr
	FileBase         mmu.VirtAddr
}

func alignCeil(x, to uint64) uint64 {
	return (x + to - 1) &^ (to - 1)
}

// LoadObject parses raw as an ELF64 RISC-V object, maps it (and its
// interpreter, if PT_INTERP names one) into m, allocates the brk segment
// immediately past the highest mapped address, and constructs the initial
// stack image for args/envp/extraAux. m.DataSegmentBase and
// m.StackSegmentBase are set for later Brk/Sbrk calls and stack-bounds
// bookkeeping respectively.
func (l *Loader) LoadObject(m *mmu.Mmu, raw []byte, execFilename string, args, envp []string, extraAux []AuxEntry) (*Result, error) {
	obj, err := parseObject(raw)
	if err != nil {
		return nil, err
	}

	base := mmu.VirtAddr(0)
	if obj.isPIE() {
		base = pieBase
	}
	entry := base.Add(obj.file.Entry)

	maxEnd, err := loadSegments(m, obj, base)
	if err != nil {
		return nil, err
	}

	var interpEntry mmu.VirtAddr
	if name, ok := obj.interpreter(); ok {
		if name != l.InterpName {
			return nil, &InterpreterMismatchError{Requested: name, Have: l.InterpName}
		}
		interpObj, err := parseObject(l.InterpBytes)
		if err != nil {
			return nil, fmt.Errorf("parse interpreter: %w", err)
		}
		if _, err := loadSegments(m, interpObj, l.InterpBase); err != nil {
			return nil, fmt.Errorf("map interpreter: %w", err)
		}
		interpEntry = l.InterpBase.Add(interpObj.file.Entry)
	}

	brkSize := alignCeil(1, m.Config().DirtyBlockSize)
	if _, err := m.AllocateSegment(&maxEnd, brkSize, mmu.PermWrite|mmu.PermRAW); err != nil {
		return nil, fmt.Errorf("allocate brk segment: %w", err)
	}
	m.DataSegmentBase = &maxEnd

	phdrAddr := base.Add(obj.phdrFileOffset())

	aux := []AuxEntry{
		{ATNull, 0},
		{ATExecfn, 0}, // patched in once execFilename is placed
		{ATHwcap2, 0},
		{ATRandom, 0}, // patched in
		{ATBasePlatform, 0},
		{ATSecure, 0},
		{ATClktck, 100},
		{ATHwcap, 0x112d},
		{ATPlatform, 0}, // patched in
		{ATEgid, 0},
		{ATGid, 0},
		{ATEuid, 0},
		{ATUid, 0},
		{ATNotelf, 0},
		{ATEntry, uint64(entry)},
		{ATFlags, 0},
		{ATBase, uint64(l.InterpBase)},
		{ATPagesz, mmu.PageSize},
		{ATPhnum, uint64(len(obj.file.Progs))},
		{ATPhent, elfPhentSize},
		{ATPhdr, uint64(phdrAddr)},
	}

	sp, err := l.buildStack(m, stackBuildInput{
		execFilename: execFilename,
		args:         args,
		envp:         envp,
		aux:          aux,
		extraAux:     extraAux,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		EntryPoint:       entry,
		InterpEntryPoint: interpEntry,
		StackPointer:     sp,
		FileBase:         base,
	}, nil
}

// elfPhentSize is the on-disk size of one ELF64 program header entry, a
// format constant rather than something debug/elf surfaces directly.
const elfPhentSize = 56
