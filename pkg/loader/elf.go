package loader

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"

	"rvfuzz/pkg/mmu"
)

// object is a parsed ELF64 little-endian file together with the raw bytes
// backing its PT_LOAD file ranges.
type object struct {
	file  *elf.File
	bytes []byte
}

func parseObject(raw []byte) (*object, error) {
	f, err := elf.NewFile(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse elf: %w", err)
	}
	if f.Class != elf.ELFCLASS64 {
		return nil, &UnsupportedELFError{Reason: "not a 64-bit object"}
	}
	if f.ByteOrder.String() != "LittleEndian" {
		return nil, &UnsupportedELFError{Reason: "not little-endian"}
	}
	if f.Machine != elf.EM_RISCV {
		return nil, &UnsupportedELFError{Reason: fmt.Sprintf("machine %s is not riscv", f.Machine)}
	}
	return &object{file: f, bytes: raw}, nil
}

func (o *object) isPIE() bool {
	return o.file.Type == elf.ET_DYN
}

// phdrFileOffset returns e_phoff, the file offset of the program header
// table. debug/elf doesn't surface this field directly, so it's read from
// the fixed ELF64 header layout.
func (o *object) phdrFileOffset() uint64 {
	return binary.LittleEndian.Uint64(o.bytes[32:40])
}

func (o *object) interpreter() (string, bool) {
	for _, p := range o.file.Progs {
		if p.Type != elf.PT_INTERP {
			continue
		}
		raw := o.bytes[p.Off : p.Off+p.Filesz]
		if i := bytes.IndexByte(raw, 0); i >= 0 {
			raw = raw[:i]
		}
		return string(raw), true
	}
	return "", false
}

func progPerm(p *elf.Prog) mmu.Perm {
	var perm mmu.Perm
	if p.Flags&elf.PF_R != 0 {
		perm |= mmu.PermRead
	}
	if p.Flags&elf.PF_W != 0 {
		perm |= mmu.PermWrite
	}
	if p.Flags&elf.PF_X != 0 {
		perm |= mmu.PermExec
	}
	return perm
}

// loadSegments maps every PT_LOAD segment of o into m at base+Vaddr,
// copying in the file-backed bytes and leaving the remainder (.bss, up to
// Memsz) as whatever NewSegment's zero-fill plus the segment's own
// permissions provide. It returns the highest address one past the last
// byte of any mapped segment, the seed for the brk/data segment.
func loadSegments(m *mmu.Mmu, o *object, base mmu.VirtAddr) (mmu.VirtAddr, error) {
	var maxEnd mmu.VirtAddr
	for _, p := range o.file.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		if p.Memsz == 0 {
			continue
		}
		vaddr := base.Add(p.Vaddr)
		size := alignCeil(p.Memsz, m.Config().DirtyBlockSize)
		idx, err := m.AllocateSegment(&vaddr, size, progPerm(p))
		if err != nil {
			return 0, fmt.Errorf("map PT_LOAD at %s: %w", vaddr, err)
		}
		segBase, seg := m.Segment(idx)
		if p.Filesz > 0 {
			seg.WriteFromSlice(0, o.bytes[p.Off:p.Off+p.Filesz])
		}
		end := segBase.Add(seg.Len())
		if end > maxEnd {
			maxEnd = end
		}
	}
	return maxEnd, nil
}
