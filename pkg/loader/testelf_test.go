package loader

import (
	"encoding/binary"
)

// buildMinimalELF assembles a minimal, section-less ELF64 RISC-V object:
// one ELF header, one PT_LOAD program header, and code immediately after.
// etype is elf.ET_EXEC or elf.ET_DYN; memszExtra grows the segment past
// filesz to exercise .bss zero-fill.
func buildMinimalELF(etype uint16, vaddr uint64, code []byte, memszExtra uint64, interp string) []byte {
	const ehdrSize = 64
	const phentSize = 56

	nPhdrs := 1
	interpOff := uint64(0)
	if interp != "" {
		nPhdrs = 2
	}
	phoff := uint64(ehdrSize)
	codeOff := phoff + uint64(nPhdrs)*phentSize
	if interp != "" {
		interpOff = codeOff
		codeOff += uint64(len(interp) + 1)
	}

	buf := make([]byte, codeOff+uint64(len(code)))

	buf[0], buf[1], buf[2], buf[3] = 0x7f, 'E', 'L', 'F'
	buf[4] = 2 // ELFCLASS64
	buf[5] = 1 // ELFDATA2LSB
	buf[6] = 1 // EI_VERSION

	le := binary.LittleEndian
	le.PutUint16(buf[16:], etype)
	le.PutUint16(buf[18:], 243) // EM_RISCV
	le.PutUint32(buf[20:], 1)   // e_version
	le.PutUint64(buf[24:], vaddr)
	le.PutUint64(buf[32:], phoff)
	le.PutUint64(buf[40:], 0) // e_shoff
	le.PutUint32(buf[48:], 0) // e_flags
	le.PutUint16(buf[52:], ehdrSize)
	le.PutUint16(buf[54:], phentSize)
	le.PutUint16(buf[56:], uint16(nPhdrs))
	le.PutUint16(buf[58:], 0) // e_shentsize
	le.PutUint16(buf[60:], 0) // e_shnum
	le.PutUint16(buf[62:], 0) // e_shstrndx

	writePhdr := func(i int, ptype uint32, flags uint32, off, vaddr, filesz, memsz uint64) {
		base := phoff + uint64(i)*phentSize
		le.PutUint32(buf[base:], ptype)
		le.PutUint32(buf[base+4:], flags)
		le.PutUint64(buf[base+8:], off)
		le.PutUint64(buf[base+16:], vaddr)
		le.PutUint64(buf[base+24:], vaddr) // p_paddr
		le.PutUint64(buf[base+32:], filesz)
		le.PutUint64(buf[base+40:], memsz)
		le.PutUint64(buf[base+48:], 0x1000) // p_align
	}

	idx := 0
	if interp != "" {
		copy(buf[interpOff:], interp)
		writePhdr(idx, 3 /*PT_INTERP*/, 4, interpOff, interpOff, uint64(len(interp)+1), uint64(len(interp)+1))
		idx++
	}
	const flagsRWX = 1 | 2 | 4
	writePhdr(idx, 1 /*PT_LOAD*/, flagsRWX, codeOff, vaddr, uint64(len(code)), uint64(len(code))+memszExtra)

	copy(buf[codeOff:], code)
	return buf
}
