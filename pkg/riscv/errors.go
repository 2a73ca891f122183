package riscv

import "fmt"

// IllegalInstructionError is returned for any bit pattern this core
// doesn't decode — an unimplemented extension, a reserved encoding, or
// genuinely malformed data. The core never guesses at a decode.
type IllegalInstructionError struct {
	PC   uint64
	Insn uint32
}

func (e *IllegalInstructionError) Error() string {
	return fmt.Sprintf("illegal instruction 0x%08x at pc 0x%x", e.Insn, e.PC)
}

// MisalignedFetchError reports a PC that isn't 2-byte aligned, as RVC
// makes 2-byte alignment (rather than 4-byte) the fetch requirement.
type MisalignedFetchError struct {
	PC uint64
}

func (e *MisalignedFetchError) Error() string {
	return fmt.Sprintf("misaligned instruction fetch at pc 0x%x", e.PC)
}
