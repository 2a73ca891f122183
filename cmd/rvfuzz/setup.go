package main

import (
	"fmt"
	"math/rand"
	"os"

	"rvfuzz/pkg/loader"
	"rvfuzz/pkg/mmu"
	"rvfuzz/pkg/riscv"
)

const regSP = 2

// guest bundles everything a loaded binary needs to start executing: its
// memory manager, core, and the loader's report of where things landed.
type guest struct {
	Mmu    *mmu.Mmu
	Core   *riscv.Core
	Result *loader.Result
}

// loadGuest reads path, maps it into a fresh Mmu, and sets up a Core ready
// to run from the object's entry point. Dynamically-linked binaries aren't
// supported by this policy-minimum harness (no interpreter image is
// carried), matching the spec's "statically-linked" assumption.
//
// seed drives AT_RANDOM: the same seed always produces the same 16 bytes,
// so a replayed input starts the guest in the same state it crashed in
// instead of a fresh ASLR-style canary every run.
func loadGuest(path, argv0 string, args, env []string, seed int64) (*guest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	atRandom := make([]byte, 16)
	rand.New(rand.NewSource(seed)).Read(atRandom)

	l := &loader.Loader{
		RandomBytes: atRandom,
		Platform:    "riscv64",
		StackSize:   8 << 20,
	}

	m := mmu.New(mmu.DefaultConfig())
	res, err := l.LoadObject(m, raw, argv0, args, env, nil)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	core := riscv.NewCore(m)
	entry := res.EntryPoint
	if res.InterpEntryPoint != 0 {
		entry = res.InterpEntryPoint
	}
	core.Regs.PC = uint64(entry)
	core.Regs.WriteX(regSP, uint64(res.StackPointer))

	return &guest{Mmu: m, Core: core, Result: res}, nil
}
