// Package report serializes a crash's final state to a file in a crash
// directory, so a fuzz run is replayable after the process that found it
// is gone.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"rvfuzz/pkg/mmu"
)

// SyscallEvent is one entry in a report's syscall trail: the minimum
// needed to reconstruct what the guest was doing leading up to a crash.
type SyscallEvent struct {
	Number uint64 `yaml:"number"`
	A0     uint64 `yaml:"a0"`
	A1     uint64 `yaml:"a1"`
	A2     uint64 `yaml:"a2"`
}

// Report is the full record of one crashing run: why it stopped, the
// architectural state at that point, and the syscalls it made on the way
// there.
type Report struct {
	RunID        uuid.UUID      `yaml:"run_id"`
	Cause        string         `yaml:"cause"`
	Fault        *mmu.FaultInfo `yaml:"fault,omitempty"`
	PC           uint64         `yaml:"pc"`
	Registers    [32]uint64     `yaml:"registers"`
	FPRegisters  [32]uint64     `yaml:"fp_registers"`
	SyscallTrail []SyscallEvent `yaml:"syscall_trail"`
}

// New builds a Report with a freshly generated RunID.
func New(cause string, pc uint64, regs, fpRegs [32]uint64, trail []SyscallEvent, fault *mmu.FaultInfo) Report {
	return Report{
		RunID:        uuid.New(),
		Cause:        cause,
		Fault:        fault,
		PC:           pc,
		Registers:    regs,
		FPRegisters:  fpRegs,
		SyscallTrail: trail,
	}
}

// Write marshals r to YAML and writes it to <dir>/<RunID>.yaml, returning
// the path written.
func Write(dir string, r Report) (string, error) {
	out, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("report: marshal: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report: mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, r.RunID.String()+".yaml")
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return "", fmt.Errorf("report: write %s: %w", path, err)
	}
	return path, nil
}
