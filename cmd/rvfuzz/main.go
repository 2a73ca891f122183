// Command rvfuzz loads a RISC-V64 Linux ELF binary into the emulator and
// either runs it to completion once, fuzzes it over a corpus directory, or
// prints its segment layout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rvfuzz/internal/logging"
)

var debugFlag bool

func main() {
	root := &cobra.Command{
		Use:   "rvfuzz",
		Short: "A RISC-V64GC guest emulator and fuzzing harness",
		Long: `rvfuzz loads an unmodified RISC-V64GC Linux ELF binary into a
segmented, byte-granular guest memory manager and runs it under a
from-scratch RV64IMAC interpreter with a policy-minimum Linux syscall
surface.

Examples:
  rvfuzz run --argv0 ./target --arg input.bin ./target
  rvfuzz fuzz --corpus corpus/ --crashes crashes/ ./target
  rvfuzz info ./target`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(debugFlag)
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false, "verbose debug logging")

	root.AddCommand(newRunCmd())
	root.AddCommand(newFuzzCmd())
	root.AddCommand(newInfoCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rvfuzz:", err)
		os.Exit(1)
	}
}
