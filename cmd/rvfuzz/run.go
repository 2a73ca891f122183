package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"rvfuzz/internal/logging"
	"rvfuzz/pkg/linuxemu"
)

type runOpts struct {
	argv0      string
	args       []string
	envs       []string
	seed       int64
	budget     uint64
	openatRoot string
}

func newRunCmd() *cobra.Command {
	var o runOpts
	cmd := &cobra.Command{
		Use:   "run <elf>",
		Short: "Load and execute a binary once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, cliArgs []string) error {
			return runMain(cliArgs[0], o)
		},
	}
	cmd.Flags().StringVar(&o.argv0, "argv0", "", "argv[0] as seen by the guest (defaults to the path)")
	cmd.Flags().StringArrayVar(&o.args, "arg", nil, "extra argv entry (repeatable)")
	cmd.Flags().StringArrayVar(&o.envs, "env", nil, "KEY=VALUE environment entry (repeatable)")
	cmd.Flags().Int64Var(&o.seed, "seed", 1, "seed for AT_RANDOM/getrandom/clock_gettime determinism")
	cmd.Flags().Uint64Var(&o.budget, "budget", 0, "max instructions to step before giving up (0 = unlimited)")
	cmd.Flags().StringVar(&o.openatRoot, "openat-root", "", "directory openat is confined to (default: cwd)")
	return cmd
}

func runMain(path string, o runOpts) error {
	argv0 := o.argv0
	if argv0 == "" {
		argv0 = path
	}
	g, err := loadGuest(path, argv0, append([]string{argv0}, o.args...), o.envs, o.seed)
	if err != nil {
		return err
	}

	emu := linuxemu.New(g.Core, logging.L.Sugar(), o.seed)
	emu.TrailLimit = 16
	emu.OpenatRoot = o.openatRoot
	err = emu.Run(o.budget)

	var exit *linuxemu.ExitSignal
	if errors.As(err, &exit) {
		fmt.Printf("guest exited with code %d\n", exit.Code)
		return nil
	}
	var bp *linuxemu.BreakpointSignal
	if errors.As(err, &bp) {
		fmt.Printf("guest hit a breakpoint at %#x\n", bp.PC)
		return nil
	}
	var timeout *linuxemu.TimeoutError
	if errors.As(err, &timeout) {
		fmt.Printf("guest timed out after %d instructions\n", timeout.Budget)
		return nil
	}
	return fmt.Errorf("guest crashed: %w", err)
}
