package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rvfuzz/internal/style"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <elf>",
		Short: "Print the segment layout a binary would be loaded with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return infoMain(args[0])
		},
	}
}

func infoMain(path string) error {
	g, err := loadGuest(path, path, []string{path}, nil, 1)
	if err != nil {
		return err
	}

	fmt.Printf("entry:  %s\n", g.Result.EntryPoint)
	fmt.Printf("stack:  %s\n", g.Result.StackPointer)
	fmt.Printf("base:   %s\n", g.Result.FileBase)
	fmt.Println()

	t := style.NewTable("#", "base", "size", "perm")
	for i := 0; i < g.Mmu.NumSegments(); i++ {
		base, seg := g.Mmu.Segment(i)
		perm := ""
		if seg.Len() > 0 {
			perm = seg.PermAt(0).String()
		}
		t.Row(fmt.Sprintf("%d", i), style.Addr(base.String()), fmt.Sprintf("%d", seg.Len()), perm)
	}
	fmt.Print(t.Render())
	return nil
}
