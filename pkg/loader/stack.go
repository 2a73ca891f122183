package loader

import "rvfuzz/pkg/mmu"

// stackBuildInput bundles everything buildStack needs to lay out the
// initial process image below the stack's fixed top address.
type stackBuildInput struct {
	execFilename string
	args         []string
	envp         []string
	aux          []AuxEntry
	extraAux     []AuxEntry
}

// buildStack allocates the stack segment and writes argv/envp/auxv plus
// their backing string data below stackTop. Two cursors move independently
// downward from stackTop: dataPtr places string bytes, rsp places the
// pointer/auxv table; dataSize is computed up front so rsp starts exactly
// at the boundary below all string data, and the two never collide.
func (l *Loader) buildStack(m *mmu.Mmu, in stackBuildInput) (mmu.VirtAddr, error) {
	stackBase := stackTop.Sub(l.StackSize)
	stackSegSize := alignCeil(l.StackSize+8, m.Config().DirtyBlockSize)
	_, err := m.AllocateSegment(&stackBase, stackSegSize, mmu.PermWrite|mmu.PermRAW)
	if err != nil {
		return 0, err
	}
	m.StackSegmentBase = &stackBase

	execFilenameBytes := append([]byte(in.execFilename), 0)
	platformBytes := append([]byte(l.Platform), 0)

	dataSize := alignCeil(uint64(len(execFilenameBytes)), 8) +
		alignCeil(uint64(len(l.RandomBytes)), 8) +
		alignCeil(uint64(len(platformBytes)), 8)
	for _, e := range in.envp {
		dataSize += alignCeil(uint64(len(e)+1), 8)
	}
	for _, a := range in.args {
		dataSize += alignCeil(uint64(len(a)+1), 8)
	}
	dataSize = alignCeil(dataSize, 16)

	dataPtr := stackTop
	rsp := stackTop.Sub(dataSize)

	writeBlob := func(b []byte) mmu.VirtAddr {
		dataPtr = dataPtr.Sub(alignCeil(uint64(len(b)), 8))
		if err == nil {
			err = m.WriteFromSliceWithPerm(dataPtr, b, mmu.PermRead|mmu.PermWrite)
		}
		return dataPtr
	}

	execFilenameAddr := writeBlob(execFilenameBytes)
	randomAddr := writeBlob(l.RandomBytes)
	platformAddr := writeBlob(platformBytes)
	if err != nil {
		return 0, err
	}

	for i := range in.aux {
		switch in.aux[i].Type {
		case ATExecfn:
			in.aux[i].Value = uint64(execFilenameAddr)
		case ATRandom:
			in.aux[i].Value = uint64(randomAddr)
		case ATPlatform, ATBasePlatform:
			in.aux[i].Value = uint64(platformAddr)
		}
	}

	writeWord := func(v uint64) {
		if err == nil {
			rsp = rsp.Sub(8)
			err = mmu.MmuWrite[uint64](m, rsp, v)
		}
	}

	// in.aux[0] is AT_NULL; writing it first lands it at the highest
	// address of the auxv block, which is where a forward scan over auxv
	// expects its terminator.
	for _, a := range in.aux {
		writeWord(a.Value)
		writeWord(uint64(a.Type))
	}
	for _, a := range in.extraAux {
		writeWord(a.Value)
		writeWord(uint64(a.Type))
	}

	writeWord(0) // envp NULL terminator
	// Walked back-to-front so envp[0]'s pointer ends up adjacent to argv's
	// NULL terminator, i.e. first when envp is scanned forward.
	for i := len(in.envp) - 1; i >= 0; i-- {
		addr := writeBlob(append([]byte(in.envp[i]), 0))
		writeWord(uint64(addr))
	}

	writeWord(0) // argv NULL terminator
	for i := len(in.args) - 1; i >= 0; i-- {
		addr := writeBlob(append([]byte(in.args[i]), 0))
		writeWord(uint64(addr))
	}

	writeWord(uint64(len(in.args))) // argc

	if err != nil {
		return 0, err
	}
	return rsp, nil
}
