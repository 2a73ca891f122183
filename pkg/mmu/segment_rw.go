package mmu

// ReadPerm reads a T-sized little-endian value at offset, requiring every
// touched byte to be a superset of requiredPerm. This is the primitive the
// emulator's instruction fetch uses to probe execute permission, and that
// Read below uses to enforce R.
func ReadPerm[T wideWord](s *Segment, offset uint64, requiredPerm Perm) (T, error) {
	size := uint64(wordBytes[T]())
	if offset+size > s.Len() {
		return 0, &OutOfBoundError{IsRead: true, Addr: s.base.Add(offset)}
	}

	required := broadcastWord[T](requiredPerm)
	permsWord := packPerms[T](s.permissions[offset : offset+size])
	if permsWord&required != required {
		return 0, &PermissionsFault{
			IsRead: true,
			Perms:  append([]Perm(nil), s.permissions[offset:offset+size]...),
			Addr:   s.base.Add(offset),
		}
	}

	value := decodeLE[T](s.memory[offset : offset+size])

	if s.taintEnabled {
		dirtiedByTaint := false
		for i := offset; i < offset+size; i++ {
			if s.permissions[i].IsSupersetOf(PermToTaint) && !s.permissions[i].IsSupersetOf(PermTainted) {
				s.permissions[i] |= PermTainted
				dirtiedByTaint = true
			}
		}
		if dirtiedByTaint {
			s.markDirtyRange(offset, offset+size)
		}
	}

	return value, nil
}

// Read reads a T-sized little-endian value at offset, requiring PermRead on
// every touched byte. A byte with PermRAW set but PermRead clear (never
// written) fails this check, surfacing as an uninitialized-read trap.
func Read[T wideWord](s *Segment, offset uint64) (T, error) {
	return ReadPerm[T](s, offset, PermRead)
}

// Write writes value as a T-sized little-endian encoding at offset,
// requiring PermWrite on every touched byte. Bytes that also carry PermRAW
// become readable (PermRead is set) as part of this write, per the
// read-after-write arming rule.
func Write[T wideWord](s *Segment, offset uint64, value T) error {
	size := uint64(wordBytes[T]())
	if offset+size > s.Len() {
		return &OutOfBoundError{IsRead: false, Addr: s.base.Add(offset)}
	}

	writeReq := broadcastWord[T](PermWrite)
	permsWord := packPerms[T](s.permissions[offset : offset+size])
	if permsWord&writeReq != writeReq {
		return &PermissionsFault{
			IsRead: false,
			Perms:  append([]Perm(nil), s.permissions[offset:offset+size]...),
			Addr:   s.base.Add(offset),
		}
	}

	encodeLE(s.memory[offset:offset+size], value)

	if s.rawEnabled {
		rawWriteReq := broadcastWord[T](PermWrite | PermRAW)
		if permsWord&rawWriteReq == rawWriteReq {
			// Every touched byte carries RAW: arm them all in one shot by
			// shifting the RAW bits down onto the R bit position.
			armed := (permsWord & rawWriteReq) >> rawToReadShift
			applyArm[T](s.permissions[offset:offset+size], armed)
		} else {
			// Mixed span: some bytes are RAW-armed, some aren't. Fall back
			// to per-byte handling rather than mis-arming a byte that
			// never asked for it.
			for i := offset; i < offset+size; i++ {
				if s.permissions[i].IsSupersetOf(PermRAW) {
					s.permissions[i] |= PermRead
				}
			}
		}
	}

	s.markDirtyRange(offset, offset+size)
	return nil
}

// packPerms reassembles len(perms) permission bytes into a single T,
// little-endian, the same layout a memory load of that span would produce.
func packPerms[T wideWord](perms []Perm) T {
	var v T
	for i, p := range perms {
		v |= T(p) << (8 * uint(i))
	}
	return v
}

// applyArm ORs the low byte of armed into permissions[0], the next byte
// into permissions[1], and so on — undoing the packing performed by
// packPerms/broadcastWord.
func applyArm[T wideWord](perms []Perm, armed T) {
	for i := range perms {
		perms[i] |= Perm(armed >> (8 * uint(i)))
	}
}

func decodeLE[T wideWord](b []byte) T {
	var v T
	for i, c := range b {
		v |= T(c) << (8 * uint(i))
	}
	return v
}

func encodeLE[T wideWord](dst []byte, v T) {
	for i := range dst {
		dst[i] = byte(v >> (8 * uint(i)))
	}
}
