package loader

// AT identifies an entry in the auxiliary vector handed to the guest's libc
// startup code alongside argv/envp. Values match the Linux ABI exactly;
// guest libc decodes them by number, so they are not ours to renumber.
type AT uint64

const (
	ATNull         AT = 0
	ATIgnore       AT = 1
	ATExecFd       AT = 2
	ATPhdr         AT = 3
	ATPhent        AT = 4
	ATPhnum        AT = 5
	ATPagesz       AT = 6
	ATBase         AT = 7
	ATFlags        AT = 8
	ATEntry        AT = 9
	ATNotelf       AT = 10
	ATUid          AT = 11
	ATEuid         AT = 12
	ATGid          AT = 13
	ATEgid         AT = 14
	ATPlatform     AT = 15
	ATHwcap        AT = 16
	ATClktck       AT = 17
	ATSecure       AT = 23
	ATBasePlatform AT = 24
	ATRandom       AT = 25
	ATHwcap2       AT = 26
	ATExecfn       AT = 31
)

// AuxEntry is a single (type, value) pair destined for the stack's
// auxiliary vector. Callers may append platform- or syscall-specific
// entries beyond the fixed set LoadObject always writes.
type AuxEntry struct {
	Type  AT
	Value uint64
}
