package linuxemu

import "os"

// fdTable maps guest file descriptors to host files. Descriptors 0-2 are
// wired to the host's own stdio so a guest's writes to stdout/stderr (and
// reads from stdin) surface directly in the harness's terminal.
type fdTable struct {
	files map[int32]*os.File
	next  int32
}

func newFDTable() *fdTable {
	return &fdTable{
		files: map[int32]*os.File{
			0: os.Stdin,
			1: os.Stdout,
			2: os.Stderr,
		},
		next: 3,
	}
}

func (t *fdTable) get(fd int32) (*os.File, bool) {
	f, ok := t.files[fd]
	return f, ok
}

func (t *fdTable) insert(f *os.File) int32 {
	fd := t.next
	t.next++
	t.files[fd] = f
	return fd
}

// close removes fd from the table and closes the underlying host file,
// unless it's one of the inherited stdio descriptors, which outlive any
// individual guest close(2) the way a real kernel keeps the fd table entry
// alive for other processes sharing it.
func (t *fdTable) close(fd int32) error {
	f, ok := t.files[fd]
	if !ok {
		return &BadFDError{FD: fd}
	}
	delete(t.files, fd)
	if fd <= 2 {
		return nil
	}
	return f.Close()
}
