package util

import (
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/sys/unix"
)

// ListFileNamesAt lists sorted names of entries with the given suffix in an opened directory
func ListFileNamesAt(dir *os.File, suffix string) ([]string, error) {
	// reset position to start or it would only list new files on subsequent calls
	if _, err := dir.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	names, err := dir.Readdirnames(0)
	if err != nil {
		return nil, err
	}
	matched := names[:0]
	for _, name := range names {
		if strings.HasSuffix(name, suffix) {
			matched = append(matched, name)
		}
	}
	sort.Strings(matched)
	return matched, nil
}

// ReadFileAt reads full contents of a file in given directory
func ReadFileAt(dir *os.File, filename string) ([]byte, error) {
	fd, oerr := unix.Openat(int(dir.Fd()), filename, unix.O_RDONLY, 0o644)
	if oerr != nil {
		return nil, oerr
	}
	defer unix.Close(fd)
	var stat unix.Stat_t
	if serr := unix.Fstat(fd, &stat); serr != nil {
		return nil, serr
	}
	buf := make([]byte, stat.Size)
	total := 0
	for total < len(buf) {
		n, rerr := unix.Read(fd, buf[total:])
		if rerr != nil {
			return nil, rerr
		}
		if n == 0 {
			break
		}
		total += n
	}
	return buf[:total], nil
}

// StatFileAt queries the stat of an existing file in given directory
func StatFileAt(dir *os.File, filename string) (unix.Stat_t, error) {
	var stat unix.Stat_t
	err := unix.Fstatat(int(dir.Fd()), filename, &stat, 0)
	return stat, err
}

// UnlinkFileAt unlinks an existing file in given directory
func UnlinkFileAt(dir *os.File, filename string) error {
	return unix.Unlinkat(int(dir.Fd()), filename, 0)
}

// WriteFileAt writes to a new file in given directory
//
// The data is written to a temporary name first and renamed, so readers never see partial contents
func WriteFileAt(dir *os.File, filename string, data []byte, perm os.FileMode) error {
	tempName := "." + filename + ".tmp"
	fd, oerr := unix.Openat(int(dir.Fd()), tempName, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC, uint32(perm))
	if oerr != nil {
		return oerr
	}
	for len(data) > 0 {
		n, werr := unix.Write(fd, data)
		if werr != nil {
			unix.Close(fd)
			_ = unix.Unlinkat(int(dir.Fd()), tempName, 0)
			return werr
		}
		data = data[n:]
	}
	if cerr := unix.Close(fd); cerr != nil {
		_ = unix.Unlinkat(int(dir.Fd()), tempName, 0)
		return cerr
	}
	return unix.Renameat(int(dir.Fd()), tempName, int(dir.Fd()), filename)
}
