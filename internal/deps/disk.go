package deps

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// minFreeBytes is the floor below which a recording refuses to start; a long
// session at one frame per second can easily produce gigabytes of frames.
const minFreeBytes = 512 << 20

// CheckDiskSpace verifies the output directory's filesystem has room for
// frame capture and reports the free byte count.
func CheckDiskSpace(dir string) (uint64, error) {
	if _, err := os.Stat(dir); err != nil {
		return 0, fmt.Errorf("stat output directory: %w", err)
	}
	if err := unix.Access(dir, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return 0, fmt.Errorf("output directory permissions: %w", err)
	}
	var fs unix.Statfs_t
	if err := unix.Statfs(dir, &fs); err != nil {
		return 0, fmt.Errorf("statfs output directory: %w", err)
	}
	free := fs.Bavail * uint64(fs.Bsize)
	if free < minFreeBytes {
		return free, fmt.Errorf("insufficient disk space: %d bytes free, need at least %d", free, uint64(minFreeBytes))
	}
	return free, nil
}
