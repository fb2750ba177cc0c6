package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ResolveFFmpeg reports the ffmpeg binary camera capture will execute.
// A configured path containing a separator must point at an executable file;
// a bare name is resolved from PATH.
func ResolveFFmpeg(configured string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Required for V4L2 camera capture",
	}

	binary := strings.TrimSpace(configured)
	if binary == "" {
		binary = "ffmpeg"
	}
	result.Command = binary

	if strings.ContainsRune(binary, filepath.Separator) {
		info, err := os.Stat(binary)
		switch {
		case err != nil:
			result.Detail = fmt.Sprintf("binary %q not found", binary)
		case !isExecutable(info):
			result.Detail = fmt.Sprintf("%q is not executable", binary)
		default:
			result.Available = true
		}
		return result
	}

	resolved, err := exec.LookPath(binary)
	if err != nil {
		result.Detail = fmt.Sprintf("binary %q not found", binary)
		return result
	}
	result.Command = resolved
	result.Available = true
	return result
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
