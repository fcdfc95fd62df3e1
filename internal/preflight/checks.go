package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"docbatch/internal/manifest"
)

const serviceCheckTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckOutputRoot verifies a local output root, or its closest existing
// ancestor when the root has not been created yet. Remote roots are only
// probed by the run itself.
func CheckOutputRoot(root string) Result {
	const name = "Output root"
	if strings.TrimSpace(root) == "" {
		return Result{Name: name, Detail: "job.result_root not configured"}
	}
	if strings.Contains(root, "://") {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (remote, not probed)", root)}
	}
	dir := root
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing ancestor)", root)}
		}
		dir = parent
	}
	check := CheckDirectoryAccess(name, dir)
	if check.Passed && dir != root {
		check.Detail = fmt.Sprintf("%s (will be created under %s)", root, dir)
	}
	return check
}

// CheckManifest verifies the manifest can be read and lists at least one item.
func CheckManifest(ctx context.Context, reader manifest.Reader, location string) Result {
	const name = "Manifest"
	items, err := manifest.Load(ctx, reader, location)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", location, err)}
	}
	if len(items) == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no work items)", location)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d items)", location, len(items))}
}

// CheckService runs probe with a bounded timeout and a single attempt.
func CheckService(ctx context.Context, name, endpoint string, probe func(context.Context) error) Result {
	if strings.TrimSpace(endpoint) == "" {
		return Result{Name: name, Detail: "endpoint not configured"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, serviceCheckTimeout)
	defer cancel()
	if err := probe(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", endpoint, summarizeError(err))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", endpoint)}
}

// summarizeError produces a human-readable summary for failed service checks.
func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (service unreachable)"
	}
	return err.Error()
}
