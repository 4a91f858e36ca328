package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// CheckNtfy verifies the ntfy server behind topic answers. Any response below
// 500 other than an auth failure counts as reachable.
func CheckNtfy(ctx context.Context, topic string) Result {
	const name = "ntfy"

	endpoint := strings.TrimSpace(topic)
	if endpoint == "" {
		return Result{Name: name, Detail: "missing topic"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, endpoint, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid topic url (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeHTTPError(err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (topic requires credentials)"}
	case resp.StatusCode >= 500:
		return Result{Name: name, Detail: fmt.Sprintf("server error (%d)", resp.StatusCode)}
	default:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
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

// CheckRecordStore verifies the database file is read/write, or that it can
// be created when it does not exist yet.
func CheckRecordStore(path string) Result {
	const name = "Record store"

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		dir := filepath.Dir(path)
		if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create in %s: %v)", path, dir, err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
	case err != nil:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	case info.IsDir():
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, sizeLabel(info.Size()))}
}

func summarizeHTTPError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (server unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (server unreachable)"
	}
	return err.Error()
}
