// Package atomicfile replaces a file's content through a temporary file and
// a rename, so the original path always holds either the old or the new
// content.
package atomicfile

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	backupTimeFormat  = "20060102T150405.000000000"
	defaultMaxBackups = 5
	defaultPerm       = fs.FileMode(0o644)
)

var (
	// ErrOpen is returned when the temporary file cannot be created or written.
	ErrOpen = errors.New("write temporary file")
	// ErrReplace is returned when the original cannot be swapped for the new content.
	ErrReplace = errors.New("replace original file")
)

// Options controls backups of the replaced file.
type Options struct {
	// Backup keeps a timestamped copy of the previous content next to the file.
	Backup bool
	// MaxBackups is how many copies survive pruning. Zero means the default.
	MaxBackups int
}

// WriteFile writes data to name. The temporary file lives in the same
// directory so the final os.Rename stays on one filesystem; the original is
// never removed before the new content is in place.
func WriteFile(name string, data []byte, opts Options) (err error) {
	perm := defaultPerm
	info, statErr := os.Stat(name)
	exists := statErr == nil
	switch {
	case exists:
		perm = info.Mode().Perm()
	case !errors.Is(statErr, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", ErrReplace, statErr)
	}

	f, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpen, err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("%w: %w", ErrOpen, err)
	}
	if err := f.Chmod(perm); err != nil {
		return fmt.Errorf("%w: %w", ErrOpen, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("%w: %w", ErrOpen, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrOpen, err)
	}

	if exists && opts.Backup {
		backupName := name + "." + time.Now().UTC().Format(backupTimeFormat) + ".bak"
		if err := copyFile(name, backupName, perm); err != nil {
			return fmt.Errorf("%w: backup: %w", ErrReplace, err)
		}
		log.Debug().Str("file", name).Str("backup", backupName).Msg("Backed up original")
	}

	if err := os.Rename(f.Name(), name); err != nil {
		return fmt.Errorf("%w: %w", ErrReplace, err)
	}

	if exists && opts.Backup {
		max := opts.MaxBackups
		if max <= 0 {
			max = defaultMaxBackups
		}
		if err := pruneBackups(name, max); err != nil {
			log.Warn().Err(err).Str("file", name).Msg("Failed to prune backups")
		}
	}
	return nil
}

// Backups lists the backups of name, oldest first. Only files named
// name.<timestamp>.bak count, whatever characters name itself holds.
func Backups(name string) ([]string, error) {
	dir, base := filepath.Dir(name), filepath.Base(name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	prefix := base + "."
	var backups []string
	for _, e := range entries {
		n := e.Name()
		if !e.Type().IsRegular() || !strings.HasPrefix(n, prefix) || !strings.HasSuffix(n, ".bak") {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(n, prefix), ".bak")
		if _, err := time.Parse(backupTimeFormat, stamp); err != nil {
			continue
		}
		backups = append(backups, filepath.Join(dir, n))
	}
	slices.Sort(backups)
	return backups, nil
}

func pruneBackups(name string, max int) error {
	backups, err := Backups(name)
	if err != nil {
		return err
	}
	for i := 0; i < len(backups)-max; i++ {
		if err := os.Remove(backups[i]); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
