package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Export copies the resources at the given logical paths from srcRoot on src
// to destRoot on dest, creating parent directories as needed. Existing files
// are overwritten with a warning. It returns the number of files written.
func Export(ctx context.Context, src afero.Fs, srcRoot string, dest afero.Fs, destRoot string, paths []string, opts Options) (int, error) {
	logger := opts.logger()
	written := 0

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		from, err := resolve(srcRoot, p)
		if err != nil {
			return written, err
		}

		to, err := resolve(destRoot, p)
		if err != nil {
			return written, err
		}

		if opts.DryRun {
			written++
			continue
		}

		if _, statErr := dest.Stat(to); statErr == nil {
			logger.Warn("overwriting existing file", slog.String("path", to))
		}

		if err := copyFile(src, from, dest, to); err != nil {
			return written, err
		}

		written++
	}

	return written, nil
}

func copyFile(src afero.Fs, from string, dest afero.Fs, to string) error {
	in, err := src.Open(from)
	if err != nil {
		return fmt.Errorf("opening %s: %w", from, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", from, err)
	}

	if err := dest.MkdirAll(filepath.Dir(to), 0o750); err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(to), err)
	}

	perm := info.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}

	out, err := dest.OpenFile(to, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("creating %s: %w", to, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("writing %s: %w", to, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", to, err)
	}

	return nil
}
