package report

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// WriteFile renders the report into path. The report is written to a
// temporary file in the same directory and renamed into place, so readers
// never observe a partial report.
func WriteFile(path string, r *Report, format Format, opts RenderOptions) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "failed to create report file in %s", dir)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	buf := bufio.NewWriter(tmp)
	if err = Render(buf, r, format, opts); err != nil {
		return errors.Wrapf(err, "failed to render %s report", format)
	}
	if err = buf.Flush(); err != nil {
		return errors.Wrapf(err, "failed to write report %s", path)
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrapf(err, "failed to sync report %s", path)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "failed to close report %s", path)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrapf(err, "failed to set permissions on report %s", path)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "failed to move report into %s", path)
	}
	return nil
}

// WriteAll writes one file per format named <dir>/<name><ext> and returns
// the written paths.
func WriteAll(dir, name string, r *Report, formats []Format, opts RenderOptions) ([]string, error) {
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		path := filepath.Join(dir, name+f.Extension())
		if err := WriteFile(path, r, f, opts); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
