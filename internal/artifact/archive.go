package artifact

import (
	"archive/zip"
	"fmt"
	"io"
	"path/filepath"
	"time"
)

// archiveTimeLayout stamps archive names, e.g. ConvertedProcedures_2024-05-01_12-00-00.zip.
const archiveTimeLayout = "2006-01-02_15-04-05"

// Archive zips the uncategorized artifacts into <dir>/<base>_<timestamp>.zip
// and returns the archive path. The artifacts stay in place so a following
// run can still reuse them. With nothing to archive it returns "".
func (s *Store) Archive(now time.Time) (string, error) {
	files, err := s.Pending()
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", nil
	}

	name := fmt.Sprintf("%s_%s.zip", filepath.Base(s.dir), now.Format(archiveTimeLayout))
	path := filepath.Join(s.dir, name)

	out, err := s.fs.Create(path)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	zw := zip.NewWriter(out)

	for _, file := range files {
		if err := s.addToZip(zw, file, now); err != nil {
			zw.Close()
			out.Close()
			return "", err
		}
	}

	if err := zw.Close(); err != nil {
		out.Close()
		return "", fmt.Errorf("finish archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close archive: %w", err)
	}
	return path, nil
}

func (s *Store) addToZip(zw *zip.Writer, file string, modified time.Time) error {
	src, err := s.fs.Open(filepath.Join(s.dir, file))
	if err != nil {
		return fmt.Errorf("archive %s: %w", file, err)
	}
	defer src.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: file, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return fmt.Errorf("archive %s: %w", file, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("archive %s: %w", file, err)
	}
	return nil
}
