// Package dataset reads the raw constants dataset for display and keeps the
// resolver snapshot in sync with the file on disk.
package dataset

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

var page = template.Must(template.New("view-csv").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Constants dataset</title></head>
<body>
<pre>{{.}}</pre>
</body>
</html>
`))

// ReadOrCreate returns the raw content of the dataset at path.
// A missing file is created empty first; only genuine I/O failures are errors.
func ReadOrCreate(path string) (string, error) {
	if err := ensureExists(path); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// RenderHTML writes content inside an escaped <pre> block.
func RenderHTML(w io.Writer, content string) error {
	return page.Execute(w, content)
}

func ensureExists(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// O_EXCL 없이 생성: 동시에 생성하려는 다른 요청과 경쟁해도 실패하지 않음
	file, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	return file.Close()
}
