package storage

import (
	"os"
	"path/filepath"
	"sync"
)

var (
	dataDirOnce sync.Once
	dataDirPath string
)

// DataDir returns the writable data directory and creates it if missing.
func DataDir() string {
	dataDirOnce.Do(func() {
		dataDirPath = resolveDataDir()
		_ = os.MkdirAll(dataDirPath, 0o755)
	})
	return dataDirPath
}

// WriteFile writes data under dir, creating parent directories. The write
// goes through a temp file so readers never see a torn snapshot.
func WriteFile(dir, name string, data []byte) error {
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func resolveDataDir() string {
	if custom := os.Getenv("DEVTOOLS_DATA_DIR"); custom != "" {
		return custom
	}
	if base, err := os.UserCacheDir(); err == nil {
		return filepath.Join(base, "ashtrail-devtools")
	}
	return filepath.Join(os.TempDir(), "ashtrail-devtools")
}
