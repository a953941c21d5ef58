package fetch

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	lockFileName = "download-lock"
	lockLifetime = 20 * time.Second
)

type downloadLock struct {
	path    string
	created bool
}

// acquireLock reports held=true when another download wrote the lock less
// than lockLifetime ago.
func acquireLock(dir string, now time.Time) (*downloadLock, bool, error) {
	path := filepath.Join(dir, lockFileName)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		stamp, parseErr := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
		if parseErr == nil && stamp > now.Add(-lockLifetime).UnixMilli() {
			return nil, true, nil
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, false, internalError("failed to read download lock", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, false, internalError("failed to create engines directory", err)
	}
	if err := os.WriteFile(path, []byte(strconv.FormatInt(now.UnixMilli(), 10)), 0o644); err != nil {
		return nil, false, internalError("failed to write download lock", err)
	}
	return &downloadLock{path: path, created: true}, false, nil
}

func (l *downloadLock) release() {
	if l == nil || !l.created {
		return
	}
	_ = os.Remove(l.path)
	l.created = false
}
