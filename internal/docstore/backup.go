package docstore

import (
	"strings"
	"time"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// BackupSuffix prefixes the timestamp of every backup file name.
const BackupSuffix = ".backup-"

// BackupPath returns the backup location for a document at the current
// time, e.g. "x/OVERVIEW.md.backup-2026-10-19T08-30-00-123Z".
func BackupPath(p string) string {
	ts := timeNow().UTC().Format("2006-01-02T15:04:05.000Z07:00")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return p + BackupSuffix + ts
}

// IsBackup reports whether p names a backup file.
func IsBackup(p string) bool {
	return strings.Contains(p, BackupSuffix)
}
