package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Hash returns the hex-encoded SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ArchiveKey identifies one verification of an archive. Any change to the
// file's size or modification time, or to the expected digest, yields a new
// key, so a stale entry can never vouch for a replaced file.
func ArchiveKey(path string, size int64, modTime time.Time, integrity string) string {
	fields := []string{
		path,
		strconv.FormatInt(size, 10),
		strconv.FormatInt(modTime.UnixNano(), 10),
		integrity,
	}
	return "integrity:" + Hash([]byte(strings.Join(fields, "\x00")))
}
