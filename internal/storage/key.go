package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BuildKey constructs a date-partitioned storage key:
// <prefix>/<YYYY>/<MM>/<DD>/<hash-or-uuid>-<uuid><ext>.
// The trailing random component guarantees two calls never collide, even for
// identical bytes uploaded in the same instant.
func BuildKey(prefix, filename string, data []byte) string {
	prefix = strings.ToLower(strings.Trim(prefix, "/"))

	stem := uuid.New().String()
	if len(data) > 0 {
		sum := sha256.Sum256(data)
		stem = hex.EncodeToString(sum[:])[:8]
	}

	ext := strings.ToLower(path.Ext(filename))
	now := time.Now().UTC()

	return fmt.Sprintf("%s/%04d/%02d/%02d/%s-%s%s",
		prefix, now.Year(), int(now.Month()), now.Day(), stem, uuid.New().String(), ext)
}

// DerivedKey names the processed rendition of a source object. Unlike
// BuildKey it is fully deterministic in (sourceKey, imageID, data), so
// reprocessing a redelivered job overwrites the same object instead of
// orphaning a new one.
func DerivedKey(sourceKey string, imageID uint, data []byte) string {
	sum := sha256.Sum256(data)
	base := strings.TrimSuffix(sourceKey, path.Ext(sourceKey))
	return fmt.Sprintf("%s-%d-%s.jpg", base, imageID, hex.EncodeToString(sum[:])[:12])
}
