package storage

import (
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildKey(t *testing.T) {
	now := time.Now().UTC()
	datePart := fmt.Sprintf("%04d/%02d/%02d", now.Year(), int(now.Month()), now.Day())

	tests := []struct {
		name     string
		prefix   string
		filename string
		data     []byte
	}{
		{
			name:     "with content hash",
			prefix:   "links/original",
			filename: "photo.JPG",
			data:     []byte("some image bytes"),
		},
		{
			name:     "without bytes",
			prefix:   "/Links/Original/",
			filename: "logo.png",
		},
		{
			name:     "no extension",
			prefix:   "links",
			filename: "blob",
			data:     []byte{0x1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := BuildKey(tt.prefix, tt.filename, tt.data)

			assert.False(t, strings.HasPrefix(key, "/"))
			assert.False(t, strings.HasSuffix(key, "/"))
			assert.True(t, strings.HasPrefix(key, "links"), key)
			assert.Contains(t, key, datePart)
			assert.Equal(t, strings.ToLower(key), key)
		})
	}
}

func TestBuildKey_NeverCollides(t *testing.T) {
	data := []byte("identical bytes")

	a := BuildKey("links/original", "a.jpg", data)
	b := BuildKey("links/original", "a.jpg", data)

	assert.NotEqual(t, a, b)
}

func TestBuildKey_Format(t *testing.T) {
	key := BuildKey("links/original", "photo.JPG", []byte("bytes"))

	pattern := regexp.MustCompile(`^links/original/\d{4}/\d{2}/\d{2}/[0-9a-f]{8}-[0-9a-f-]{36}\.jpg$`)
	assert.Regexp(t, pattern, key)
}

func TestDerivedKey(t *testing.T) {
	source := "links/original/2026/08/31/abcd1234-xyz.png"
	data := []byte("original bytes")

	a := DerivedKey(source, 42, data)
	b := DerivedKey(source, 42, data)

	assert.Equal(t, a, b, "reprocessing must converge on the same object")
	assert.True(t, strings.HasSuffix(a, ".jpg"))
	assert.NotEqual(t, a, DerivedKey(source, 43, data))
	assert.NotEqual(t, a, DerivedKey(source, 42, []byte("different bytes")))
}
