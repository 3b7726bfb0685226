package shortener_test

import (
	"testing"

	"github.com/serroba/shortener-ws/internal/shortener"
	"github.com/stretchr/testify/assert"
)

func TestScanURLs(t *testing.T) {
	t.Run("finds http and https urls", func(t *testing.T) {
		urls := shortener.ScanURLs("see https://example.com/a?b=c#d and http://foo.org/x")

		assert.Equal(t, []string{"https://example.com/a?b=c#d", "http://foo.org/x"}, urls)
	})

	t.Run("returns distinct urls in order of first appearance", func(t *testing.T) {
		urls := shortener.ScanURLs("http://b.org http://a.com http://b.org")

		assert.Equal(t, []string{"http://b.org", "http://a.com"}, urls)
	})

	t.Run("matches the scheme case-insensitively", func(t *testing.T) {
		urls := shortener.ScanURLs("go to HTTPS://Example.com now")

		assert.Equal(t, []string{"HTTPS://Example.com"}, urls)
	})

	t.Run("ignores other schemes and bare hosts", func(t *testing.T) {
		assert.Empty(t, shortener.ScanURLs("ftp://example.com example.com mailto:a@b.c"))
	})
}
