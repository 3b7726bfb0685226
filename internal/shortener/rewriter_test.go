package shortener_test

import (
	"context"
	"testing"

	"github.com/serroba/shortener-ws/internal/shortener"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingAdder hands out codes c1, c2, ... and records every call.
type recordingAdder struct {
	calls []string
	codes map[string]shortener.Code
	err   map[string]error
}

func newRecordingAdder() *recordingAdder {
	return &recordingAdder{codes: make(map[string]shortener.Code), err: make(map[string]error)}
}

func (a *recordingAdder) Add(_ context.Context, rawURL string) (*shortener.Mapping, error) {
	a.calls = append(a.calls, rawURL)

	if err := a.err[rawURL]; err != nil {
		return nil, err
	}

	code, ok := a.codes[rawURL]
	if !ok {
		code = shortener.Code("c" + string(rune('0'+len(a.codes)+1)))
		a.codes[rawURL] = code
	}

	return &shortener.Mapping{Code: code, OriginalURL: rawURL, Status: shortener.StatusActive}, nil
}

func testLink(code shortener.Code) string {
	return "http://sho.rt/" + string(code)
}

func stubScanner(urls ...string) shortener.Scanner {
	return func(string) []string { return urls }
}

func TestRewriter_Rewrite(t *testing.T) {
	ctx := context.Background()

	t.Run("shortens each distinct url once and replaces every occurrence", func(t *testing.T) {
		adder := newRecordingAdder()
		rw := shortener.NewRewriter(adder, testLink)

		out, err := rw.Rewrite(ctx, "visit http://a.com and http://a.com again", shortener.ScanURLs)

		require.NoError(t, err)
		assert.Equal(t, []string{"http://a.com"}, adder.calls)
		assert.Equal(t, "visit http://sho.rt/c1 and http://sho.rt/c1 again", out)
	})

	t.Run("processes urls in order of first appearance", func(t *testing.T) {
		adder := newRecordingAdder()
		rw := shortener.NewRewriter(adder, testLink)

		out, err := rw.Rewrite(ctx, "b http://b.org a http://a.com b http://b.org", shortener.ScanURLs)

		require.NoError(t, err)
		assert.Equal(t, []string{"http://b.org", "http://a.com"}, adder.calls)
		assert.Equal(t, "b http://sho.rt/c1 a http://sho.rt/c2 b http://sho.rt/c1", out)
	})

	t.Run("returns text unchanged when there are no urls", func(t *testing.T) {
		adder := newRecordingAdder()
		rw := shortener.NewRewriter(adder, testLink)

		out, err := rw.Rewrite(ctx, "nothing to see here", shortener.ScanURLs)

		require.NoError(t, err)
		assert.Equal(t, "nothing to see here", out)
		assert.Empty(t, adder.calls)
	})

	t.Run("fails fast on the first add error", func(t *testing.T) {
		adder := newRecordingAdder()
		adder.err["http://bad.com"] = errMock
		rw := shortener.NewRewriter(adder, testLink)

		out, err := rw.Rewrite(ctx, "http://bad.com http://good.com", stubScanner("http://bad.com", "http://good.com"))

		require.ErrorIs(t, err, errMock)
		assert.Empty(t, out)
		assert.Equal(t, []string{"http://bad.com"}, adder.calls)
	})

	t.Run("does not split a url that extends another", func(t *testing.T) {
		adder := newRecordingAdder()
		rw := shortener.NewRewriter(adder, testLink)

		out, err := rw.Rewrite(ctx, "http://a.com and http://a.com/x",
			stubScanner("http://a.com", "http://a.com/x"))

		require.NoError(t, err)
		assert.Equal(t, "http://sho.rt/c1 and http://sho.rt/c2", out)
	})

	t.Run("ignores duplicates reported by the scanner", func(t *testing.T) {
		adder := newRecordingAdder()
		rw := shortener.NewRewriter(adder, testLink)

		_, err := rw.Rewrite(ctx, "http://a.com http://a.com", stubScanner("http://a.com", "http://a.com"))

		require.NoError(t, err)
		assert.Len(t, adder.calls, 1)
	})
}
