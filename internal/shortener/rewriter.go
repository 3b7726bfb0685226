package shortener

import (
	"cmp"
	"context"
	"slices"
	"strings"
)

// Adder creates or returns the active mapping for a URL.
type Adder interface {
	Add(ctx context.Context, rawURL string) (*Mapping, error)
}

// Linker renders the public short value for a code.
type Linker func(code Code) string

// Rewriter replaces every URL in a text with its short value.
type Rewriter struct {
	adder Adder
	link  Linker
}

// NewRewriter creates a text rewriter.
func NewRewriter(adder Adder, link Linker) *Rewriter {
	return &Rewriter{adder: adder, link: link}
}

// Rewrite shortens each distinct URL the scanner finds, once, and replaces all of its
// occurrences. The first failing Add aborts the rewrite and its error is returned.
func (r *Rewriter) Rewrite(ctx context.Context, text string, scan Scanner) (string, error) {
	urls := distinct(scan(text))
	if len(urls) == 0 {
		return text, nil
	}

	type pair struct{ from, to string }

	pairs := make([]pair, 0, len(urls))

	for _, u := range urls {
		mapping, err := r.adder.Add(ctx, u)
		if err != nil {
			return "", err
		}

		pairs = append(pairs, pair{from: u, to: r.link(mapping.Code)})
	}

	// Longest first so a URL that prefixes another never splits it.
	slices.SortStableFunc(pairs, func(a, b pair) int {
		return cmp.Compare(len(b.from), len(a.from))
	})

	oldnew := make([]string, 0, len(pairs)*2)
	for _, p := range pairs {
		oldnew = append(oldnew, p.from, p.to)
	}

	return strings.NewReplacer(oldnew...).Replace(text), nil
}
