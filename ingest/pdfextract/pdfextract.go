// Package pdfextract produces page text from a PDF file, trying a fixed
// sequence of backends and falling back to a chunked re-pass when a
// full-document pass comes back empty.
package pdfextract

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	pdf "github.com/dslipak/pdf"

	"github.com/JasonAskew/knowledge-sub001/internal/errs"
)

// PageTimeout is the hard per-page budget; a page that exceeds it is
// recorded as an extraction error and emitted empty, never failing the
// whole document (spec.md §4.2). A var, not a const, so tests can shrink
// it instead of sleeping 30s to exercise the deadline path.
var PageTimeout = 30 * time.Second

// ChunkedRepassSize is the page-group size used when a full-document pass
// returns no text at all.
const ChunkedRepassSize = 10

// Section is a coarse heading-delimited span of a document's text that
// downstream consumers may ignore.
type Section struct {
	Heading string
	Start   int
	End     int
}

// Result is the output of extracting one PDF (spec.md §4.2).
type Result struct {
	PageCount       int
	PerPageText     []string
	DetectedTables  []int
	ExtractionErrors []string
	Sections        []Section
}

// backend tries to extract all pages of an already-open reader, returning
// one string per page. An empty return means "this backend found nothing,
// try the next one" — not necessarily an error.
type backend struct {
	name string
	run  func(ctx context.Context, r *pdf.Reader) ([]string, []string)
}

// Extract runs the fixed backend order against path (spec.md §4.2): a fast
// native engine, a table-aware pass, a minimal fallback, then (only if the
// whole document still came back empty) a chunked re-pass in groups of
// ChunkedRepassSize pages.
func Extract(ctx context.Context, path string) (*Result, error) {
	r, err := pdf.Open(path)
	if err != nil {
		return nil, &errs.ExtractionFailure{DocumentID: path, Err: err}
	}
	n := r.NumPage()

	backends := []backend{
		{"native", extractNative},
		{"table-aware", extractTableAware},
		{"minimal", extractMinimal},
	}

	var pages []string
	var errsOut []string
	var tables []int
	for _, b := range backends {
		pages, errsOut = b.run(ctx, r)
		if anyNonEmpty(pages) {
			tables = detectTables(pages)
			break
		}
	}

	if !anyNonEmpty(pages) {
		pages, errsOut = chunkedRepass(ctx, r, n)
		tables = detectTables(pages)
	}

	if !anyNonEmpty(pages) {
		return nil, &errs.ExtractionFailure{DocumentID: path, Err: fmt.Errorf("all backends produced empty text (%d pages)", n)}
	}

	return &Result{
		PageCount:        n,
		PerPageText:      pages,
		DetectedTables:   tables,
		ExtractionErrors: errsOut,
		Sections:         detectSections(pages),
	}, nil
}

func anyNonEmpty(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}

// extractNative is the fast path: GetPlainText per page with no
// post-processing beyond whitespace normalization.
func extractNative(ctx context.Context, r *pdf.Reader) ([]string, []string) {
	n := r.NumPage()
	pages := make([]string, n)
	var errsOut []string
	for i := 1; i <= n; i++ {
		text, err := extractPageWithTimeout(ctx, func() (string, error) { return pagePlainText(r, i) })
		if err != nil {
			errsOut = append(errsOut, fmt.Sprintf("page %d: %v", i, err))
			continue
		}
		pages[i-1] = normalizeWhitespace(text)
	}
	return pages, errsOut
}

// extractTableAware re-reads each page's raw text content stream rows,
// preserving row structure with newlines so grid-like table layouts
// survive as line-oriented text rather than collapsing to a run-on string.
func extractTableAware(ctx context.Context, r *pdf.Reader) ([]string, []string) {
	n := r.NumPage()
	pages := make([]string, n)
	var errsOut []string
	for i := 1; i <= n; i++ {
		text, err := extractPageWithTimeout(ctx, func() (string, error) { return pageRowText(r, i) })
		if err != nil {
			errsOut = append(errsOut, fmt.Sprintf("page %d: %v", i, err))
			continue
		}
		pages[i-1] = normalizeWhitespace(text)
	}
	return pages, errsOut
}

// extractMinimal is the last-resort backend: a bare GetPlainText pass with
// no row/table awareness, used only when the first two produce nothing.
func extractMinimal(ctx context.Context, r *pdf.Reader) ([]string, []string) {
	n := r.NumPage()
	pages := make([]string, n)
	var errsOut []string
	for i := 1; i <= n; i++ {
		text, err := extractPageWithTimeout(ctx, func() (string, error) { return pagePlainText(r, i) })
		if err != nil {
			errsOut = append(errsOut, fmt.Sprintf("page %d: %v", i, err))
			continue
		}
		pages[i-1] = strings.TrimSpace(text)
	}
	return pages, errsOut
}

func pagePlainText(r *pdf.Reader, i int) (string, error) {
	p := r.Page(i)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

func pageRowText(r *pdf.Reader, i int) (string, error) {
	p := r.Page(i)
	if p.V.IsNull() {
		return "", nil
	}
	rows, err := p.GetTextByRow()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, row := range rows {
		for _, word := range row.Content {
			b.WriteString(word.S)
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// chunkedRepass retries extraction in page groups, honoring PageTimeout
// per page via a context deadline, for documents where a full pass failed
// outright (malformed content streams, oversized pages, etc.).
func chunkedRepass(ctx context.Context, r *pdf.Reader, n int) ([]string, []string) {
	pages := make([]string, n)
	var errsOut []string

	for start := 1; start <= n; start += ChunkedRepassSize {
		end := start + ChunkedRepassSize - 1
		if end > n {
			end = n
		}
		for i := start; i <= end; i++ {
			text, err := extractPageWithTimeout(ctx, func() (string, error) { return pagePlainText(r, i) })
			if err != nil {
				errsOut = append(errsOut, fmt.Sprintf("page %d: %v", i, err))
				continue
			}
			pages[i-1] = normalizeWhitespace(text)
		}
	}
	return pages, errsOut
}

// extractPageWithTimeout runs fn under a PageTimeout deadline so a single
// pathological page (malformed content stream, pathological glyph table)
// can never hang a whole Extract call — every backend goes through this,
// not just the chunked re-pass (spec.md §4.2).
func extractPageWithTimeout(ctx context.Context, fn func() (string, error)) (string, error) {
	pctx, cancel := context.WithTimeout(ctx, PageTimeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := fn()
		ch <- result{text, err}
	}()

	select {
	case <-pctx.Done():
		return "", pctx.Err()
	case res := <-ch:
		return res.text, res.err
	}
}

var whitespaceRun = regexp.MustCompile(`[ \t]+`)
var blankLineRun = regexp.MustCompile(`\n{3,}`)

func normalizeWhitespace(s string) string {
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = blankLineRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

var headingPattern = regexp.MustCompile(`(?m)^([A-Z][A-Z0-9 ,&/-]{4,60})$`)

// detectSections finds coarse heading-delimited spans across concatenated
// page text; downstream consumers may ignore this entirely (spec.md §4.2).
func detectSections(pages []string) []Section {
	full := strings.Join(pages, "\n")
	matches := headingPattern.FindAllStringIndex(full, -1)
	if len(matches) == 0 {
		return nil
	}
	sections := make([]Section, 0, len(matches))
	for i, m := range matches {
		end := len(full)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		sections = append(sections, Section{
			Heading: strings.TrimSpace(full[m[0]:m[1]]),
			Start:   m[0],
			End:     end,
		})
	}
	return sections
}

var tableRowPattern = regexp.MustCompile(`(?m)^(\S+[ \t]+){2,}\S+$`)

// detectTables flags pages whose text has several lines that look like
// whitespace-delimited table rows (3+ tokens per line, repeated).
func detectTables(pages []string) []int {
	var out []int
	for i, text := range pages {
		if len(tableRowPattern.FindAllString(text, -1)) >= 3 {
			out = append(out, i+1)
		}
	}
	return out
}
