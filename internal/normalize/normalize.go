// Package normalize turns raw input lines into validated download targets.
//
// Validation rules apply in order, first failure wins: empty line, URL that
// does not parse as absolute http(s), duplicate of an already-seen URL.
// A missing or non-JPEG extension is not a rejection; the derived file name
// gets a ".jpg" suffix and the content type is confirmed at fetch time.
package normalize

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/omeister/jpegbatch/internal/domain"
)

// placeholderName is used when the URL path carries no usable final segment.
const placeholderName = "image"

var unsafeNameChars = regexp.MustCompile(`[\\/:*?"<>|[:cntrl:]]`)

// Normalizer validates input lines and tracks URLs already seen in this run.
// It is a pure function of (line, seen-set) and performs no I/O.
// Not safe for concurrent use; the engine normalizes before scheduling.
type Normalizer struct {
	seen map[string]struct{}
}

func New() *Normalizer {
	return &Normalizer{seen: make(map[string]struct{})}
}

// Line validates one raw input line. It returns the target and an empty
// reason on success, or a zero target and a rejection reason.
func (n *Normalizer) Line(raw string) (domain.Target, string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return domain.Target{}, domain.ReasonEmptyLine
	}

	u, err := url.Parse(trimmed)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return domain.Target{}, domain.ReasonInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return domain.Target{}, domain.ReasonInvalidURL
	}

	// Fragments are client-side only and must not distinguish two inputs
	// pointing at the same resource.
	u.Fragment = ""
	normalized := u.String()

	if _, dup := n.seen[normalized]; dup {
		return domain.Target{}, domain.ReasonDuplicate
	}
	n.seen[normalized] = struct{}{}

	return domain.Target{
		RawInput: raw,
		URL:      normalized,
		FileName: deriveFileName(u),
	}, ""
}

// deriveFileName builds a base file name from the final path segment.
// Query and fragment never contribute, and anything the filesystem would
// object to is replaced.
func deriveFileName(u *url.URL) string {
	base := path.Base(u.Path)
	if base == "/" || base == "." || base == "" {
		base = placeholderName
	}

	base = unsafeNameChars.ReplaceAllString(base, "_")

	switch strings.ToLower(path.Ext(base)) {
	case ".jpg", ".jpeg":
		return base
	default:
		return base + ".jpg"
	}
}
