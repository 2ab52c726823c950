package normalize

import (
	"testing"

	"github.com/omeister/jpegbatch/internal/domain"
)

func TestLineRejections(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		reason string
	}{
		{"empty", "", domain.ReasonEmptyLine},
		{"whitespace only", "   \t", domain.ReasonEmptyLine},
		{"not a url", "not a url", domain.ReasonInvalidURL},
		{"relative url", "/images/cat.jpg", domain.ReasonInvalidURL},
		{"wrong scheme", "ftp://example.com/cat.jpg", domain.ReasonInvalidURL},
		{"missing host", "http:///cat.jpg", domain.ReasonInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, reason := New().Line(tt.line)
			if reason != tt.reason {
				t.Errorf("Line(%q) reason = %q, want %q", tt.line, reason, tt.reason)
			}
		})
	}
}

func TestLineValid(t *testing.T) {
	n := New()

	target, reason := n.Line("  https://example.com/images/cat.jpg  ")
	if reason != "" {
		t.Fatalf("unexpected rejection: %s", reason)
	}
	if target.URL != "https://example.com/images/cat.jpg" {
		t.Errorf("normalized URL = %q", target.URL)
	}
	if target.FileName != "cat.jpg" {
		t.Errorf("derived file name = %q, want cat.jpg", target.FileName)
	}
	if target.RawInput != "  https://example.com/images/cat.jpg  " {
		t.Errorf("raw input not preserved: %q", target.RawInput)
	}
}

func TestDeriveFileName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"http://example.com/photo.jpeg", "photo.jpeg"},
		{"http://example.com/photo.JPG", "photo.JPG"},
		{"http://example.com/photo.png", "photo.png.jpg"},
		{"http://example.com/photo", "photo.jpg"},
		{"http://example.com/a/b/photo.jpg?size=large", "photo.jpg"},
		{"http://example.com/photo.jpg#section", "photo.jpg"},
		{"http://example.com/", "image.jpg"},
		{"http://example.com", "image.jpg"},
	}

	for _, tt := range tests {
		target, reason := New().Line(tt.url)
		if reason != "" {
			t.Errorf("Line(%q) rejected: %s", tt.url, reason)
			continue
		}
		if target.FileName != tt.want {
			t.Errorf("Line(%q) file name = %q, want %q", tt.url, target.FileName, tt.want)
		}
	}
}

func TestDuplicateDetection(t *testing.T) {
	n := New()

	if _, reason := n.Line("http://x/a.jpg"); reason != "" {
		t.Fatalf("first occurrence rejected: %s", reason)
	}
	if _, reason := n.Line("http://x/a.jpg"); reason != domain.ReasonDuplicate {
		t.Errorf("second occurrence reason = %q, want %q", reason, domain.ReasonDuplicate)
	}

	// Fragment differences must not bypass duplicate detection.
	if _, reason := n.Line("http://x/a.jpg#top"); reason != domain.ReasonDuplicate {
		t.Errorf("fragment variant reason = %q, want %q", reason, domain.ReasonDuplicate)
	}

	// A different query string is a different resource.
	if _, reason := n.Line("http://x/a.jpg?v=2"); reason != "" {
		t.Errorf("query variant rejected: %s", reason)
	}
}

func TestSeparateRunsDoNotShareSeenSet(t *testing.T) {
	if _, reason := New().Line("http://x/a.jpg"); reason != "" {
		t.Fatalf("unexpected rejection: %s", reason)
	}
	if _, reason := New().Line("http://x/a.jpg"); reason != "" {
		t.Errorf("fresh normalizer rejected first occurrence: %s", reason)
	}
}
