package domain

// Target is one validated URL destined for download.
// Immutable once created by the normalizer; consumed exactly once by the
// scheduler.
type Target struct {
	// RawInput is the original input line, kept for reporting.
	RawInput string `json:"raw_input"`

	// URL is the normalized absolute URL (fragment stripped).
	URL string `json:"url"`

	// FileName is the derived base name. Collision suffixes are applied
	// by the file writer, not here.
	FileName string `json:"file_name"`
}
