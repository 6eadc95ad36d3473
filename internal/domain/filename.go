package domain

import (
	"strings"
	"unicode"
)

const (
	// UnknownPlaceholder replaces a field the model could not read.
	UnknownPlaceholder = "unknown"

	// DefaultArchiveExtension is the suffix given to archived images unless
	// the source extension is preserved.
	DefaultArchiveExtension = ".jpg"

	// MaxVendorRunes caps the vendor part so names stay under the 255 byte
	// limit of common filesystems.
	MaxVendorRunes = 100

	maxDateRunes = 32
)

// SynthesizeFilename builds the archive name {date}_{vendor}_{total}{ext}.
// An empty ext falls back to DefaultArchiveExtension.
func SynthesizeFilename(fields InvoiceFields, ext string) string {
	if ext == "" {
		ext = DefaultArchiveExtension
	}

	total := UnknownPlaceholder
	if fields.Total.Valid {
		total = fields.Total.Decimal.String()
	}

	return filenameDate(fields.Date) + "_" + SanitizeVendor(fields.Vendor) + "_" + total + ext
}

// SanitizeVendor keeps only letters and digits of the vendor name.
func SanitizeVendor(vendor *string) string {
	if vendor == nil {
		return UnknownPlaceholder
	}

	var b strings.Builder
	n := 0
	for _, r := range *vendor {
		if n == MaxVendorRunes {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			n++
		}
	}

	if b.Len() == 0 {
		return UnknownPlaceholder
	}
	return b.String()
}

// filenameDate keeps the date as written, replacing anything that could
// escape the output directory or break the name.
func filenameDate(date *string) string {
	if date == nil {
		return UnknownPlaceholder
	}

	s := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.' {
			return r
		}
		return '-'
	}, *date)

	if r := []rune(s); len(r) > maxDateRunes {
		s = string(r[:maxDateRunes])
	}

	s = strings.Trim(s, ".")
	if s == "" {
		return UnknownPlaceholder
	}
	return s
}

// ArchiveExtension returns the extension an archived copy of file gets.
func ArchiveExtension(file PendingFile, preserve bool) string {
	if !preserve {
		return DefaultArchiveExtension
	}

	ext := strings.ToLower(file.Ext)
	if ext == "" {
		return DefaultArchiveExtension
	}
	return ext
}
