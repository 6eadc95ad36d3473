package domain

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

func TestSynthesizeFilename(t *testing.T) {
	tests := []struct {
		name   string
		fields InvoiceFields
		ext    string
		want   string
	}{
		{
			name: "vendor punctuation and spaces stripped",
			fields: InvoiceFields{
				Date:   strPtr("2024-03-01"),
				Vendor: strPtr("Acme Co."),
				Total:  decimal.NewNullDecimal(decimal.RequireFromString("42.5")),
			},
			want: "2024-03-01_AcmeCo_42.5.jpg",
		},
		{
			name: "null vendor uses placeholder",
			fields: InvoiceFields{
				Date:  strPtr("2024-03-01"),
				Total: decimal.NewNullDecimal(decimal.NewFromInt(10)),
			},
			want: "2024-03-01_unknown_10.jpg",
		},
		{
			name:   "all fields null",
			fields: InvoiceFields{},
			want:   "unknown_unknown_unknown.jpg",
		},
		{
			name: "vendor with only punctuation",
			fields: InvoiceFields{
				Date:   strPtr("2024-01-02"),
				Vendor: strPtr("!!! ---"),
				Total:  decimal.NewNullDecimal(decimal.NewFromInt(3)),
			},
			want: "2024-01-02_unknown_3.jpg",
		},
		{
			name: "accented vendor kept",
			fields: InvoiceFields{
				Date:   strPtr("2024-05-06"),
				Vendor: strPtr("Café de l'Été"),
				Total:  decimal.NewNullDecimal(decimal.RequireFromString("7.20")),
			},
			want: "2024-05-06_CafédelÉté_7.2.jpg",
		},
		{
			name: "slashes in date cannot create directories",
			fields: InvoiceFields{
				Date:   strPtr("01/03/2024"),
				Vendor: strPtr("Shop"),
				Total:  decimal.NewNullDecimal(decimal.NewFromInt(1)),
			},
			want: "01-03-2024_Shop_1.jpg",
		},
		{
			name: "preserved extension",
			fields: InvoiceFields{
				Date:   strPtr("2024-03-01"),
				Vendor: strPtr("Acme"),
				Total:  decimal.NewNullDecimal(decimal.NewFromInt(5)),
			},
			ext:  ".png",
			want: "2024-03-01_Acme_5.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SynthesizeFilename(tt.fields, tt.ext)
			if got != tt.want {
				t.Fatalf("SynthesizeFilename() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSynthesizeFilename_NoNoneToken(t *testing.T) {
	got := SynthesizeFilename(InvoiceFields{Date: strPtr("2024-03-01")}, "")
	if strings.Contains(got, "None") || strings.Contains(got, "null") {
		t.Fatalf("expected no null token in %q", got)
	}
}

func TestArchiveExtension(t *testing.T) {
	tests := []struct {
		ext      string
		preserve bool
		want     string
	}{
		{".PNG", false, ".jpg"},
		{".PNG", true, ".png"},
		{".webp", true, ".webp"},
		{"", true, ".jpg"},
	}

	for _, tt := range tests {
		file := PendingFile{Name: "scan" + tt.ext, Ext: tt.ext}
		if got := ArchiveExtension(file, tt.preserve); got != tt.want {
			t.Errorf("ArchiveExtension(%q, %v) = %q, want %q", tt.ext, tt.preserve, got, tt.want)
		}
	}
}

func TestSynthesizeFilename_LongFieldsAreCapped(t *testing.T) {
	fields := InvoiceFields{
		Date:   strPtr(strings.Repeat("2024-03-01", 10)),
		Vendor: strPtr(strings.Repeat("Société Générale ", 40)),
		Total:  decimal.NewNullDecimal(decimal.RequireFromString("42.5")),
	}

	got := SynthesizeFilename(fields, "")
	if len(got) > 255 {
		t.Fatalf("expected at most 255 bytes, got %d: %q", len(got), got)
	}

	parts := strings.Split(got, "_")
	if n := len([]rune(parts[1])); n != MaxVendorRunes {
		t.Errorf("expected vendor of %d runes, got %d", MaxVendorRunes, n)
	}
	if !strings.HasSuffix(got, "_42.5.jpg") {
		t.Errorf("expected total and extension kept, got %q", got)
	}
}

func TestParseCollisionPolicy(t *testing.T) {
	for _, valid := range []string{"suffix", "overwrite", "reject"} {
		if _, err := ParseCollisionPolicy(valid); err != nil {
			t.Errorf("expected %q to be valid, got %v", valid, err)
		}
	}

	if _, err := ParseCollisionPolicy("rename"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}
