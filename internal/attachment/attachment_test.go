package attachment

import (
	"errors"
	"testing"
)

// small valid PNG header followed by padding
func pngBytes() []byte {
	header := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	return append(header, make([]byte, 64)...)
}

func TestValidateAcceptsMatchingContent(t *testing.T) {
	mime, err := Validate("receipt.png", pngBytes())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if mime != "image/png" {
		t.Fatalf("mime = %q", mime)
	}

	pdf := append([]byte("%PDF-1.4\n"), make([]byte, 64)...)
	if _, err := Validate("doc.PDF", pdf); err != nil {
		t.Fatalf("Validate pdf: %v", err)
	}
}

func TestValidateRejectsEmptyFile(t *testing.T) {
	if _, err := Validate("x.png", nil); !errors.Is(err, ErrBadContent) {
		t.Fatalf("err = %v, want ErrBadContent", err)
	}
}

func TestValidateRejectsOversize(t *testing.T) {
	big := make([]byte, MaxSize+1)
	copy(big, pngBytes())
	if _, err := Validate("big.png", big); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}

func TestValidateRejectsUnknownExtension(t *testing.T) {
	if _, err := Validate("script.exe", pngBytes()); !errors.Is(err, ErrBadExtension) {
		t.Fatalf("err = %v, want ErrBadExtension", err)
	}
}

func TestValidateRejectsMismatchedContent(t *testing.T) {
	// a PNG payload behind a .pdf name must not pass
	if _, err := Validate("fake.pdf", pngBytes()); !errors.Is(err, ErrBadContent) {
		t.Fatalf("err = %v, want ErrBadContent", err)
	}
}
