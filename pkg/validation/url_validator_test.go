package validation

import (
	"errors"
	"testing"

	apperrors "github.com/anime-shed/frame-classifier/internal/errors"
)

func TestValidateTableURL(t *testing.T) {
	validator := NewURLValidator()

	tests := []struct {
		name        string
		url         string
		wantMessage string
	}{
		{"https table", "https://config.example.com/tables/biological.yaml", ""},
		{"http table with port", "http://10.0.0.5:8081/artifact.json", ""},
		{"azure blob", "https://acct.blob.core.windows.net/tables/custom.yaml", ""},
		{"empty", "", "URL cannot be empty"},
		{"whitespace", " \t\n", "URL cannot be empty"},
		{"file scheme", "file:///etc/tables/bio.yaml", "URL scheme not allowed"},
		{"ftp scheme", "ftp://example.com/bio.yaml", "URL scheme not allowed"},
		{"relative path", "tables/bio.yaml", "URL scheme not allowed"},
		{"no host", "https:///bio.yaml", "URL must have a valid host"},
		{"bad escape", "http://example.com/%zz", "Invalid URL format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateTableURL(tt.url)
			if tt.wantMessage == "" {
				if err != nil {
					t.Errorf("Expected %q to pass validation, got %v", tt.url, err)
				}
				return
			}

			var appErr *apperrors.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("Expected AppError, got %T (%v)", err, err)
			}
			if appErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", appErr.Message, tt.wantMessage)
			}
			if appErr.Type != apperrors.ErrorTypeValidation {
				t.Errorf("Type = %s, want validation", appErr.Type)
			}
		})
	}
}

func TestValidateTableURL_RestrictedHosts(t *testing.T) {
	validator := NewURLValidatorWithOptions([]string{"https"}, []string{"config.example.com"})

	if err := validator.ValidateTableURL("https://config.example.com/bio.yaml"); err != nil {
		t.Errorf("Expected allowed host to pass, got %v", err)
	}
	if err := validator.ValidateTableURL("https://CONFIG.example.com/bio.yaml"); err != nil {
		t.Errorf("Expected host match to ignore case, got %v", err)
	}
	if err := validator.ValidateTableURL("https://elsewhere.example.com/bio.yaml"); err == nil {
		t.Error("Expected disallowed host to fail")
	}
	if err := validator.ValidateTableURL("http://config.example.com/bio.yaml"); err == nil {
		t.Error("Expected http to fail when only https is allowed")
	}
}
