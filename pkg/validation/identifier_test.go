package validation

import (
	"testing"
)

func TestValidateProjectName(t *testing.T) {
	tests := []struct {
		name    string
		project string
		wantErr bool
	}{
		// Valid names
		{"simple", "acme", false},
		{"single char", "a", false},
		{"with digit", "acme2", false},
		{"with dot", "acme.web", false},
		{"with hyphen", "acme-prod", false},
		{"with underscore", "acme_prod", false},
		{"mixed case", "AcmeProd", false},
		{"max length", "a123456789012345678901234567890123456789012345678901234567890123", false},

		// Invalid names - traversal and key collision attempts
		{"empty", "", true},
		{"path traversal", "../other", true},
		{"forward slash", "acme/web", true},
		{"backslash", `acme\web`, true},
		{"key delimiter abuse", "acme/nist_csf", true},
		{"spaces", "acme prod", true},
		{"newline", "acme\nprod", true},
		{"special chars", "acme@#$", true},
		{"starts with dot", ".acme", true},
		{"starts with hyphen", "-acme", true},
		{"too long", "a1234567890123456789012345678901234567890123456789012345678901234", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProjectName(tt.project)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateProjectName(%q) error = %v, wantErr %v", tt.project, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFrameworkID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"snake case", "nist_csf", false},
		{"with digits", "soc2", false},
		{"with dot", "iso27001.2022", false},
		{"empty", "", true},
		{"slash", "nist/csf", true},
		{"starts with underscore", "_csf", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFrameworkID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFrameworkID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidateProjectNames(t *testing.T) {
	tests := []struct {
		name     string
		projects []string
		wantErr  bool
	}{
		{"all valid", []string{"acme", "zeta", "midway"}, false},
		{"one invalid", []string{"acme", "../bad", "zeta"}, true},
		{"all invalid", []string{"a/b", "c d"}, true},
		{"empty slice", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProjectNames(tt.projects)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateProjectNames(%v) error = %v, wantErr %v", tt.projects, err, tt.wantErr)
			}
		})
	}
}
