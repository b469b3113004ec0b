package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	mediaRoot := filepath.Join(tmpDir, "media")
	outsideDir := filepath.Join(tmpDir, "outside")
	if err := os.MkdirAll(mediaRoot, 0755); err != nil {
		t.Fatalf("Failed to create media root: %v", err)
	}
	if err := os.MkdirAll(outsideDir, 0755); err != nil {
		t.Fatalf("Failed to create outside directory: %v", err)
	}

	outsideFile := filepath.Join(outsideDir, "secret.mp4")
	if err := os.WriteFile(outsideFile, []byte("secret"), 0644); err != nil {
		t.Fatalf("Failed to create outside file: %v", err)
	}

	// Symlink inside the media root pointing out of it.
	symlinkPath := filepath.Join(mediaRoot, "evil-symlink")
	if err := os.Symlink(outsideDir, symlinkPath); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	tests := []struct {
		name      string
		filePath  string
		safeDir   string
		wantError bool
	}{
		{
			name:      "valid path within directory",
			filePath:  filepath.Join(mediaRoot, "clip.mp4"),
			safeDir:   mediaRoot,
			wantError: false,
		},
		{
			name:      "valid nested path",
			filePath:  filepath.Join(mediaRoot, "captures", "clip.mp4"),
			safeDir:   mediaRoot,
			wantError: false,
		},
		{
			name:      "path traversal with ..",
			filePath:  filepath.Join(mediaRoot, "..", "clip.mp4"),
			safeDir:   mediaRoot,
			wantError: true,
		},
		{
			name:      "path traversal at start",
			filePath:  "../../../etc/passwd",
			safeDir:   mediaRoot,
			wantError: true,
		},
		{
			name:      "absolute path outside safe dir",
			filePath:  "/etc/passwd",
			safeDir:   mediaRoot,
			wantError: true,
		},
		{
			name:      "symlink escape through symlinked directory",
			filePath:  filepath.Join(symlinkPath, "secret.mp4"),
			safeDir:   mediaRoot,
			wantError: true,
		},
		{
			name:      "symlink escape accessing symlink directly",
			filePath:  symlinkPath,
			safeDir:   mediaRoot,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, tt.safeDir)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePathWithinDirectory() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "session id passes through",
			in:   "ses_b4f9c2d81a3e4f67",
			want: "ses_b4f9c2d81a3e4f67",
		},
		{
			name: "path separators collapse",
			in:   "../../etc/passwd",
			want: "etc_passwd",
		},
		{
			name: "spaces and punctuation become underscores",
			in:   "session (final)!",
			want: "session_final",
		},
		{
			name: "empty input",
			in:   "",
			want: "unknown",
		},
		{
			name: "only unsafe characters",
			in:   "///",
			want: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
