package validation

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// FileConstraints defines validation rules for file uploads
type FileConstraints struct {
	AllowedMimeTypes  []string
	AllowedExtensions map[string]bool
	MaxSize           int64
}

var (
	// LogoConstraints defines validation rules for agent logo uploads
	LogoConstraints = FileConstraints{
		AllowedMimeTypes: []string{"image/jpeg", "image/png", "image/webp"},
		AllowedExtensions: map[string]bool{
			".jpg":  true,
			".jpeg": true,
			".png":  true,
			".webp": true,
		},
		MaxSize: 5 << 20, // 5MB
	}

	// PhotoConstraints defines validation rules for property photos
	PhotoConstraints = FileConstraints{
		AllowedMimeTypes:  LogoConstraints.AllowedMimeTypes,
		AllowedExtensions: LogoConstraints.AllowedExtensions,
		MaxSize:           10 << 20, // 10MB
	}

	// VideoConstraints defines validation rules for property video uploads
	VideoConstraints = FileConstraints{
		AllowedMimeTypes: []string{"video/mp4", "video/quicktime", "video/webm"},
		AllowedExtensions: map[string]bool{
			".mp4":  true,
			".mov":  true,
			".webm": true,
		},
		MaxSize: 200 << 20, // 200MB
	}

	// AudioConstraints defines validation rules for voice notes sent to transcription
	AudioConstraints = FileConstraints{
		AllowedMimeTypes: []string{"audio/mpeg", "audio/wav", "audio/ogg", "application/ogg", "audio/webm", "video/webm", "audio/mp4", "audio/x-m4a", "video/mp4"},
		AllowedExtensions: map[string]bool{
			".mp3":  true,
			".wav":  true,
			".ogg":  true,
			".webm": true,
			".m4a":  true,
			".mp4":  true,
		},
		MaxSize: 25 << 20, // 25MB
	}
)

// ValidateFile validates a file upload against one or more constraint sets
// and returns the detected content type.
// If multiple constraints are provided, file must match at least one (OR logic)
func ValidateFile(header *multipart.FileHeader, constraints ...FileConstraints) (string, error) {
	if len(constraints) == 0 {
		return "", fmt.Errorf("no file constraints provided")
	}

	var lastErr error
	for _, constraint := range constraints {
		contentType, err := validateAgainstConstraint(header, constraint)
		if err == nil {
			return contentType, nil
		}
		lastErr = err
	}

	return "", lastErr
}

// validateAgainstConstraint validates a file against a single constraint set
func validateAgainstConstraint(header *multipart.FileHeader, constraints FileConstraints) (string, error) {
	// Check file size first (before reading content)
	if header.Size > constraints.MaxSize {
		maxMB := constraints.MaxSize / (1 << 20)
		return "", fmt.Errorf("file too large: maximum size is %d MB", maxMB)
	}

	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Detect actual content type from magic numbers, not the client header
	detected, err := mimetype.DetectReader(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	contentType := ""
	for _, allowed := range constraints.AllowedMimeTypes {
		if detected.Is(allowed) {
			contentType = allowed
			break
		}
	}
	if contentType == "" {
		return "", fmt.Errorf("invalid file type (detected: %s)", detected.String())
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !constraints.AllowedExtensions[ext] {
		return "", fmt.Errorf("invalid file extension: %s", ext)
	}

	return contentType, nil
}
