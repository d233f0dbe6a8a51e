// Package resume extracts plain text and contact details from uploaded
// resume files.
package resume

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"code.sajari.com/docconv"
)

// Contact holds the details parsed out of a resume's header lines.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?\d[\d\s().\-]{7,}\d`)
)

// ExtractText converts a resume file to plain text. PDF and Word documents go
// through docconv; plain text files are read directly.
func ExtractText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read resume file: %w", err)
		}
		return string(raw), nil
	case ".pdf", ".docx", ".doc":
		res, err := docconv.ConvertPath(path)
		if err != nil {
			return "", fmt.Errorf("failed to convert resume file: %w", err)
		}
		return res.Body, nil
	default:
		return "", fmt.Errorf("unsupported resume file type %q", filepath.Ext(path))
	}
}

// ParseContact pulls name, email and phone out of resume text. The name
// heuristic takes the first short non-empty line that is not the email or
// phone line.
func ParseContact(text string) Contact {
	var c Contact

	if m := emailRe.FindString(text); m != "" {
		c.Email = m
	}
	if m := phoneRe.FindString(text); m != "" {
		c.Phone = strings.TrimSpace(m)
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len(line) > 60 {
			continue
		}
		if strings.Contains(line, "@") || phoneRe.MatchString(line) {
			continue
		}
		// Lines like "Curriculum Vitae" or "Resume" are headings, not names.
		lower := strings.ToLower(line)
		if lower == "resume" || lower == "cv" || strings.Contains(lower, "curriculum") {
			continue
		}
		c.Name = line
		break
	}

	return c
}
