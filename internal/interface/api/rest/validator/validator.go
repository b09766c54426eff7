package validator

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"devtransfer/config"
	"devtransfer/internal/interface/api/rest/dto/auth"
)

const maxFilenameLen = 1024

var (
	// base64url codes of at least 5 random bytes
	codeRe = regexp.MustCompile(`^[A-Za-z0-9_-]{7,128}$`)

	ErrInvalidTTL      = errors.New("ttl must be a duration (e.g. 90m) or a number of seconds")
	ErrInvalidOneShot  = errors.New("one_shot must be a boolean")
	ErrMissingFilename = errors.New("filename is required")
	ErrInvalidFilename = errors.New("filename must be valid UTF-8 without NUL, at most 1024 bytes")
)

func ValidCode(code string) bool { return codeRe.MatchString(code) }

// ParseTTL returns def for an empty value.
func ParseTTL(raw string, def time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	ttl, err := config.ParseDuration(raw)
	if err != nil || ttl < 0 {
		return 0, ErrInvalidTTL
	}

	return ttl, nil
}

func ParseOneShot(raw string) (bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, ErrInvalidOneShot
	}

	return v, nil
}

// CheckFilename accepts the display name exactly as uploaded. Names are only
// made safe where they leave the server (headers, the client's local path).
// Names a backend cannot store are rejected, never rewritten.
func CheckFilename(name string) (string, error) {
	switch {
	case strings.TrimSpace(name) == "":
		return "", ErrMissingFilename
	case len(name) > maxFilenameLen, !utf8.ValidString(name), strings.ContainsRune(name, 0):
		return "", ErrInvalidFilename
	}

	return name, nil
}

// ASCIIFilename is the Content-Disposition fallback for clients that ignore filename*.
func ASCIIFilename(name string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	s, _, _ := transform.String(t, name)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_' || r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	out := strings.TrimSpace(b.String())
	if out == "" || strings.Trim(out, "._") == "" {
		return "file"
	}

	return out
}

func isMn(r rune) bool { return unicode.Is(unicode.Mn, r) }

func ValidateLogin(r auth.LoginRequest) map[string]string {
	errs := make(map[string]string)

	if strings.TrimSpace(r.Username) == "" {
		errs["username"] = "username is required"
	}
	// password is not trimmed, only checked for presence
	if r.Password == "" {
		errs["password"] = "password is required"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
