package utils

import (
	"errors"
	"net/url"
	"os"
	"strings"
)

func ReadFile(file string) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func ParseFileToLine(content string) string {
	lines := strings.Split(content, "\n")
	entries := make([]string, 0)

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, strings.TrimSpace(line))
	}

	return strings.Join(entries, ",")
}

// GetIssuer falls back to the app URL when no explicit issuer is configured.
func GetIssuer(appURL string, issuer string) string {
	if issuer != "" {
		return strings.TrimSuffix(issuer, "/")
	}
	return strings.TrimSuffix(appURL, "/")
}

// ValidateRedirectURI checks that a registered redirect URI is absolute and has no fragment.
func ValidateRedirectURI(redirectURI string) error {
	parsed, err := url.Parse(redirectURI)
	if err != nil {
		return err
	}

	if !parsed.IsAbs() || parsed.Host == "" {
		return errors.New("redirect uri must be absolute")
	}

	if parsed.Fragment != "" {
		return errors.New("redirect uri must not contain a fragment")
	}

	return nil
}

// AppendQuery adds the non-empty values to the query of base, keeping existing parameters.
func AppendQuery(base string, values map[string]string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	query := parsed.Query()
	for key, value := range values {
		if value == "" {
			continue
		}
		query.Set(key, value)
	}
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}
