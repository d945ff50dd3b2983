package ledger

import (
	"strings"
	"unicode/utf8"

	dErrors "ekyc/pkg/domain-errors"
)

// Composite keys are laid out as:
//
//	0x00 namespace 0x00 attr1 0x00 attr2 0x00
//
// Plain record keys never start with 0x00, so a scan over the plain key space
// can tell the two apart.
const (
	compositeKeyNamespace = "\x00"
	minUnicodeRuneValue   = 0
)

// CreateCompositeKey builds a composite key from a namespace and attributes.
// It fails with CodeMalformedKey when the namespace is empty or any part holds
// a NUL rune or invalid UTF-8.
func CreateCompositeKey(namespace string, attributes ...string) (string, error) {
	if namespace == "" {
		return "", dErrors.New(dErrors.CodeMalformedKey, "composite key namespace cannot be empty")
	}
	if err := validateKeyPart(namespace); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(compositeKeyNamespace)
	b.WriteString(namespace)
	b.WriteRune(minUnicodeRuneValue)
	for _, attr := range attributes {
		if err := validateKeyPart(attr); err != nil {
			return "", err
		}
		b.WriteString(attr)
		b.WriteRune(minUnicodeRuneValue)
	}
	return b.String(), nil
}

// SplitCompositeKey is the inverse of CreateCompositeKey.
func SplitCompositeKey(key string) (string, []string, error) {
	if !IsCompositeKey(key) || !strings.HasSuffix(key, "\x00") || len(key) < 3 {
		return "", nil, dErrors.New(dErrors.CodeMalformedKey, "not a composite key")
	}
	parts := strings.Split(key[1:len(key)-1], "\x00")
	if parts[0] == "" {
		return "", nil, dErrors.New(dErrors.CodeMalformedKey, "composite key namespace cannot be empty")
	}
	return parts[0], parts[1:], nil
}

// IsCompositeKey reports whether key lives in the composite key space.
func IsCompositeKey(key string) bool {
	return strings.HasPrefix(key, compositeKeyNamespace)
}

// ValidatePlainKey checks a key used for a top level record.
func ValidatePlainKey(key string) error {
	if key == "" {
		return dErrors.New(dErrors.CodeMalformedKey, "key cannot be empty")
	}
	if IsCompositeKey(key) {
		return dErrors.New(dErrors.CodeMalformedKey, "plain key cannot start with a NUL byte")
	}
	return validateKeyPart(key)
}

func validateKeyPart(s string) error {
	if !utf8.ValidString(s) {
		return dErrors.New(dErrors.CodeMalformedKey, "key part is not valid UTF-8")
	}
	if strings.ContainsRune(s, minUnicodeRuneValue) {
		return dErrors.New(dErrors.CodeMalformedKey, "key part contains a NUL rune")
	}
	return nil
}

// validateKey is applied to every key staged through a transaction.
func validateKey(key string) error {
	if key == "" {
		return dErrors.New(dErrors.CodeMalformedKey, "key cannot be empty")
	}
	if !utf8.ValidString(key) {
		return dErrors.New(dErrors.CodeMalformedKey, "key is not valid UTF-8")
	}
	return nil
}

// PrefixEnd returns the exclusive upper bound for a range scan over prefix.
// Keys are valid UTF-8 and so never contain 0xff.
func PrefixEnd(prefix string) string {
	return prefix + "\xff"
}
