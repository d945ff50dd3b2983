package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	dErrors "ekyc/pkg/domain-errors"
)

// maxIDLength bounds identifiers accepted at trust boundaries.
const maxIDLength = 256

// ClientID identifies a registered identity record (e.g. "CLIENT1").
type ClientID string

// InstitutionID identifies a participating institution (e.g. "FI1"). It is also
// the principal string a caller presents once its identity has been established.
type InstitutionID string

// ParseClientID constructs a ClientID from external input.
//
// Errors: returns CodeInvalidInput when the value is empty, oversized, not
// valid UTF-8, or contains whitespace or non-printable runes.
func ParseClientID(s string) (ClientID, error) {
	if err := validateID("client id", s); err != nil {
		return "", err
	}
	return ClientID(s), nil
}

// ParseInstitutionID constructs an InstitutionID from external input.
// Same rules as ParseClientID.
func ParseInstitutionID(s string) (InstitutionID, error) {
	if err := validateID("institution id", s); err != nil {
		return "", err
	}
	return InstitutionID(s), nil
}

func (id ClientID) String() string { return string(id) }

func (id ClientID) IsNil() bool { return id == "" }

func (id InstitutionID) String() string { return string(id) }

func (id InstitutionID) IsNil() bool { return id == "" }

func validateID(label, s string) error {
	if strings.TrimSpace(s) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	if len(s) > maxIDLength {
		return dErrors.New(dErrors.CodeInvalidInput, label+" is too long")
	}
	if !utf8.ValidString(s) {
		return dErrors.New(dErrors.CodeInvalidInput, label+" must be valid UTF-8")
	}
	for _, r := range s {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return dErrors.New(dErrors.CodeInvalidInput, label+" contains invalid characters")
		}
	}
	return nil
}
