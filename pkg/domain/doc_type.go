package domain

import dErrors "ekyc/pkg/domain-errors"

// DocType is the discriminator stored on every ledger record.
// Invariant: the value must be one of the supported document types.
type DocType string

const (
	DocTypeClient      DocType = "client"
	DocTypeInstitution DocType = "institution"
)

var validDocTypes = map[DocType]bool{
	DocTypeClient:      true,
	DocTypeInstitution: true,
}

// ParseDocType constructs a DocType from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseDocType(s string) (DocType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "document type cannot be empty")
	}
	d := DocType(s)
	if !d.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid document type")
	}
	return d, nil
}

// IsValid checks if the document type is one of the supported values.
func (d DocType) IsValid() bool {
	return validDocTypes[d]
}

func (d DocType) String() string {
	return string(d)
}
