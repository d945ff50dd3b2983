package models

import (
	"strings"

	id "ekyc/pkg/domain"
	dErrors "ekyc/pkg/domain-errors"
)

// RegisteredByAttribute is the attribute a registering institution must set to
// its own identity.
const RegisteredByAttribute = "registeredBy"

// Client is a registered identity record.
//
// Invariants:
//   - ID is assigned at creation and never changes
//   - RegisteredBy equals the caller that created the record and is never reassigned
//   - Attributes[RegisteredByAttribute] mirrors RegisteredBy
//   - DocType is always "client"
//
// Attribute values are open-ended JSON. Only the registering institution and
// the institutions it approves may read them, and only field by field.
type Client struct {
	DocType      id.DocType       `json:"docType"`
	ID           id.ClientID      `json:"id"`
	RegisteredBy id.InstitutionID `json:"registeredBy"`
	Attributes   map[string]any   `json:"attributes"`
}

// NewClient validates registration input and builds the record. The caller is
// the pre-authenticated principal submitting the registration.
func NewClient(clientID id.ClientID, caller id.InstitutionID, attributes map[string]any) (*Client, error) {
	if err := ValidateAttributes(attributes); err != nil {
		return nil, err
	}
	raw, ok := attributes[RegisteredByAttribute]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "attribute registeredBy is required")
	}
	registeredBy, ok := raw.(string)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "attribute registeredBy must be a string")
	}
	if id.InstitutionID(registeredBy) != caller {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller is not the institution named in registeredBy")
	}
	return &Client{
		DocType:      id.DocTypeClient,
		ID:           clientID,
		RegisteredBy: caller,
		Attributes:   attributes,
	}, nil
}

// IsRegisteredBy reports whether institution owns the record.
func (c *Client) IsRegisteredBy(institution id.InstitutionID) bool {
	return c.RegisteredBy == institution
}

// ValidateAttributes rejects attribute maps whose names could never be
// addressed by a field list: empty names, names with surrounding whitespace,
// and names containing the field separator.
func ValidateAttributes(attributes map[string]any) error {
	if attributes == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "attributes are required")
	}
	for name := range attributes {
		if name == "" || strings.TrimSpace(name) != name {
			return dErrors.New(dErrors.CodeInvalidInput, "attribute names must be non-empty without surrounding whitespace")
		}
		if strings.Contains(name, ",") {
			return dErrors.New(dErrors.CodeInvalidInput, "attribute names cannot contain commas")
		}
	}
	return nil
}
