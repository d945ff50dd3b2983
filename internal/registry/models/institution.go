package models

import (
	id "ekyc/pkg/domain"
)

// Institution is a participant registered administratively. Its ID doubles as
// the principal string the institution authenticates with. Immutable.
type Institution struct {
	DocType    id.DocType       `json:"docType"`
	ID         id.InstitutionID `json:"id"`
	Attributes map[string]any   `json:"attributes"`
}

// NewInstitution builds an institution record.
func NewInstitution(institutionID id.InstitutionID, attributes map[string]any) (*Institution, error) {
	if err := ValidateAttributes(attributes); err != nil {
		return nil, err
	}
	return &Institution{
		DocType:    id.DocTypeInstitution,
		ID:         institutionID,
		Attributes: attributes,
	}, nil
}
