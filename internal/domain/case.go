package domain

import (
	"encoding/json"
	"fmt"
	"io"
)

// CaseInput is the wire form of one case: patient attributes plus pathology.
type CaseInput struct {
	Patient PatientProfile `json:"patient"`
	Tumor   TumorProfile   `json:"tumor"`
}

// DefaultCaseInput returns the intake form defaults for both profiles.
func DefaultCaseInput() CaseInput {
	return CaseInput{Patient: DefaultPatientProfile(), Tumor: DefaultTumorProfile()}
}

// DecodeCaseInput reads a JSON case. Fields the document omits keep their
// intake form defaults.
func DecodeCaseInput(r io.Reader) (CaseInput, error) {
	in := DefaultCaseInput()
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return CaseInput{}, fmt.Errorf("%w: malformed case document: %v", ErrInvalidInput, err)
	}
	return in, nil
}
