// Package domain contains the core entities for endometrial cancer staging and
// risk stratification following the FIGO 2023 staging system with its molecular
// classification amendments.
//
// Reference: Berek et al. (2023) FIGO staging of endometrial cancer: 2023.
// Int J Gynaecol Obstet. 162(2):383-394. doi: 10.1002/ijgo.14923
package domain

import (
	"errors"
	"strings"
)

// Histology is the closed set of carcinoma subtypes accepted by the engine.
type Histology string

const (
	HistologyEndometrioidLowGrade  Histology = "endometrioid_low_grade"
	HistologyEndometrioidHighGrade Histology = "endometrioid_high_grade"
	HistologySerous                Histology = "serous"
	HistologyClearCell             Histology = "clear_cell"
	HistologyCarcinosarcoma        Histology = "carcinosarcoma"
	HistologyUndifferentiated      Histology = "undifferentiated"
	HistologyMixed                 Histology = "mixed"
)

// Myoinvasion is the depth of invasion into the myometrium.
type Myoinvasion string

const (
	MyoinvasionNone       Myoinvasion = "none"
	MyoinvasionLessThan50 Myoinvasion = "less_than_50"
	MyoinvasionAtLeast50  Myoinvasion = "50_or_more"
)

// CervicalInvasion is the extent of cervical involvement.
type CervicalInvasion string

const (
	CervicalInvasionNone      CervicalInvasion = "none"
	CervicalInvasionGlandular CervicalInvasion = "glandular"
	CervicalInvasionStromal   CervicalInvasion = "stromal"
)

// LVSIStatus is the lymphovascular space invasion category.
type LVSIStatus string

const (
	LVSINone        LVSIStatus = "none"
	LVSIFocal       LVSIStatus = "focal"
	LVSISubstantial LVSIStatus = "substantial"
)

// MenopausalStatus of the patient.
type MenopausalStatus string

const (
	MenopausalPre  MenopausalStatus = "pre"
	MenopausalPost MenopausalStatus = "post"
)

// SurgicalFitness is the binary fitness indicator used to pick between the
// surgical and the primary radiation pathway.
type SurgicalFitness string

const (
	FitnessFit   SurgicalFitness = "fit"
	FitnessUnfit SurgicalFitness = "unfit"
)

// MolecularSubtype is the result of the hierarchical molecular classifier.
type MolecularSubtype string

const (
	MolecularPOLEMutated  MolecularSubtype = "pole_mutated"
	MolecularMMRDeficient MolecularSubtype = "mmr_deficient"
	MolecularP53Abnormal  MolecularSubtype = "p53_abnormal"
	MolecularNSMP         MolecularSubtype = "nsmp"
)

// RiskGroup is the prognostic risk group driving adjuvant treatment.
type RiskGroup string

const (
	RiskLow                RiskGroup = "low"
	RiskIntermediate       RiskGroup = "intermediate"
	RiskHighIntermediate   RiskGroup = "high_intermediate"
	RiskHigh               RiskGroup = "high"
	RiskUncertain          RiskGroup = "uncertain"
	RiskAdvancedMetastatic RiskGroup = "advanced_metastatic"
)

// Validation errors for clinical input integrity
var (
	ErrNotFound                = errors.New("not found")
	ErrInvalidInput            = errors.New("invalid input")
	ErrInvalidHistology        = errors.New("invalid histology")
	ErrInvalidMyoinvasion      = errors.New("invalid myoinvasion category")
	ErrInvalidCervicalInvasion = errors.New("invalid cervical invasion category")
	ErrInvalidLVSI             = errors.New("invalid LVSI category")
	ErrInvalidMenopausalStatus = errors.New("invalid menopausal status")
	ErrInvalidFitness          = errors.New("invalid surgical fitness indicator")
	ErrInvalidMolecularSubtype = errors.New("invalid molecular subtype")
	ErrInvalidRiskGroup        = errors.New("invalid risk group")
	ErrInvalidStage            = errors.New("invalid FIGO stage")
)

// IsValid reports whether h is one of the recognised histologies.
func (h Histology) IsValid() bool {
	switch h {
	case HistologyEndometrioidLowGrade, HistologyEndometrioidHighGrade, HistologySerous,
		HistologyClearCell, HistologyCarcinosarcoma, HistologyUndifferentiated, HistologyMixed:
		return true
	default:
		return false
	}
}

// IsAggressive reports whether the histology belongs to the non-endometrioid
// aggressive group (serous, clear cell, carcinosarcoma, undifferentiated).
func (h Histology) IsAggressive() bool {
	switch h {
	case HistologySerous, HistologyClearCell, HistologyCarcinosarcoma, HistologyUndifferentiated:
		return true
	default:
		return false
	}
}

// IsLowGradeEndometrioid reports whether h is grade 1-2 endometrioid carcinoma.
func (h Histology) IsLowGradeEndometrioid() bool {
	return h == HistologyEndometrioidLowGrade
}

// Label returns the display label for the histology.
func (h Histology) Label() string {
	switch h {
	case HistologyEndometrioidLowGrade:
		return "Endometrioid (Grade 1 or 2)"
	case HistologyEndometrioidHighGrade:
		return "Endometrioid (Grade 3)"
	case HistologySerous:
		return "Serous Carcinoma"
	case HistologyClearCell:
		return "Clear Cell Carcinoma"
	case HistologyCarcinosarcoma:
		return "Carcinosarcoma"
	case HistologyUndifferentiated:
		return "Undifferentiated"
	case HistologyMixed:
		return "Mixed Histology"
	default:
		return "Unknown histology"
	}
}

func (h Histology) String() string { return string(h) }

// IsValid reports whether m is a recognised myoinvasion category.
func (m Myoinvasion) IsValid() bool {
	switch m {
	case MyoinvasionNone, MyoinvasionLessThan50, MyoinvasionAtLeast50:
		return true
	default:
		return false
	}
}

// Label returns the display label for the myoinvasion category.
func (m Myoinvasion) Label() string {
	switch m {
	case MyoinvasionNone:
		return "None (Confined to Endometrium)"
	case MyoinvasionLessThan50:
		return "Less than 50% (< 50%)"
	case MyoinvasionAtLeast50:
		return "50% or More (>= 50%)"
	default:
		return "Unknown myoinvasion"
	}
}

func (m Myoinvasion) String() string { return string(m) }

// IsValid reports whether c is a recognised cervical invasion category.
func (c CervicalInvasion) IsValid() bool {
	switch c {
	case CervicalInvasionNone, CervicalInvasionGlandular, CervicalInvasionStromal:
		return true
	default:
		return false
	}
}

// Label returns the display label for the cervical invasion category.
func (c CervicalInvasion) Label() string {
	switch c {
	case CervicalInvasionNone:
		return "None"
	case CervicalInvasionGlandular:
		return "Glandular Only"
	case CervicalInvasionStromal:
		return "Stromal Invasion"
	default:
		return "Unknown cervical invasion"
	}
}

func (c CervicalInvasion) String() string { return string(c) }

// IsValid reports whether l is a recognised LVSI category.
func (l LVSIStatus) IsValid() bool {
	switch l {
	case LVSINone, LVSIFocal, LVSISubstantial:
		return true
	default:
		return false
	}
}

// Label returns the display label for the LVSI category.
func (l LVSIStatus) Label() string {
	switch l {
	case LVSINone:
		return "No LVSI"
	case LVSIFocal:
		return "Focal LVSI"
	case LVSISubstantial:
		return "Substantial LVSI"
	default:
		return "Unknown LVSI"
	}
}

func (l LVSIStatus) String() string { return string(l) }

// IsValid reports whether s is a recognised menopausal status.
func (s MenopausalStatus) IsValid() bool {
	return s == MenopausalPre || s == MenopausalPost
}

// Label returns the display label for the menopausal status.
func (s MenopausalStatus) Label() string {
	switch s {
	case MenopausalPre:
		return "Pre-menopausal"
	case MenopausalPost:
		return "Post-menopausal"
	default:
		return "Unknown menopausal status"
	}
}

// IsValid reports whether f is a recognised fitness indicator.
func (f SurgicalFitness) IsValid() bool {
	return f == FitnessFit || f == FitnessUnfit
}

// Label returns the display label for the fitness indicator.
func (f SurgicalFitness) Label() string {
	switch f {
	case FitnessFit:
		return "Fit for Surgery"
	case FitnessUnfit:
		return "Medically Unfit"
	default:
		return "Unknown fitness"
	}
}

// IsValid reports whether m is one of the four molecular subtypes.
func (m MolecularSubtype) IsValid() bool {
	switch m {
	case MolecularPOLEMutated, MolecularMMRDeficient, MolecularP53Abnormal, MolecularNSMP:
		return true
	default:
		return false
	}
}

// Label returns the display label for the molecular subtype.
func (m MolecularSubtype) Label() string {
	switch m {
	case MolecularPOLEMutated:
		return "POLE-mutated"
	case MolecularMMRDeficient:
		return "MMR Deficient (MMRd)"
	case MolecularP53Abnormal:
		return "p53 Abnormal (p53abn)"
	case MolecularNSMP:
		return "No Specific Molecular Profile (NSMP)"
	default:
		return "Unknown/Not Tested"
	}
}

func (m MolecularSubtype) String() string { return string(m) }

// LogFields returns structured logging fields for audit trails.
func (m MolecularSubtype) LogFields() map[string]any {
	return map[string]any{
		"molecular_subtype": string(m),
		"molecular_label":   m.Label(),
		"is_valid":          m.IsValid(),
	}
}

// IsValid reports whether r is one of the six risk groups.
func (r RiskGroup) IsValid() bool {
	switch r {
	case RiskLow, RiskIntermediate, RiskHighIntermediate, RiskHigh, RiskUncertain, RiskAdvancedMetastatic:
		return true
	default:
		return false
	}
}

// Label returns the display label for the risk group.
func (r RiskGroup) Label() string {
	switch r {
	case RiskLow:
		return "Low Risk"
	case RiskIntermediate:
		return "Intermediate Risk"
	case RiskHighIntermediate:
		return "High-Intermediate Risk"
	case RiskHigh:
		return "High Risk"
	case RiskUncertain:
		return "Uncertain Risk"
	case RiskAdvancedMetastatic:
		return "Advanced/Metastatic"
	default:
		return "Unknown risk group"
	}
}

func (r RiskGroup) String() string { return string(r) }

// RequiresAdjuvantTherapy reports whether the risk group carries any adjuvant
// recommendation beyond observation.
func (r RiskGroup) RequiresAdjuvantTherapy() bool {
	switch r {
	case RiskLow:
		return false
	default:
		return true // unknown groups are treated conservatively
	}
}

// ParseRiskGroup accepts either the tag or the display label (case-insensitive).
func ParseRiskGroup(s string) (RiskGroup, error) {
	s = strings.TrimSpace(s)
	for _, r := range AllRiskGroups() {
		if strings.EqualFold(s, string(r)) || strings.EqualFold(s, r.Label()) {
			return r, nil
		}
	}
	return "", ErrInvalidRiskGroup
}

// ParseMolecularSubtype accepts either the tag or the display label (case-insensitive).
func ParseMolecularSubtype(s string) (MolecularSubtype, error) {
	s = strings.TrimSpace(s)
	for _, m := range AllMolecularSubtypes() {
		if strings.EqualFold(s, string(m)) || strings.EqualFold(s, m.Label()) {
			return m, nil
		}
	}
	return "", ErrInvalidMolecularSubtype
}

// AllHistologies returns every histology in display order.
func AllHistologies() []Histology {
	return []Histology{
		HistologyEndometrioidLowGrade, HistologyEndometrioidHighGrade, HistologySerous,
		HistologyClearCell, HistologyCarcinosarcoma, HistologyUndifferentiated, HistologyMixed,
	}
}

// AllMyoinvasions returns every myoinvasion category.
func AllMyoinvasions() []Myoinvasion {
	return []Myoinvasion{MyoinvasionNone, MyoinvasionLessThan50, MyoinvasionAtLeast50}
}

// AllCervicalInvasions returns every cervical invasion category.
func AllCervicalInvasions() []CervicalInvasion {
	return []CervicalInvasion{CervicalInvasionNone, CervicalInvasionGlandular, CervicalInvasionStromal}
}

// AllLVSIStatuses returns every LVSI category.
func AllLVSIStatuses() []LVSIStatus {
	return []LVSIStatus{LVSINone, LVSIFocal, LVSISubstantial}
}

// AllMolecularSubtypes returns the subtypes in classifier precedence order.
func AllMolecularSubtypes() []MolecularSubtype {
	return []MolecularSubtype{MolecularPOLEMutated, MolecularMMRDeficient, MolecularP53Abnormal, MolecularNSMP}
}

// AllRiskGroups returns every risk group.
func AllRiskGroups() []RiskGroup {
	return []RiskGroup{RiskLow, RiskIntermediate, RiskHighIntermediate, RiskHigh, RiskUncertain, RiskAdvancedMetastatic}
}
