package domain

import "strings"

// Stage is a FIGO 2023 stage code. It is treated as an opaque label; severity
// is tested by substring containment rather than by ordinal rank.
type Stage string

const (
	StageIA1         Stage = "IA1"
	StageIA2         Stage = "IA2"
	StageIB          Stage = "IB"
	StageIBHighGrade Stage = "IB (High Grade)"
	StageIC          Stage = "IC"
	StageIIA         Stage = "IIA"
	StageIIB         Stage = "IIB"
	StageIIC         Stage = "IIC"
	StageIAmPOLE     Stage = "IAm (POLEmut)"
	StageIICmP53     Stage = "IICm (p53abn)"
	StageIIIA1       Stage = "IIIA1"
	StageIIIB1       Stage = "IIIB1"
	StageIIIB2       Stage = "IIIB2"
	StageIIIC1       Stage = "IIIC1"
	StageIIIC2       Stage = "IIIC2"
	StageIVA         Stage = "IVA"
	StageIVAmPOLE    Stage = "IVA (mPOLEmut)"
	StageIVB         Stage = "IVB"
	StageIVC         Stage = "IVC"
)

// AllStages returns the full stage vocabulary ordered roughly by severity.
func AllStages() []Stage {
	return []Stage{
		StageIA1, StageIA2, StageIB, StageIBHighGrade, StageIC, StageIAmPOLE,
		StageIIA, StageIIB, StageIIC, StageIICmP53,
		StageIIIA1, StageIIIB1, StageIIIB2, StageIIIC1, StageIIIC2,
		StageIVA, StageIVAmPOLE, StageIVB, StageIVC,
	}
}

// IsValid reports whether s belongs to the stage vocabulary.
func (s Stage) IsValid() bool {
	for _, known := range AllStages() {
		if s == known {
			return true
		}
	}
	return false
}

// IsAdvanced reports whether the code names a stage III or IV disease.
// "IICm (p53abn)" contains neither substring and is therefore not advanced.
func (s Stage) IsAdvanced() bool {
	return strings.Contains(string(s), "III") || strings.Contains(string(s), "IV")
}

// Contains is the substring test used by the risk bands.
func (s Stage) Contains(code string) bool {
	return strings.Contains(string(s), code)
}

func (s Stage) String() string { return string(s) }
