package service

import (
	"github.com/figo-endometrial-mcp-server/internal/domain"
)

// AssessRisk assigns the prognostic risk group. Bands overlap; they are
// evaluated in order Low, Intermediate, High-Intermediate, High and the first
// satisfied band wins. Anything uncaught falls back to High.
func AssessRisk(t domain.TumorProfile, stage domain.Stage, mol domain.MolecularSubtype) domain.RiskGroup {
	mmrdOrNSMP := mol == domain.MolecularMMRDeficient || mol == domain.MolecularNSMP
	lowGrade := t.Histology.IsLowGradeEndometrioid()

	// Low
	if mol == domain.MolecularPOLEMutated && !stage.IsAdvanced() {
		return domain.RiskLow
	}
	if mmrdOrNSMP && lowGrade && t.ERPositive &&
		(stage == domain.StageIA1 || stage == domain.StageIA2) && t.LVSI != domain.LVSISubstantial {
		return domain.RiskLow
	}

	// Intermediate
	if mmrdOrNSMP && lowGrade {
		if stage == domain.StageIB {
			return domain.RiskIntermediate
		}
		if stage == domain.StageIIA && mol == domain.MolecularNSMP {
			return domain.RiskIntermediate
		}
	}

	// High-Intermediate
	if mol == domain.MolecularMMRDeficient && (stage.Contains("IIA") || stage.Contains("IIB")) {
		return domain.RiskHighIntermediate
	}
	if mol == domain.MolecularNSMP && stage.Contains("IIB") && lowGrade {
		return domain.RiskHighIntermediate
	}

	// High
	if mol == domain.MolecularP53Abnormal && !stage.IsAdvanced() {
		return domain.RiskHigh
	}
	if stage.IsAdvanced() {
		if mol == domain.MolecularPOLEMutated {
			return domain.RiskUncertain
		}
		return domain.RiskHigh
	}
	if mol == domain.MolecularNSMP && (!lowGrade || !t.ERPositive) {
		return domain.RiskHigh
	}

	return domain.RiskHigh
}
