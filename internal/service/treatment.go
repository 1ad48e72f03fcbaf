package service

import (
	"github.com/figo-endometrial-mcp-server/internal/domain"
)

// Recommendation statements. Their text is part of the output contract.
const (
	SurgeryUnfit               = "Patient is Medically Unfit for major surgery."
	SurgeryPrimaryRadiation    = "Primary Radiation (EBRT + Brachytherapy) is the alternative standard."
	SurgeryHysterectomy        = "Total Hysterectomy + Bilateral Salpingo-oophorectomy (Standard)."
	SurgeryMinimallyInvasive   = "Minimally Invasive approach (Laparoscopy/Robotic) preferred."
	SurgeryOvarianPreservation = "Ovarian Preservation can be discussed (must exclude genetic syndromes)."
	SurgerySLNOptional         = "Sentinel Lymph Node (SLN) biopsy: Optional/Not mandatory."
	SurgerySLNRecommended      = "Sentinel Lymph Node (SLN) biopsy: Recommended (ICG technique)."
	SurgeryLymphadenectomy     = "If SLN fails/not mapped: Perform systematic lymphadenectomy."
	SurgeryOmentectomy         = "Infracolic Omentectomy indicated for serous/carcinosarcoma."

	AdjuvantNone                   = "No additional treatment required."
	AdjuvantBrachytherapy          = "Vaginal Brachytherapy (Internal Radiation) recommended."
	AdjuvantObservation            = "Observation is an alternative for patients < 60 years."
	AdjuvantChemoRadiation         = "Chemotherapy + External Beam Radiation."
	AdjuvantPelvicEBRT             = "External Beam Radiotherapy (EBRT) to pelvis."
	AdjuvantBrachytherapyAlone     = "Vaginal Brachytherapy alone can be considered if extensive staging confirmed node-negative."
	AdjuvantEBRTConcurrentChemo    = "External Beam Radiotherapy (EBRT) + Concurrent Chemotherapy."
	AdjuvantSequentialChemo        = "Alternative: Sequential Chemotherapy (Carboplatin/Paclitaxel) -> Radiation."
	AdjuvantImmunotherapy          = "Immunotherapy (Pembrolizumab/Dostarlimab) combined with chemotherapy is a new standard."
	AdjuvantHER2Testing            = "HER2 testing recommended; add Trastuzumab if HER2 positive."
	AdjuvantMultidisciplinaryBoard = "Complex case (POLEmut Advanced Stage). Multidisciplinary Board discussion required."
)

// ovarianPreservationMaxAge is exclusive.
const ovarianPreservationMaxAge = 45

// SurveillanceSchedule returns the fixed follow-up schedule.
func SurveillanceSchedule() []string {
	return []string{"Years 1-3: Every 3-4 months", "Years 4-5: Every 6 months", "Annually thereafter"}
}

// PlanTreatment builds the surgical, adjuvant and surveillance sequences.
// Conditional statements are appended independently in a fixed order.
func PlanTreatment(
	p domain.PatientProfile,
	t domain.TumorProfile,
	stage domain.Stage,
	risk domain.RiskGroup,
	mol domain.MolecularSubtype,
) domain.TreatmentPlan {
	return domain.TreatmentPlan{
		Surgery:      planSurgery(p, risk),
		Adjuvant:     planAdjuvant(t, stage, risk, mol),
		Surveillance: SurveillanceSchedule(),
	}
}

func planSurgery(p domain.PatientProfile, risk domain.RiskGroup) []string {
	if p.Fitness == domain.FitnessUnfit {
		return []string{SurgeryUnfit, SurgeryPrimaryRadiation}
	}

	surgery := []string{SurgeryHysterectomy, SurgeryMinimallyInvasive}
	if risk == domain.RiskLow && p.Age < ovarianPreservationMaxAge {
		surgery = append(surgery, SurgeryOvarianPreservation)
	}
	if risk == domain.RiskLow {
		return append(surgery, SurgerySLNOptional)
	}

	surgery = append(surgery, SurgerySLNRecommended)
	if risk == domain.RiskHigh {
		surgery = append(surgery, SurgeryLymphadenectomy, SurgeryOmentectomy)
	}
	return surgery
}

func planAdjuvant(t domain.TumorProfile, stage domain.Stage, risk domain.RiskGroup, mol domain.MolecularSubtype) []string {
	switch risk {
	case domain.RiskLow:
		return []string{AdjuvantNone}
	case domain.RiskIntermediate:
		return []string{AdjuvantBrachytherapy, AdjuvantObservation}
	case domain.RiskHighIntermediate:
		if t.HasNodalDisease() {
			return []string{AdjuvantChemoRadiation}
		}
		return []string{AdjuvantPelvicEBRT, AdjuvantBrachytherapyAlone}
	case domain.RiskHigh:
		adjuvant := []string{AdjuvantEBRTConcurrentChemo, AdjuvantSequentialChemo}
		if mol == domain.MolecularMMRDeficient && stage.IsAdvanced() {
			adjuvant = append(adjuvant, AdjuvantImmunotherapy)
		}
		if mol == domain.MolecularP53Abnormal && t.Histology == domain.HistologySerous {
			adjuvant = append(adjuvant, AdjuvantHER2Testing)
		}
		return adjuvant
	default:
		return []string{AdjuvantMultidisciplinaryBoard}
	}
}
