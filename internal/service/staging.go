package service

import (
	"github.com/figo-endometrial-mcp-server/internal/domain"
)

// StageRule is one row of the staging decision table.
type StageRule struct {
	Name   string
	When   func(t domain.TumorProfile, mol domain.MolecularSubtype) bool
	Result func(t domain.TumorProfile, mol domain.MolecularSubtype) domain.Stage
}

// stageRules is evaluated top to bottom and the first matching row fixes the
// stage. Row order encodes clinical precedence and must not change.
var stageRules = []StageRule{
	{
		Name:   "distant_metastasis",
		When:   func(t domain.TumorProfile, _ domain.MolecularSubtype) bool { return t.DistantMetastasis },
		Result: fixedStage(domain.StageIVC),
	},
	{
		Name:   "peritoneal_carcinomatosis",
		When:   func(t domain.TumorProfile, _ domain.MolecularSubtype) bool { return t.PeritonealCarcinomatosis },
		Result: fixedStage(domain.StageIVB),
	},
	{
		Name: "bladder_bowel_mucosa",
		When: func(t domain.TumorProfile, _ domain.MolecularSubtype) bool { return t.BladderBowelMucosa },
		Result: func(_ domain.TumorProfile, mol domain.MolecularSubtype) domain.Stage {
			if mol == domain.MolecularPOLEMutated {
				return domain.StageIVAmPOLE
			}
			return domain.StageIVA
		},
	},
	{
		Name:   "paraaortic_nodes",
		When:   func(t domain.TumorProfile, _ domain.MolecularSubtype) bool { return t.ParaaorticNodesPositive },
		Result: fixedStage(domain.StageIIIC2),
	},
	{
		Name:   "pelvic_nodes",
		When:   func(t domain.TumorProfile, _ domain.MolecularSubtype) bool { return t.PelvicNodesPositive },
		Result: fixedStage(domain.StageIIIC1),
	},
	{
		Name:   "peritoneal_involvement",
		When:   func(t domain.TumorProfile, _ domain.MolecularSubtype) bool { return t.PeritonealInvolvement },
		Result: fixedStage(domain.StageIIIB2),
	},
	{
		Name: "vaginal_or_parametrial",
		When: func(t domain.TumorProfile, _ domain.MolecularSubtype) bool {
			return t.VaginalInvolvement || t.ParametrialInvolvement
		},
		Result: fixedStage(domain.StageIIIB1),
	},
	{
		Name:   "adnexal_involvement",
		When:   func(t domain.TumorProfile, _ domain.MolecularSubtype) bool { return t.AdnexalInvolvement },
		Result: fixedStage(domain.StageIIIA1),
	},
	{
		Name: "cervical_stromal_invasion",
		When: func(t domain.TumorProfile, _ domain.MolecularSubtype) bool {
			return t.CervicalInvasion == domain.CervicalInvasionStromal
		},
		Result: molecularOverride(domain.StageIIA),
	},
	{
		Name: "aggressive_substantial_lvsi",
		When: func(t domain.TumorProfile, _ domain.MolecularSubtype) bool {
			return t.Histology.IsAggressive() && t.LVSI == domain.LVSISubstantial
		},
		Result: molecularOverride(domain.StageIIB),
	},
	{
		Name: "aggressive_with_myoinvasion",
		When: func(t domain.TumorProfile, _ domain.MolecularSubtype) bool {
			return t.Histology.IsAggressive() && t.HasMyoinvasion()
		},
		Result: func(_ domain.TumorProfile, mol domain.MolecularSubtype) domain.Stage {
			if mol == domain.MolecularPOLEMutated {
				return domain.StageIAmPOLE
			}
			return domain.StageIIC
		},
	},
	{
		Name: "deep_myoinvasion",
		When: func(t domain.TumorProfile, _ domain.MolecularSubtype) bool {
			return t.Myoinvasion == domain.MyoinvasionAtLeast50
		},
		Result: func(t domain.TumorProfile, mol domain.MolecularSubtype) domain.Stage {
			switch {
			case mol == domain.MolecularPOLEMutated:
				return domain.StageIAmPOLE
			case mol == domain.MolecularP53Abnormal:
				return domain.StageIICmP53
			case t.Histology.IsLowGradeEndometrioid():
				return domain.StageIB
			default:
				return domain.StageIBHighGrade
			}
		},
	},
	{
		Name: "confined_to_uterus",
		When: func(domain.TumorProfile, domain.MolecularSubtype) bool { return true },
		Result: func(t domain.TumorProfile, mol domain.MolecularSubtype) domain.Stage {
			switch {
			case mol == domain.MolecularPOLEMutated:
				return domain.StageIAmPOLE
			case mol == domain.MolecularP53Abnormal && t.HasMyoinvasion():
				return domain.StageIICmP53
			case t.Histology.IsLowGradeEndometrioid() && !t.HasMyoinvasion():
				return domain.StageIA1
			case t.Histology.IsLowGradeEndometrioid():
				return domain.StageIA2
			default:
				return domain.StageIC
			}
		},
	},
}

// StageRules returns a copy of the ordered staging decision table.
func StageRules() []StageRule {
	rules := make([]StageRule, len(stageRules))
	copy(rules, stageRules)
	return rules
}

// DetermineStage walks the decision table and returns the stage of the first
// matching row. The final row always matches.
func DetermineStage(t domain.TumorProfile, mol domain.MolecularSubtype) domain.Stage {
	stage, _ := determineStageWithRule(t, mol)
	return stage
}

// determineStageWithRule also reports which row fired, for audit logging.
func determineStageWithRule(t domain.TumorProfile, mol domain.MolecularSubtype) (domain.Stage, string) {
	for _, rule := range stageRules {
		if rule.When(t, mol) {
			return rule.Result(t, mol), rule.Name
		}
	}
	return domain.StageIC, "fallback"
}

func fixedStage(s domain.Stage) func(domain.TumorProfile, domain.MolecularSubtype) domain.Stage {
	return func(domain.TumorProfile, domain.MolecularSubtype) domain.Stage { return s }
}

// molecularOverride applies the POLE downstage and the p53abn upstage shared
// by the cervical stroma and LVSI rows.
func molecularOverride(anatomic domain.Stage) func(domain.TumorProfile, domain.MolecularSubtype) domain.Stage {
	return func(t domain.TumorProfile, mol domain.MolecularSubtype) domain.Stage {
		switch {
		case mol == domain.MolecularPOLEMutated:
			return domain.StageIAmPOLE
		case mol == domain.MolecularP53Abnormal && t.HasMyoinvasion():
			return domain.StageIICmP53
		default:
			return anatomic
		}
	}
}
