package service

import "github.com/figo-endometrial-mcp-server/internal/domain"

// Term is one accepted value of an input or output category.
type Term struct {
	Tag   string `json:"tag"`
	Label string `json:"label"`
}

// Vocabulary lists every accepted tag with its display label, plus the stage
// codes the engine can emit.
type Vocabulary struct {
	EngineVersion     string   `json:"engine_version"`
	Histology         []Term   `json:"histology"`
	Myoinvasion       []Term   `json:"myoinvasion"`
	CervicalInvasion  []Term   `json:"cervical_invasion"`
	LVSI              []Term   `json:"lvsi"`
	MenopausalStatus  []Term   `json:"menopausal_status"`
	Fitness           []Term   `json:"fitness"`
	MolecularSubtypes []Term   `json:"molecular_subtypes"`
	RiskGroups        []Term   `json:"risk_groups"`
	Stages            []string `json:"stages"`
}

// BuildVocabulary returns the current vocabulary.
func BuildVocabulary() Vocabulary {
	v := Vocabulary{
		EngineVersion: EngineVersion,
		MenopausalStatus: []Term{
			{string(domain.MenopausalPre), domain.MenopausalPre.Label()},
			{string(domain.MenopausalPost), domain.MenopausalPost.Label()},
		},
		Fitness: []Term{
			{string(domain.FitnessFit), domain.FitnessFit.Label()},
			{string(domain.FitnessUnfit), domain.FitnessUnfit.Label()},
		},
	}
	for _, h := range domain.AllHistologies() {
		v.Histology = append(v.Histology, Term{string(h), h.Label()})
	}
	for _, m := range domain.AllMyoinvasions() {
		v.Myoinvasion = append(v.Myoinvasion, Term{string(m), m.Label()})
	}
	for _, c := range domain.AllCervicalInvasions() {
		v.CervicalInvasion = append(v.CervicalInvasion, Term{string(c), c.Label()})
	}
	for _, l := range domain.AllLVSIStatuses() {
		v.LVSI = append(v.LVSI, Term{string(l), l.Label()})
	}
	for _, m := range domain.AllMolecularSubtypes() {
		v.MolecularSubtypes = append(v.MolecularSubtypes, Term{string(m), m.Label()})
	}
	for _, r := range domain.AllRiskGroups() {
		v.RiskGroups = append(v.RiskGroups, Term{string(r), r.Label()})
	}
	for _, s := range domain.AllStages() {
		v.Stages = append(v.Stages, string(s))
	}
	return v
}
