package domain

import "fmt"

// TumorProfile holds the pathology findings for a single case. Flags are
// independent; the engine resolves combinations by precedence.
type TumorProfile struct {
	Histology        Histology        `json:"histology"`
	Myoinvasion      Myoinvasion      `json:"myoinvasion"`
	CervicalInvasion CervicalInvasion `json:"cervical_invasion"`
	LVSI             LVSIStatus       `json:"lvsi"`
	TumorSizeCm      float64          `json:"tumor_size_cm"`
	ERPositive       bool             `json:"er_positive"`

	AdnexalInvolvement       bool `json:"adnexal_involvement"`
	VaginalInvolvement       bool `json:"vaginal_involvement"`
	ParametrialInvolvement   bool `json:"parametrial_involvement"`
	PeritonealInvolvement    bool `json:"peritoneal_involvement"`
	PelvicNodesPositive      bool `json:"pelvic_nodes_positive"`
	ParaaorticNodesPositive  bool `json:"paraaortic_nodes_positive"`
	BladderBowelMucosa       bool `json:"bladder_bowel_mucosa"`
	DistantMetastasis        bool `json:"distant_metastasis"`
	PeritonealCarcinomatosis bool `json:"peritoneal_carcinomatosis"`

	POLEMutation bool `json:"pole_mutation"`
	MMRDeficient bool `json:"mmr_deficient"`
	P53Abnormal  bool `json:"p53_abnormal"`
}

// PatientProfile holds the patient attributes used by the treatment planner.
type PatientProfile struct {
	Age              int              `json:"age"`
	BMI              float64          `json:"bmi"`
	MenopausalStatus MenopausalStatus `json:"menopausal_status"`
	Fitness          SurgicalFitness  `json:"fitness"`
}

// DefaultTumorProfile returns the intake form defaults.
func DefaultTumorProfile() TumorProfile {
	return TumorProfile{
		Histology:        HistologyEndometrioidLowGrade,
		Myoinvasion:      MyoinvasionLessThan50,
		CervicalInvasion: CervicalInvasionNone,
		LVSI:             LVSINone,
		TumorSizeCm:      3.0,
		ERPositive:       true,
	}
}

// DefaultPatientProfile returns the intake form defaults.
func DefaultPatientProfile() PatientProfile {
	return PatientProfile{
		Age:              60,
		BMI:              28,
		MenopausalStatus: MenopausalPost,
		Fitness:          FitnessFit,
	}
}

// HasNodalDisease reports whether either nodal station is positive.
func (t TumorProfile) HasNodalDisease() bool {
	return t.PelvicNodesPositive || t.ParaaorticNodesPositive
}

// HasMyoinvasion reports whether any myometrial invasion is present.
func (t TumorProfile) HasMyoinvasion() bool {
	return t.Myoinvasion != MyoinvasionNone
}

// Validate checks the profile against the closed vocabularies. The first
// offending field is reported.
func (t TumorProfile) Validate() error {
	if !t.Histology.IsValid() {
		return NewFieldError("histology", ErrInvalidHistology, t.Histology)
	}
	if !t.Myoinvasion.IsValid() {
		return NewFieldError("myoinvasion", ErrInvalidMyoinvasion, t.Myoinvasion)
	}
	if !t.CervicalInvasion.IsValid() {
		return NewFieldError("cervical_invasion", ErrInvalidCervicalInvasion, t.CervicalInvasion)
	}
	if !t.LVSI.IsValid() {
		return NewFieldError("lvsi", ErrInvalidLVSI, t.LVSI)
	}
	if t.TumorSizeCm < 0 {
		return NewValidationError("tumor_size_cm", "tumor size cannot be negative", t.TumorSizeCm)
	}
	return nil
}

// Validate checks the patient attributes.
func (p PatientProfile) Validate() error {
	if p.Age <= 0 || p.Age > 120 {
		return NewValidationError("age", fmt.Sprintf("age must be in (0,120], got %d", p.Age), p.Age)
	}
	if p.BMI < 0 || p.BMI > 100 {
		return NewValidationError("bmi", "BMI must be between 0 and 100", p.BMI)
	}
	if !p.MenopausalStatus.IsValid() {
		return NewFieldError("menopausal_status", ErrInvalidMenopausalStatus, p.MenopausalStatus)
	}
	if !p.Fitness.IsValid() {
		return NewFieldError("fitness", ErrInvalidFitness, p.Fitness)
	}
	return nil
}
