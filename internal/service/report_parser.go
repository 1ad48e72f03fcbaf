package service

import (
	"strings"

	"github.com/figo-endometrial-mcp-server/internal/domain"
)

// ApplyScanResult maps free-text report fields onto a copy of the profile
// using case-insensitive substring rules. Nil or empty text fields and nil
// markers leave the corresponding profile field untouched.
func ApplyScanResult(t domain.TumorProfile, scan domain.ScanResult) domain.TumorProfile {
	if present(scan.Histology) {
		t.Histology = NormalizeHistology(*scan.Histology)
	}
	if present(scan.Myoinvasion) {
		t.Myoinvasion = NormalizeMyoinvasion(*scan.Myoinvasion)
	}
	if present(scan.LVSI) {
		t.LVSI = NormalizeLVSI(*scan.LVSI)
	}
	if scan.POLEMutation != nil {
		t.POLEMutation = *scan.POLEMutation
	}
	if scan.MMRDeficient != nil {
		t.MMRDeficient = *scan.MMRDeficient
	}
	if scan.P53Abnormal != nil {
		t.P53Abnormal = *scan.P53Abnormal
	}
	return t
}

// NormalizeHistology maps report text to a histology. Unmatched text maps to
// low-grade endometrioid.
func NormalizeHistology(text string) domain.Histology {
	h := strings.ToLower(text)
	switch {
	case strings.Contains(h, "serous"):
		return domain.HistologySerous
	case strings.Contains(h, "clear"):
		return domain.HistologyClearCell
	case strings.Contains(h, "carcino"):
		return domain.HistologyCarcinosarcoma
	case strings.Contains(h, "grade 3"):
		return domain.HistologyEndometrioidHighGrade
	default:
		return domain.HistologyEndometrioidLowGrade
	}
}

// NormalizeMyoinvasion maps report text to an invasion depth.
func NormalizeMyoinvasion(text string) domain.Myoinvasion {
	m := strings.ToLower(text)
	switch {
	case strings.Contains(m, "50") &&
		(strings.Contains(m, ">") || strings.Contains(m, "more") || strings.Contains(m, "deep")):
		return domain.MyoinvasionAtLeast50
	case strings.Contains(m, "none") || strings.Contains(m, "no"):
		return domain.MyoinvasionNone
	default:
		return domain.MyoinvasionLessThan50
	}
}

// NormalizeLVSI maps report text to an LVSI category.
func NormalizeLVSI(text string) domain.LVSIStatus {
	l := strings.ToLower(text)
	switch {
	case strings.Contains(l, "substantial") || strings.Contains(l, "extensive"):
		return domain.LVSISubstantial
	case strings.Contains(l, "focal"):
		return domain.LVSIFocal
	default:
		return domain.LVSINone
	}
}

func present(s *string) bool {
	return s != nil && *s != ""
}
