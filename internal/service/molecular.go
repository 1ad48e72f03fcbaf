package service

import (
	"github.com/figo-endometrial-mcp-server/internal/domain"
)

// ClassifyMolecular assigns the molecular subtype using the hierarchical
// POLE > MMRd > p53abn > NSMP precedence. Multiple positive markers never
// combine; the first one wins.
func ClassifyMolecular(t domain.TumorProfile) domain.MolecularSubtype {
	switch {
	case t.POLEMutation:
		return domain.MolecularPOLEMutated
	case t.MMRDeficient:
		return domain.MolecularMMRDeficient
	case t.P53Abnormal:
		return domain.MolecularP53Abnormal
	default:
		return domain.MolecularNSMP
	}
}
