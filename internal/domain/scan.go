package domain

// ScanResult is the partial structure extracted from a pathology report by
// the external scan service. Absent fields are nil and leave the profile
// untouched when applied.
type ScanResult struct {
	Histology    *string `json:"histology,omitempty"`
	Myoinvasion  *string `json:"myoinvasion,omitempty"`
	LVSI         *string `json:"lvsi,omitempty"`
	POLEMutation *bool   `json:"poleMutation,omitempty"`
	MMRDeficient *bool   `json:"mmrDeficient,omitempty"`
	P53Abnormal  *bool   `json:"p53Abnormal,omitempty"`
}

// ChatMessage is one turn of a conversation with the explanation service.
type ChatMessage struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"text"`
}
