package model

// MailingLabelData is one printable label row.
type MailingLabelData struct {
	OfficeName  string `json:"officeName"`
	ContactName string `json:"contactName"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	City        string `json:"city"`
	State       string `json:"state"`
	Zip         string `json:"zip"`
}

// CloneLabels returns an independent copy of labels. MailingLabelData holds
// only strings, so a shallow element copy is enough.
func CloneLabels(labels []MailingLabelData) []MailingLabelData {
	if labels == nil {
		return nil
	}
	out := make([]MailingLabelData, len(labels))
	copy(out, labels)
	return out
}
