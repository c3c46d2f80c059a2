package model

import "strings"

const labelSep = "|"

// ProductLabel is the structured product name written at creation:
// "name|description|location|price|manufacturer".
type ProductLabel struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Location     string `json:"location,omitempty"`
	Price        string `json:"price,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
}

// Encode renders the label as stored on the ledger. Separators inside fields
// are replaced so the label always splits back into the same fields.
func (l ProductLabel) Encode() string {
	fields := []string{l.Name, l.Description, l.Location, l.Price, l.Manufacturer}
	for i, f := range fields {
		fields[i] = strings.ReplaceAll(strings.TrimSpace(f), labelSep, "/")
	}
	return strings.TrimRight(strings.Join(fields, labelSep), labelSep)
}

// ParseProductLabel splits a stored product name. Plain names without
// separators yield a label with only Name set.
func ParseProductLabel(raw string) ProductLabel {
	parts := strings.Split(raw, labelSep)
	get := func(i int) string {
		if i < len(parts) {
			return strings.TrimSpace(parts[i])
		}
		return ""
	}
	return ProductLabel{
		Name:         get(0),
		Description:  get(1),
		Location:     get(2),
		Price:        get(3),
		Manufacturer: get(4),
	}
}
