package content

import "strings"

// Vertical is one of a fixed set of industry categories.
type Vertical string

const (
	VerticalTechMedia  Vertical = "Technology & Media"
	VerticalConsumer   Vertical = "Consumer & Retail"
	VerticalFinancial  Vertical = "Financial Services"
	VerticalHealthcare Vertical = "Healthcare"
	VerticalInsurance  Vertical = "Insurance"
	VerticalAutomotive Vertical = "Automotive"
	VerticalTravel     Vertical = "Travel & Hospitality"
	VerticalEducation  Vertical = "Education"
	VerticalTelecom    Vertical = "Telecom"
	VerticalServices   Vertical = "Services"
	VerticalPolitical  Vertical = "Political/Advocacy"
	VerticalOther      Vertical = "Other"
)

var verticals = []Vertical{
	VerticalTechMedia,
	VerticalConsumer,
	VerticalFinancial,
	VerticalHealthcare,
	VerticalInsurance,
	VerticalAutomotive,
	VerticalTravel,
	VerticalEducation,
	VerticalTelecom,
	VerticalServices,
	VerticalPolitical,
	VerticalOther,
}

// Verticals returns the enumeration in its canonical order.
func Verticals() []Vertical {
	out := make([]Vertical, len(verticals))
	copy(out, verticals)
	return out
}

func (v Vertical) Valid() bool {
	for _, known := range verticals {
		if v == known {
			return true
		}
	}
	return false
}

// ParseVertical matches a label case-insensitively, ignoring surrounding
// quotes and punctuation. It returns false instead of guessing.
func ParseVertical(label string) (Vertical, bool) {
	clean := strings.TrimSpace(label)
	clean = strings.Trim(clean, "\"'`.*: \t\n")
	if clean == "" {
		return "", false
	}
	for _, v := range verticals {
		if strings.EqualFold(clean, string(v)) {
			return v, true
		}
	}
	// "Technology and Media" style spelling
	alt := strings.ReplaceAll(clean, " and ", " & ")
	for _, v := range verticals {
		if strings.EqualFold(alt, string(v)) {
			return v, true
		}
	}
	return "", false
}
