package models

// ClassLabels are the seven deck classes players may declare.
var ClassLabels = []string{
	"Forestcraft",
	"Swordcraft",
	"Runecraft",
	"Dragoncraft",
	"Abysscraft",
	"Havencraft",
	"Portalcraft",
}

// IsValidClass reports whether label is one of the known classes.
func IsValidClass(label string) bool {
	for _, c := range ClassLabels {
		if c == label {
			return true
		}
	}
	return false
}
