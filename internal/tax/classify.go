package tax

import "strings"

// Classifier assigns free-text addresses to a Category. It never fails:
// every input lands in exactly one category.
type Classifier struct {
	Home StateCode
}

// DefaultClassifier treats Andhra Pradesh as the home state.
var DefaultClassifier = Classifier{Home: StateAndhraPradesh}

// Classify applies the rules in priority order:
// a country other than India is international; a state naming the home
// state, or equal to its code, is local; anything else is interstate.
func (c Classifier) Classify(state, country string) Category {
	if normalize(country) != DomesticCountry {
		return CategoryInternational
	}
	if c.isHome(state) {
		return CategoryLocal
	}
	return CategoryInterstate
}

func (c Classifier) isHome(state string) bool {
	s := normalize(state)
	if s == "" {
		return false
	}
	if name := strings.ToLower(c.Home.Name()); name != "" && strings.Contains(s, name) {
		return true
	}
	return s == strings.ToLower(string(c.Home))
}

// Classify uses DefaultClassifier.
func Classify(state, country string) Category {
	return DefaultClassifier.Classify(state, country)
}
