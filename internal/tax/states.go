package tax

import (
	"sort"
	"strings"
)

// StateCode is an ISO 3166-2:IN subdivision code for an Indian state or
// union territory.
type StateCode string

const (
	StateAndhraPradesh    StateCode = "AP"
	StateArunachalPradesh StateCode = "AR"
	StateAssam            StateCode = "AS"
	StateBihar            StateCode = "BR"
	StateChhattisgarh     StateCode = "CG"
	StateGoa              StateCode = "GA"
	StateGujarat          StateCode = "GJ"
	StateHaryana          StateCode = "HR"
	StateHimachalPradesh  StateCode = "HP"
	StateJharkhand        StateCode = "JH"
	StateKarnataka        StateCode = "KA"
	StateKerala           StateCode = "KL"
	StateMadhyaPradesh    StateCode = "MP"
	StateMaharashtra      StateCode = "MH"
	StateManipur          StateCode = "MN"
	StateMeghalaya        StateCode = "ML"
	StateMizoram          StateCode = "MZ"
	StateNagaland         StateCode = "NL"
	StateOdisha           StateCode = "OD"
	StatePunjab           StateCode = "PB"
	StateRajasthan        StateCode = "RJ"
	StateSikkim           StateCode = "SK"
	StateTamilNadu        StateCode = "TN"
	StateTelangana        StateCode = "TS"
	StateTripura          StateCode = "TR"
	StateUttarPradesh     StateCode = "UP"
	StateUttarakhand      StateCode = "UK"
	StateWestBengal       StateCode = "WB"

	StateAndamanNicobar        StateCode = "AN"
	StateChandigarh            StateCode = "CH"
	StateDadraNagarHaveliDaman StateCode = "DH"
	StateDelhi                 StateCode = "DL"
	StateJammuKashmir          StateCode = "JK"
	StateLadakh                StateCode = "LA"
	StateLakshadweep           StateCode = "LD"
	StatePuducherry            StateCode = "PY"
)

var stateNames = map[StateCode]string{
	StateAndhraPradesh:         "Andhra Pradesh",
	StateArunachalPradesh:      "Arunachal Pradesh",
	StateAssam:                 "Assam",
	StateBihar:                 "Bihar",
	StateChhattisgarh:          "Chhattisgarh",
	StateGoa:                   "Goa",
	StateGujarat:               "Gujarat",
	StateHaryana:               "Haryana",
	StateHimachalPradesh:       "Himachal Pradesh",
	StateJharkhand:             "Jharkhand",
	StateKarnataka:             "Karnataka",
	StateKerala:                "Kerala",
	StateMadhyaPradesh:         "Madhya Pradesh",
	StateMaharashtra:           "Maharashtra",
	StateManipur:               "Manipur",
	StateMeghalaya:             "Meghalaya",
	StateMizoram:               "Mizoram",
	StateNagaland:              "Nagaland",
	StateOdisha:                "Odisha",
	StatePunjab:                "Punjab",
	StateRajasthan:             "Rajasthan",
	StateSikkim:                "Sikkim",
	StateTamilNadu:             "Tamil Nadu",
	StateTelangana:             "Telangana",
	StateTripura:               "Tripura",
	StateUttarPradesh:          "Uttar Pradesh",
	StateUttarakhand:           "Uttarakhand",
	StateWestBengal:            "West Bengal",
	StateAndamanNicobar:        "Andaman and Nicobar Islands",
	StateChandigarh:            "Chandigarh",
	StateDadraNagarHaveliDaman: "Dadra and Nagar Haveli and Daman and Diu",
	StateDelhi:                 "Delhi",
	StateJammuKashmir:          "Jammu and Kashmir",
	StateLadakh:                "Ladakh",
	StateLakshadweep:           "Lakshadweep",
	StatePuducherry:            "Puducherry",
}

// Former names and common spellings seen in customer-entered addresses.
var stateAliases = map[string]StateCode{
	"orissa":                 StateOdisha,
	"or":                     StateOdisha,
	"pondicherry":            StatePuducherry,
	"new delhi":              StateDelhi,
	"nct of delhi":           StateDelhi,
	"uttaranchal":            StateUttarakhand,
	"ut":                     StateUttarakhand,
	"ct":                     StateChhattisgarh,
	"tg":                     StateTelangana,
	"j&k":                    StateJammuKashmir,
	"andaman & nicobar":      StateAndamanNicobar,
	"andaman and nicobar":    StateAndamanNicobar,
	"daman and diu":          StateDadraNagarHaveliDaman,
	"dadra and nagar haveli": StateDadraNagarHaveliDaman,
	"dn":                     StateDadraNagarHaveliDaman,
	"dd":                     StateDadraNagarHaveliDaman,
}

var (
	stateByName map[string]StateCode
	// Lower-cased names, longest first, for substring matching.
	namesByLength []string
)

func init() {
	stateByName = make(map[string]StateCode, len(stateNames)+len(stateAliases))
	for code, name := range stateNames {
		lower := strings.ToLower(name)
		stateByName[lower] = code
		namesByLength = append(namesByLength, lower)
	}
	for alias, code := range stateAliases {
		stateByName[alias] = code
		if len(alias) > 3 {
			namesByLength = append(namesByLength, alias)
		}
	}
	sort.Slice(namesByLength, func(i, j int) bool {
		if len(namesByLength[i]) != len(namesByLength[j]) {
			return len(namesByLength[i]) > len(namesByLength[j])
		}
		return namesByLength[i] < namesByLength[j]
	})
}

// Name returns the official name for the code, or "" if unknown.
func (c StateCode) Name() string {
	return stateNames[c]
}

// Valid reports whether c belongs to the enumeration.
func (c StateCode) Valid() bool {
	_, ok := stateNames[c]
	return ok
}

// StateCodes returns every known code in sorted order.
func StateCodes() []StateCode {
	codes := make([]StateCode, 0, len(stateNames))
	for code := range stateNames {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// LookupState parses free text into a state code. It accepts ISO codes,
// official names, known aliases, and finally any text containing a known
// name, preferring home when its name is present.
func LookupState(raw string, home StateCode) (StateCode, bool) {
	s := normalize(raw)
	if s == "" {
		return "", false
	}

	if code := StateCode(strings.ToUpper(s)); code.Valid() {
		return code, true
	}
	if code, ok := stateByName[s]; ok {
		return code, true
	}

	if homeName := strings.ToLower(home.Name()); homeName != "" && strings.Contains(s, homeName) {
		return home, true
	}
	for _, name := range namesByLength {
		if strings.Contains(s, name) {
			return stateByName[name], true
		}
	}
	return "", false
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
