package textnorm

import "sort"

// Macro-region names as published by IBGE.
const (
	regionNorte       = "NORTE"
	regionNordeste    = "NORDESTE"
	regionCentroOeste = "CENTRO_OESTE"
	regionSudeste     = "SUDESTE"
	regionSul         = "SUL"
)

// stateNames is keyed by NormalizeName of the full Portuguese state name, so
// accent and case variants resolve to the same entry.
var stateNames = map[string]string{
	"ACRE":                "AC",
	"ALAGOAS":             "AL",
	"AMAPA":               "AP",
	"AMAZONAS":            "AM",
	"BAHIA":               "BA",
	"CEARA":               "CE",
	"DISTRITO FEDERAL":    "DF",
	"ESPIRITO SANTO":      "ES",
	"GOIAS":               "GO",
	"MARANHAO":            "MA",
	"MATO GROSSO":         "MT",
	"MATO GROSSO DO SUL":  "MS",
	"MINAS GERAIS":        "MG",
	"PARA":                "PA",
	"PARAIBA":             "PB",
	"PARANA":              "PR",
	"PERNAMBUCO":          "PE",
	"PIAUI":               "PI",
	"RIO DE JANEIRO":      "RJ",
	"RIO GRANDE DO NORTE": "RN",
	"RIO GRANDE DO SUL":   "RS",
	"RONDONIA":            "RO",
	"RORAIMA":             "RR",
	"SANTA CATARINA":      "SC",
	"SAO PAULO":           "SP",
	"SERGIPE":             "SE",
	"TOCANTINS":           "TO",
}

var stateRegions = map[string]string{
	"AC": regionNorte,
	"AP": regionNorte,
	"AM": regionNorte,
	"PA": regionNorte,
	"RO": regionNorte,
	"RR": regionNorte,
	"TO": regionNorte,

	"AL": regionNordeste,
	"BA": regionNordeste,
	"CE": regionNordeste,
	"MA": regionNordeste,
	"PB": regionNordeste,
	"PE": regionNordeste,
	"PI": regionNordeste,
	"RN": regionNordeste,
	"SE": regionNordeste,

	"DF": regionCentroOeste,
	"GO": regionCentroOeste,
	"MT": regionCentroOeste,
	"MS": regionCentroOeste,

	"ES": regionSudeste,
	"MG": regionSudeste,
	"RJ": regionSudeste,
	"SP": regionSudeste,

	"PR": regionSul,
	"RS": regionSul,
	"SC": regionSul,
}

// StateNameToCode looks up the two-letter code for a full state name.
// It returns false when the name is not one of the 27 federative units.
func StateNameToCode(name string) (string, bool) {
	code, ok := stateNames[NormalizeName(name)]
	return code, ok
}

// RegionForStateCode returns the macro-region name of a state code.
func RegionForStateCode(code string) (string, bool) {
	region, ok := stateRegions[NormalizeName(code)]
	return region, ok
}

// ResolveState accepts either a two-letter code or a full name and returns
// the canonical code.
func ResolveState(value string) (string, bool) {
	key := NormalizeName(value)
	if len(key) == 2 {
		if _, ok := stateRegions[key]; ok {
			return key, true
		}
	}
	code, ok := stateNames[key]
	return code, ok
}

// StateCodes returns every known state code, sorted.
func StateCodes() []string {
	codes := make([]string, 0, len(stateRegions))
	for code := range stateRegions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
