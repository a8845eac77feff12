package schema

// Field is a canonical column identifier.
type Field string

const (
	FieldPeriodStart      Field = "period_start"
	FieldPeriodEnd        Field = "period_end"
	FieldRegion           Field = "region"
	FieldState            Field = "state"
	FieldCity             Field = "city"
	FieldProduct          Field = "product"
	FieldStationsSurveyed Field = "stations_surveyed"
	FieldPriceUnit        Field = "price_unit"
	FieldPriceMean        Field = "price_mean"
	FieldPriceStdDev      Field = "price_stddev"
	FieldPriceMin         Field = "price_min"
	FieldPriceMax         Field = "price_max"
	FieldPriceCV          Field = "price_cv"
)

// AllFields is the matching order used when building a ColumnMap. Fields
// earlier in the list claim ambiguous columns first.
var AllFields = []Field{
	FieldPeriodStart,
	FieldPeriodEnd,
	FieldRegion,
	FieldState,
	FieldCity,
	FieldProduct,
	FieldStationsSurveyed,
	FieldPriceUnit,
	FieldPriceMean,
	FieldPriceStdDev,
	FieldPriceMin,
	FieldPriceMax,
	FieldPriceCV,
}

// RequiredFields must all resolve or ingestion fails.
var RequiredFields = []Field{
	FieldCity,
	FieldState,
	FieldProduct,
	FieldPriceMean,
}

// candidateLabels lists, per field, the canonical labels seen across data
// vintages. The first entry is the current name.
var candidateLabels = map[Field][]string{
	FieldPeriodStart:      {"DATA_INICIAL", "MES", "DATA", "PERIODO_INICIAL", "DATA_DA_COLETA"},
	FieldPeriodEnd:        {"DATA_FINAL", "PERIODO_FINAL"},
	FieldRegion:           {"REGIAO", "REGIOES", "MACRORREGIAO"},
	FieldState:            {"ESTADO", "UF", "ESTADOS", "SIGLA_UF"},
	FieldCity:             {"MUNICIPIO", "CIDADE", "MUNICIPIOS"},
	FieldProduct:          {"PRODUTO", "COMBUSTIVEL"},
	FieldStationsSurveyed: {"NUMERO_DE_POSTOS_PESQUISADOS", "POSTOS_PESQUISADOS", "NUMERO_POSTOS"},
	FieldPriceUnit:        {"UNIDADE_DE_MEDIDA", "UNIDADE"},
	FieldPriceMean:        {"PRECO_MEDIO_REVENDA", "PRECO_MEDIO", "VALOR_MEDIO_REVENDA"},
	FieldPriceStdDev:      {"DESVIO_PADRAO_REVENDA", "DESVIO_PADRAO"},
	FieldPriceMin:         {"PRECO_MINIMO_REVENDA", "PRECO_MINIMO"},
	FieldPriceMax:         {"PRECO_MAXIMO_REVENDA", "PRECO_MAXIMO"},
	FieldPriceCV:          {"COEF_DE_VARIACAO_REVENDA", "COEF_VARIACAO", "COEFICIENTE_DE_VARIACAO"},
}

// CandidateLabels returns a copy of the known labels for f.
func CandidateLabels(f Field) []string {
	labels := candidateLabels[f]
	out := make([]string, len(labels))
	copy(out, labels)
	return out
}

// Anchor is a canonical label fragment expected in a real header row.
type Anchor struct {
	Label    string
	Field    Field
	Specific bool
}

// AnchorPolicy controls header detection.
type AnchorPolicy struct {
	Anchors    []Anchor
	MinMatches int
	ScanRows   int
}

// DefaultAnchorPolicy scans the first 30 rows and needs two distinct anchors.
// The municipality label is the most specific anchor and breaks ties.
func DefaultAnchorPolicy() AnchorPolicy {
	return AnchorPolicy{
		Anchors: []Anchor{
			{Label: "MUNICIPIO", Field: FieldCity, Specific: true},
			{Label: "PRODUTO", Field: FieldProduct},
			{Label: "ESTADO", Field: FieldState},
			{Label: "REGIAO", Field: FieldRegion},
			{Label: "PRECO_MEDIO_REVENDA", Field: FieldPriceMean},
			{Label: "NUMERO_DE_POSTOS_PESQUISADOS", Field: FieldStationsSurveyed},
			{Label: "DATA_INICIAL", Field: FieldPeriodStart},
			{Label: "MES", Field: FieldPeriodStart},
		},
		MinMatches: 2,
		ScanRows:   30,
	}
}
