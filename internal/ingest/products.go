package ingest

import (
	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
	"github.com/fuelmetrics/fuelmetrics-api/internal/textnorm"
)

// productClasses is the complete consolidation table, keyed by
// textnorm.NormalizeName of the raw label. Labels outside it are dropped.
// The "S 10" keys are the hyphenated "S-10" spelling after normalization.
var productClasses = map[string]models.ProductClass{
	"GASOLINA":           models.ClassGasolina,
	"GASOLINA COMUM":     models.ClassGasolina,
	"GASOLINA ADITIVADA": models.ClassGasolina,

	"OLEO DIESEL": models.ClassDiesel,
	"DIESEL":      models.ClassDiesel,

	"OLEO DIESEL S10":  models.ClassDieselS10,
	"DIESEL S10":       models.ClassDieselS10,
	"OLEO DIESEL S 10": models.ClassDieselS10,
	"DIESEL S 10":      models.ClassDieselS10,

	"ETANOL":           models.ClassEtanol,
	"ETANOL HIDRATADO": models.ClassEtanol,
	"ALCOOL":           models.ClassEtanol,

	"GNV":                  models.ClassGNV,
	"GAS NATURAL VEICULAR": models.ClassGNV,
}

// ClassifyProduct maps a raw product label to its product class.
func ClassifyProduct(label string) (models.ProductClass, bool) {
	class, ok := productClasses[textnorm.NormalizeName(label)]
	return class, ok
}
