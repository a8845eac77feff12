package analytics

import (
	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
	"github.com/fuelmetrics/fuelmetrics-api/internal/textnorm"
)

// obs builds an observation with the region derived from the state code.
func obs(city, state string, class models.ProductClass, price float64, stations int) models.Observation {
	region := models.RegionUnresolved
	if name, ok := textnorm.RegionForStateCode(state); ok {
		region = models.Region(name)
	}
	return models.Observation{
		City:             city,
		StateCode:        state,
		Region:           region,
		Product:          string(class),
		ProductClass:     class,
		PriceMean:        price,
		StationsSurveyed: stations,
	}
}

func tableOf(rows ...models.Observation) *models.CanonicalTable {
	return models.NewCanonicalTable(rows)
}
