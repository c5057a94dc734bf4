package services

import (
	"math"

	"fretus-backend/internal/models"
)

// QuoteFare prices a delivery along route using tier.
// total = base fare + per-km rate * route distance + stop fee, rounded to cents.
func QuoteFare(route *models.Route, tier *models.PriceTier) models.Fare {
	total := tier.BaseFare + tier.PerKmRate*route.DistanceKm + tier.StopFee
	return models.Fare{
		BaseFare:   tier.BaseFare,
		PerKmRate:  tier.PerKmRate,
		DistanceKm: route.DistanceKm,
		StopFee:    tier.StopFee,
		Total:      math.Round(total*100) / 100,
	}
}
