package services

import "fretus-backend/internal/models"

// ComputeStatus derives a trip's status from its current legs.
//
// A failed collection can never progress, so it and its paired dropoff are left
// out of the counted sets. A failed collection still counts as having left
// pending for the purpose of the collecting state.
func ComputeStatus(legs models.LegSet) models.TripStatus {
	failed := make(map[string]bool)
	var countedCollections []models.CollectionLeg
	anyCollectionStarted := false
	for _, c := range legs.Collections {
		if c.Status != models.CollectionPending {
			anyCollectionStarted = true
		}
		if c.Status == models.CollectionFailed {
			failed[c.ID] = true
			continue
		}
		countedCollections = append(countedCollections, c)
	}

	var countedDropoffs []models.DropoffLeg
	for _, d := range legs.Dropoffs {
		if failed[d.CollectionLegID] {
			continue
		}
		countedDropoffs = append(countedDropoffs, d)
	}

	if len(countedDropoffs) > 0 && allDropoffs(countedDropoffs, models.DropoffDelivered) {
		return models.TripStatusCompleted
	}
	for _, d := range countedDropoffs {
		if d.Status != models.DropoffPending {
			return models.TripStatusDelivering
		}
	}
	if len(countedCollections) > 0 && allCollections(countedCollections, models.CollectionCollected) {
		return models.TripStatusInTransit
	}
	if anyCollectionStarted {
		return models.TripStatusCollecting
	}
	return models.TripStatusScheduled
}

// NextStatus returns the status a trip should store after its legs changed.
// Terminal states stick and the result never ranks below current.
func NextStatus(current models.TripStatus, legs models.LegSet) models.TripStatus {
	if current.IsTerminal() {
		return current
	}
	derived := ComputeStatus(legs)
	if derived.Progress() > current.Progress() {
		return derived
	}
	return current
}

func allDropoffs(legs []models.DropoffLeg, status models.DropoffStatus) bool {
	for _, l := range legs {
		if l.Status != status {
			return false
		}
	}
	return true
}

func allCollections(legs []models.CollectionLeg, status models.CollectionStatus) bool {
	for _, l := range legs {
		if l.Status != status {
			return false
		}
	}
	return true
}
