package database

import (
	"context"
	"fmt"

	"fretus-backend/internal/models"
)

// CreateLegs inserts the request's leg pair at the end of the trip's sequence.
func (s *txStore) CreateLegs(ctx context.Context, collection *models.CollectionLeg, dropoff *models.DropoffLeg) error {
	var next struct {
		Collection int `db:"collection"`
		Dropoff    int `db:"dropoff"`
	}
	err := s.tx.GetContext(ctx, &next, `
		SELECT
			COALESCE((SELECT MAX(sequence) FROM collection_legs WHERE trip_id = $1), 0) + 1 AS collection,
			COALESCE((SELECT MAX(sequence) FROM dropoff_legs WHERE trip_id = $1), 0) + 1 AS dropoff`,
		collection.TripID,
	)
	if err != nil {
		return fmt.Errorf("failed to compute leg sequence: %w", err)
	}
	collection.Sequence = next.Collection
	dropoff.Sequence = next.Dropoff

	if _, err := s.tx.NamedExecContext(ctx, `
		INSERT INTO collection_legs (
			id, trip_id, delivery_request_id, sequence, address, lat, lng, contact,
			status, created_at, updated_at
		) VALUES (
			:id, :trip_id, :delivery_request_id, :sequence, :address, :lat, :lng, :contact,
			:status, :created_at, :updated_at
		)`, collection); err != nil {
		return fmt.Errorf("failed to create collection leg: %w", err)
	}

	if _, err := s.tx.NamedExecContext(ctx, `
		INSERT INTO dropoff_legs (
			id, trip_id, delivery_request_id, collection_leg_id, sequence, address, lat, lng,
			recipient_name, recipient_phone, status, created_at, updated_at
		) VALUES (
			:id, :trip_id, :delivery_request_id, :collection_leg_id, :sequence, :address, :lat, :lng,
			:recipient_name, :recipient_phone, :status, :created_at, :updated_at
		)`, dropoff); err != nil {
		return fmt.Errorf("failed to create dropoff leg: %w", err)
	}
	return nil
}

func (s *txStore) DeleteLegs(ctx context.Context, requestID string) error {
	if _, err := s.tx.ExecContext(ctx, `DELETE FROM dropoff_legs WHERE delivery_request_id = $1`, requestID); err != nil {
		return fmt.Errorf("failed to delete dropoff leg: %w", err)
	}
	if _, err := s.tx.ExecContext(ctx, `DELETE FROM collection_legs WHERE delivery_request_id = $1`, requestID); err != nil {
		return fmt.Errorf("failed to delete collection leg: %w", err)
	}
	return nil
}

func (s *txStore) GetCollectionLeg(ctx context.Context, id string) (*models.CollectionLeg, error) {
	var leg models.CollectionLeg
	if err := s.tx.GetContext(ctx, &leg, `SELECT * FROM collection_legs WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "collection leg "+id)
	}
	return &leg, nil
}

func (s *txStore) GetCollectionLegByRequest(ctx context.Context, requestID string) (*models.CollectionLeg, error) {
	var leg models.CollectionLeg
	err := s.tx.GetContext(ctx, &leg, `SELECT * FROM collection_legs WHERE delivery_request_id = $1`, requestID)
	if err != nil {
		return nil, notFound(err, "collection leg for request "+requestID)
	}
	return &leg, nil
}

func (s *txStore) GetDropoffLeg(ctx context.Context, id string) (*models.DropoffLeg, error) {
	var leg models.DropoffLeg
	if err := s.tx.GetContext(ctx, &leg, `SELECT * FROM dropoff_legs WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "dropoff leg "+id)
	}
	return &leg, nil
}

func (s *txStore) UpdateCollectionLeg(ctx context.Context, leg *models.CollectionLeg) error {
	res, err := s.tx.NamedExecContext(ctx, `
		UPDATE collection_legs
		SET status = :status, failure_reason = :failure_reason, photo_url = :photo_url, notes = :notes,
		    en_route_at = :en_route_at, arrived_at = :arrived_at, finished_at = :finished_at,
		    updated_at = :updated_at
		WHERE id = :id`, leg)
	if err != nil {
		return fmt.Errorf("failed to update collection leg: %w", err)
	}
	return expectOneRow(res, "collection leg "+leg.ID)
}

func (s *txStore) UpdateDropoffLeg(ctx context.Context, leg *models.DropoffLeg) error {
	res, err := s.tx.NamedExecContext(ctx, `
		UPDATE dropoff_legs
		SET status = :status, failure_reason = :failure_reason,
		    receiver_name = :receiver_name, receiver_document = :receiver_document,
		    photo_url = :photo_url, signature_url = :signature_url,
		    rating = :rating, rating_comment = :rating_comment, notes = :notes,
		    en_route_at = :en_route_at, arrived_at = :arrived_at, finished_at = :finished_at,
		    updated_at = :updated_at
		WHERE id = :id`, leg)
	if err != nil {
		return fmt.Errorf("failed to update dropoff leg: %w", err)
	}
	return expectOneRow(res, "dropoff leg "+leg.ID)
}

func (s *txStore) ListTripLegs(ctx context.Context, tripID string) (models.LegSet, error) {
	return listTripLegs(ctx, s.tx, tripID)
}

func listTripLegs(ctx context.Context, q Queryer, tripID string) (models.LegSet, error) {
	legs := models.LegSet{
		Collections: []models.CollectionLeg{},
		Dropoffs:    []models.DropoffLeg{},
	}
	if err := q.SelectContext(ctx, &legs.Collections,
		`SELECT * FROM collection_legs WHERE trip_id = $1 ORDER BY sequence`, tripID); err != nil {
		return legs, fmt.Errorf("failed to list collection legs: %w", err)
	}
	if err := q.SelectContext(ctx, &legs.Dropoffs,
		`SELECT * FROM dropoff_legs WHERE trip_id = $1 ORDER BY sequence`, tripID); err != nil {
		return legs, fmt.Errorf("failed to list dropoff legs: %w", err)
	}
	return legs, nil
}
