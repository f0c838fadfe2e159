package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/smartplate/smartplate/internal/model"
)

type FoodRequestRepo struct{ DB *sql.DB }

func NewFoodRequestRepo(db *sql.DB) *FoodRequestRepo { return &FoodRequestRepo{DB: db} }

// Create inserts a food request.
func (r *FoodRequestRepo) Create(ctx context.Context, fr model.FoodRequest) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO food_requests (id,ngo_id,food_type,quantity,urgency,lat,lng,address,status,created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		fr.ID, fr.NGOID, fr.FoodType, fr.Quantity, fr.Urgency,
		fr.Location.Lat, fr.Location.Lng, fr.Address, fr.Status, fr.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert food request: %w", err)
	}
	return nil
}

// GetByID fetches a request by id.
func (r *FoodRequestRepo) GetByID(ctx context.Context, id string) (model.FoodRequest, error) {
	var fr model.FoodRequest
	err := r.DB.QueryRowContext(ctx,
		`SELECT id,ngo_id,food_type,quantity,urgency,lat,lng,address,status,created_at
		 FROM food_requests WHERE id=? LIMIT 1`, id).
		Scan(&fr.ID, &fr.NGOID, &fr.FoodType, &fr.Quantity, &fr.Urgency,
			&fr.Location.Lat, &fr.Location.Lng, &fr.Address, &fr.Status, &fr.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.FoodRequest{}, ErrNotFound
		}
		return model.FoodRequest{}, fmt.Errorf("scan food request: %w", err)
	}
	return fr, nil
}

// Count returns the number of food requests.
func (r *FoodRequestRepo) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.DB, "food_requests")
}

type FulfillmentRepo struct{ DB *sql.DB }

func NewFulfillmentRepo(db *sql.DB) *FulfillmentRepo { return &FulfillmentRepo{DB: db} }

// Create inserts a fulfillment.
func (r *FulfillmentRepo) Create(ctx context.Context, f model.Fulfillment) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO fulfillments (id,request_id,donor_id,quantity,created_at) VALUES (?,?,?,?,?)",
		f.ID, f.RequestID, f.DonorID, f.Quantity, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert fulfillment: %w", err)
	}
	return nil
}

// Count returns the number of fulfillments.
func (r *FulfillmentRepo) Count(ctx context.Context) (int64, error) {
	return count(ctx, r.DB, "fulfillments")
}
