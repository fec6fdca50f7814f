package redisdoc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"nextfare/internal/domain"
)

const reservationKeyPrefix = "reservation:"

type reservationRepository struct {
	client *redis.Client
}

// NewReservationRepository returns a ReservationRepository storing each
// claim as a JSON document under the normalized username. CreateIfAbsent maps
// to SET NX, so exactly one of two racing claimants can win regardless of
// which process they run in.
func NewReservationRepository(client *redis.Client) domain.ReservationRepository {
	return &reservationRepository{client: client}
}

func reservationKey(username string) string {
	return reservationKeyPrefix + username
}

func (r *reservationRepository) Get(ctx context.Context, username string) (*domain.UsernameReservation, error) {
	data, err := r.client.Get(ctx, reservationKey(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr("get reservation", err)
	}
	res := &domain.UsernameReservation{}
	if err := json.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("decode reservation: %w", err)
	}
	return res, nil
}

func (r *reservationRepository) CreateIfAbsent(ctx context.Context, reservation *domain.UsernameReservation) error {
	data, err := json.Marshal(reservation)
	if err != nil {
		return fmt.Errorf("encode reservation: %w", err)
	}
	// Reservations never expire on their own; release is explicit.
	created, err := r.client.SetNX(ctx, reservationKey(reservation.Username), data, 0).Result()
	if err != nil {
		return storeErr("create reservation", err)
	}
	if !created {
		return domain.ErrUsernameTaken
	}
	return nil
}

func (r *reservationRepository) Delete(ctx context.Context, username string) error {
	if err := r.client.Del(ctx, reservationKey(username)).Err(); err != nil {
		return storeErr("delete reservation", err)
	}
	return nil
}
