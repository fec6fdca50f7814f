// Package redisdoc implements the profile and username-reservation document
// stores on Redis. Each document has per-document atomicity only; the
// cross-document username invariant is enforced by the coordinator on top of
// the conditional reservation write.
package redisdoc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"nextfare/internal/domain"
)

const profileKeyPrefix = "profile:"

// Profile hash field names. The location fields are separate so the
// high-frequency location ping can write them without touching the rest.
const (
	fieldUID       = "uid"
	fieldEmail     = "email"
	fieldUsername  = "username"
	fieldLastLat   = "last_lat"
	fieldLastLng   = "last_lng"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
)

type profileRepository struct {
	client *redis.Client
}

// NewProfileRepository returns a ProfileRepository storing each profile as a
// Redis hash keyed by subject identifier.
func NewProfileRepository(client *redis.Client) domain.ProfileRepository {
	return &profileRepository{client: client}
}

func profileKey(uid string) string {
	return profileKeyPrefix + uid
}

func (r *profileRepository) Get(ctx context.Context, uid string) (*domain.UserProfile, error) {
	fields, err := r.client.HGetAll(ctx, profileKey(uid)).Result()
	if err != nil {
		return nil, storeErr("get profile", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}
	return profileFromFields(fields)
}

func (r *profileRepository) Put(ctx context.Context, p *domain.UserProfile) error {
	key := profileKey(p.UID)
	values := map[string]any{
		fieldUID:       p.UID,
		fieldEmail:     p.Email,
		fieldUsername:  p.Username,
		fieldCreatedAt: p.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldUpdatedAt: p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, values)
	if p.LastLocation != nil {
		pipe.HSet(ctx, key,
			fieldLastLat, formatCoord(p.LastLocation.Latitude),
			fieldLastLng, formatCoord(p.LastLocation.Longitude))
	} else {
		pipe.HDel(ctx, key, fieldLastLat, fieldLastLng)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr("put profile", err)
	}
	return nil
}

func (r *profileRepository) UpdateLocation(ctx context.Context, uid string, location domain.Point, updatedAt time.Time) error {
	key := profileKey(uid)
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return storeErr("check profile", err)
	}
	if exists == 0 {
		return domain.ErrNotFound
	}
	err = r.client.HSet(ctx, key,
		fieldLastLat, formatCoord(location.Latitude),
		fieldLastLng, formatCoord(location.Longitude),
		fieldUpdatedAt, updatedAt.UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return storeErr("update location", err)
	}
	return nil
}

func profileFromFields(fields map[string]string) (*domain.UserProfile, error) {
	p := &domain.UserProfile{
		UID:      fields[fieldUID],
		Email:    fields[fieldEmail],
		Username: fields[fieldUsername],
	}
	var err error
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, fields[fieldCreatedAt]); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt]); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	latStr, latOK := fields[fieldLastLat]
	lngStr, lngOK := fields[fieldLastLng]
	if latOK && lngOK {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return nil, fmt.Errorf("parse last_lat: %w", err)
		}
		lng, err := strconv.ParseFloat(lngStr, 64)
		if err != nil {
			return nil, fmt.Errorf("parse last_lng: %w", err)
		}
		p.LastLocation = &domain.Point{Latitude: lat, Longitude: lng}
	}
	return p, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// storeErr classifies a raw Redis failure as ErrStoreUnavailable while
// keeping the underlying detail for logs.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(domain.ErrStoreUnavailable, err))
}
