package domain

import (
	"context"
	"strings"
	"time"
)

// Identity is the verified (subject, email) pair produced by the token
// verifier. It is created once per request by the auth middleware and passed
// explicitly; nothing downstream re-derives it from the raw credential.
type Identity struct {
	SubjectID string
	Email     string
}

// UserProfile is one end user's profile document, keyed by the immutable
// subject identifier. Email is set at creation and treated as immutable here;
// Username keeps the display case the user typed.
// swagger:model UserProfile
type UserProfile struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	LastLocation *Point    `json:"last_location,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UsernameReservation is the uniqueness claim on a normalized username.
// System invariant: at most one reservation exists per normalized name, and
// it names the subject whose profile currently holds that username.
type UsernameReservation struct {
	Username   string    `json:"username"` // normalized form
	UID        string    `json:"uid"`
	ReservedAt time.Time `json:"reserved_at"`
}

// NormalizeUsername reduces a username to the canonical form used for
// uniqueness comparison. The display form on the profile is left untouched.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ProfileRepository stores profile documents keyed by subject identifier.
type ProfileRepository interface {
	// Get returns the profile, or ErrNotFound.
	Get(ctx context.Context, uid string) (*UserProfile, error)
	// Put writes the full profile document.
	Put(ctx context.Context, profile *UserProfile) error
	// UpdateLocation writes only the location fields and updated-at, leaving
	// every other field untouched. Returns ErrNotFound if no profile exists.
	UpdateLocation(ctx context.Context, uid string, location Point, updatedAt time.Time) error
}

// ReservationRepository stores username reservations keyed by normalized
// username. CreateIfAbsent must be a store-level conditional write so two
// racing processes cannot both claim a name.
type ReservationRepository interface {
	// Get returns the reservation, or ErrNotFound.
	Get(ctx context.Context, username string) (*UsernameReservation, error)
	// CreateIfAbsent writes the reservation only if none exists for the
	// name; returns ErrUsernameTaken otherwise.
	CreateIfAbsent(ctx context.Context, reservation *UsernameReservation) error
	// Delete removes the reservation. Deleting an absent reservation is not
	// an error.
	Delete(ctx context.Context, username string) error
}

// IdentityVerifier verifies a bearer token and returns the authenticated
// identity. Token issuance is an external collaborator's job.
type IdentityVerifier interface {
	Verify(token string) (Identity, error)
}

// ProfileUpdate carries the optional fields of a create-or-update request.
// Nil means "leave as is" (username is required on first creation).
type ProfileUpdate struct {
	Username     *string
	LastLocation *Point
}

// ProfileService defines the business logic for user profiles and the
// username-uniqueness protocol.
type ProfileService interface {
	GetProfile(ctx context.Context, uid string) (*UserProfile, error)
	CreateOrUpdateProfile(ctx context.Context, identity Identity, update ProfileUpdate) (*UserProfile, error)
	UpdateLastLocation(ctx context.Context, uid string, location Point) error
}
