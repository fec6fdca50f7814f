package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"nextfare/internal/domain"
)

type profileService struct {
	profileRepo     domain.ProfileRepository
	reservationRepo domain.ReservationRepository
	emailService    domain.EmailService
	logger          *slog.Logger
	now             func() time.Time

	mu        sync.Mutex
	usernames map[string]*sync.Mutex
}

// NewProfileService creates the coordinator that keeps a profile document and
// the username-uniqueness index mutually consistent. The two stores offer
// per-document atomicity only; the reservation store's conditional create is
// what makes the claim race safe across processes. emailService may be nil.
func NewProfileService(profileRepo domain.ProfileRepository, reservationRepo domain.ReservationRepository, emailService domain.EmailService, logger *slog.Logger) domain.ProfileService {
	return &profileService{
		profileRepo:     profileRepo,
		reservationRepo: reservationRepo,
		emailService:    emailService,
		logger:          logger,
		now:             time.Now,
		usernames:       make(map[string]*sync.Mutex),
	}
}

func (s *profileService) GetProfile(ctx context.Context, uid string) (*domain.UserProfile, error) {
	profile, err := s.profileRepo.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

func (s *profileService) CreateOrUpdateProfile(ctx context.Context, identity domain.Identity, update domain.ProfileUpdate) (*domain.UserProfile, error) {
	existing, err := s.profileRepo.Get(ctx, identity.SubjectID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup profile: %w", err)
	}
	if existing == nil {
		return s.createProfile(ctx, identity, update)
	}
	return s.updateProfile(ctx, existing, update)
}

func (s *profileService) createProfile(ctx context.Context, identity domain.Identity, update domain.ProfileUpdate) (*domain.UserProfile, error) {
	if update.Username == nil || strings.TrimSpace(*update.Username) == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}
	display := strings.TrimSpace(*update.Username)
	normalized := domain.NormalizeUsername(display)

	unlock := s.lockUsername(normalized)
	defer unlock()

	now := s.now()
	// Claim the name before writing the profile: a crash between the two
	// writes strands a reservation still owned by this subject (re-claimed on
	// a retry below), never a profile whose name someone else can take.
	if err := s.claimUsername(ctx, normalized, identity.SubjectID, now); err != nil {
		return nil, err
	}

	profile := &domain.UserProfile{
		UID:          identity.SubjectID,
		Email:        identity.Email,
		Username:     display,
		LastLocation: update.LastLocation,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.profileRepo.Put(ctx, profile); err != nil {
		// Release the claim so the name is not stranded without a profile.
		if delErr := s.reservationRepo.Delete(ctx, normalized); delErr != nil {
			s.logger.ErrorContext(ctx, "orphaned username reservation",
				"username", normalized, "uid", identity.SubjectID, "err", delErr)
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	s.sendWelcome(ctx, profile)
	return profile, nil
}

func (s *profileService) updateProfile(ctx context.Context, profile *domain.UserProfile, update domain.ProfileUpdate) (*domain.UserProfile, error) {
	if update.Username != nil {
		display := strings.TrimSpace(*update.Username)
		if display == "" {
			return nil, fmt.Errorf("%w: username cannot be empty", domain.ErrInvalidInput)
		}
		newName := domain.NormalizeUsername(display)
		oldName := domain.NormalizeUsername(profile.Username)
		if newName != oldName {
			unlock := s.lockUsername(newName)
			defer unlock()

			if err := s.claimUsername(ctx, newName, profile.UID, s.now()); err != nil {
				return nil, err
			}
			// Release the old claim only once the new one is held: a crash
			// here leaves the subject holding two names, never zero.
			if err := s.reservationRepo.Delete(ctx, oldName); err != nil {
				s.logger.WarnContext(ctx, "stale username reservation left behind",
					"username", oldName, "uid", profile.UID, "err", err)
			}
		}
		profile.Username = display
	}

	if update.LastLocation != nil {
		// Location is replaced wholesale; no partial-field merge.
		profile.LastLocation = update.LastLocation
	}

	profile.UpdatedAt = s.now()
	if err := s.profileRepo.Put(ctx, profile); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return profile, nil
}

func (s *profileService) UpdateLastLocation(ctx context.Context, uid string, location domain.Point) error {
	if err := s.profileRepo.UpdateLocation(ctx, uid, location, s.now()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("update last location: %w", err)
	}
	return nil
}

// claimUsername performs the conditional reservation write. A conflict with a
// reservation this subject already holds counts as a successful claim: a
// failure between the reservation and profile writes can strand such a
// reservation, and the retry must re-check ownership instead of failing on
// its own leftover claim.
func (s *profileService) claimUsername(ctx context.Context, name, uid string, now time.Time) error {
	reservation := &domain.UsernameReservation{
		Username:   name,
		UID:        uid,
		ReservedAt: now,
	}
	err := s.reservationRepo.CreateIfAbsent(ctx, reservation)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrUsernameTaken) {
		return fmt.Errorf("reserve username: %w", err)
	}
	existing, getErr := s.reservationRepo.Get(ctx, name)
	if getErr != nil {
		if errors.Is(getErr, domain.ErrNotFound) {
			// Released between the two calls; this request still loses the round.
			return domain.ErrUsernameTaken
		}
		return fmt.Errorf("check reservation owner: %w", getErr)
	}
	if existing.UID != uid {
		return domain.ErrUsernameTaken
	}
	s.logger.InfoContext(ctx, "re-claimed stranded username reservation", "username", name, "uid", uid)
	return nil
}

// lockUsername serialises same-process requests racing for one normalized
// name. Cross-instance safety comes from the store's conditional create, not
// from this lock.
func (s *profileService) lockUsername(name string) func() {
	s.mu.Lock()
	m, ok := s.usernames[name]
	if !ok {
		m = &sync.Mutex{}
		s.usernames[name] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func (s *profileService) sendWelcome(ctx context.Context, profile *domain.UserProfile) {
	if s.emailService == nil {
		return
	}
	data := &domain.WelcomeMessageEmailData{
		Email:    profile.Email,
		Username: profile.Username,
	}
	if err := s.emailService.SendWelcomeMessage(ctx, data); err != nil {
		s.logger.WarnContext(ctx, "welcome email failed", "uid", profile.UID, "err", err)
	}
}
