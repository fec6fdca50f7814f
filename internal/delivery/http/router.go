package http

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"nextfare/internal/delivery/http/controllers"
	"nextfare/internal/delivery/http/middleware"
	"nextfare/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes
func NewRouter(eventController *controllers.EventController, userController *controllers.UserController, verifier domain.IdentityVerifier) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier)

	// Event discovery (public)
	mux.HandleFunc("GET /events/active", eventController.ListActiveEvents)
	mux.HandleFunc("GET /events/active-in-bounds", eventController.ListActiveEventsInBounds)
	mux.HandleFunc("GET /events/within-radius", eventController.ListEventsWithinRadius)

	// Ingestion hook
	mux.HandleFunc("POST /events/cache/invalidate", auth(eventController.InvalidateCache))

	// User profiles
	mux.HandleFunc("GET /users/profile", auth(userController.GetProfile))
	mux.HandleFunc("POST /users/profile", auth(userController.UpsertProfile))
	mux.HandleFunc("POST /users/profile/location", auth(userController.UpdateLocation))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
