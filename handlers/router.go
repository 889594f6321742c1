package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"habitLoopAPI/internal/config"
	"habitLoopAPI/middleware"
	"habitLoopAPI/services"
)

// Services bundles the domain services the routes call into.
type Services struct {
	Users         *services.UserService
	Habits        *services.HabitService
	Checkins      *services.CheckinService
	Groups        *services.GroupService
	Notifications *services.NotificationService
}

type RouterConfig struct {
	DB            Pinger
	Services      Services
	Verifier      middleware.TokenVerifier
	RateLimiter   *middleware.RateLimiter
	WebhookSecret string
	Metrics       config.MetricsConfig
}

// NewRouter registers every route. CORS and access logging are left to the
// caller.
func NewRouter(cfg RouterConfig) *mux.Router {
	userHandler := NewUserHandler(cfg.Services.Users)
	habitHandler := NewHabitHandler(cfg.Services.Habits)
	checkinHandler := NewCheckinHandler(cfg.Services.Checkins)
	groupHandler := NewGroupHandler(cfg.Services.Groups)
	notificationHandler := NewNotificationHandler(cfg.Services.Notifications)
	webhookHandler := NewWebhookHandler(cfg.Services.Users, cfg.WebhookSecret)
	healthHandler := NewHealthHandler(cfg.DB)

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Middleware)
	}
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.Metrics.User, cfg.Metrics.Password)(promhttp.Handler())).Methods("GET")
	r.HandleFunc("/health", healthHandler.Health).Methods("GET")
	r.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	protected := r.PathPrefix("/api/v1").Subrouter()
	protected.Use(middleware.AuthMiddleware(cfg.Verifier))

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")

	protected.HandleFunc("/habits", habitHandler.ListHabits).Methods("GET")
	protected.HandleFunc("/habits", habitHandler.CreateHabit).Methods("POST")
	protected.HandleFunc("/habits/{habitId}", habitHandler.GetHabit).Methods("GET")
	protected.HandleFunc("/habits/{habitId}", habitHandler.UpdateHabit).Methods("PUT")
	protected.HandleFunc("/habits/{habitId}", habitHandler.DeactivateHabit).Methods("DELETE")
	protected.HandleFunc("/habits/{habitId}/stats", habitHandler.GetStats).Methods("GET")
	protected.HandleFunc("/habits/{habitId}/checkin", checkinHandler.CheckIn).Methods("POST")
	protected.HandleFunc("/habits/{habitId}/checkin", checkinHandler.Undo).Methods("DELETE")

	protected.HandleFunc("/groups", groupHandler.ListGroups).Methods("GET")
	protected.HandleFunc("/groups", groupHandler.CreateGroup).Methods("POST")
	protected.HandleFunc("/groups/join", groupHandler.JoinByInviteCode).Methods("POST")
	protected.HandleFunc("/groups/{groupId}", groupHandler.GetGroup).Methods("GET")
	protected.HandleFunc("/groups/{groupId}/join", groupHandler.JoinGroup).Methods("POST")
	protected.HandleFunc("/groups/{groupId}/members/me", groupHandler.LeaveGroup).Methods("DELETE")
	protected.HandleFunc("/groups/{groupId}/habits", groupHandler.ShareHabit).Methods("POST")
	protected.HandleFunc("/groups/{groupId}/habits/{habitId}", groupHandler.UnshareHabit).Methods("DELETE")
	protected.HandleFunc("/groups/{groupId}/leaderboard", groupHandler.Leaderboard).Methods("GET")
	protected.HandleFunc("/groups/{groupId}/invite-qr", groupHandler.InviteQRCode).Methods("GET")
	protected.HandleFunc("/groups/{groupId}/nudge", notificationHandler.Nudge).Methods("POST")

	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")

	return r
}
