package api

import (
	"context"
	"net/http"
	"time"

	"github.com/alecgard/huddle/internal/auth"
	"github.com/alecgard/huddle/internal/metrics"
	"github.com/alecgard/huddle/internal/project"
	"github.com/alecgard/huddle/internal/ratelimit"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports database reachability for the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Projects       *project.Service
	Users          UserStore
	Sessions       auth.SessionLookup
	Contacts       ContactStore
	Messages       MessageStore
	Metrics        *metrics.Metrics
	DB             Pinger
	AllowedOrigins []string

	// AuthLimiter, when set, throttles register and login per client.
	AuthLimiter *ratelimit.Limiter
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	var observer HTTPObserver
	var onAuthFailure, onThrottle []func()
	if deps.Metrics != nil {
		observer = deps.Metrics
		onAuthFailure = append(onAuthFailure, func() { deps.Metrics.IncAuthFailure("session") })
		onThrottle = append(onThrottle, func() { deps.Metrics.IncAuthFailure("throttled") })
	}

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.AllowedOrigins))
	r.Use(requestObserver(observer))

	r.Get("/health", healthHandler(deps.DB))

	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry(), promhttp.HandlerOpts{}))
		r.Get("/api/v1/metrics/summary", deps.Metrics.Handler())
	}

	authH := newAuthHandler(deps.Users, deps.Metrics)
	users := newUsersHandler(deps.Users)
	projects := newProjectsHandler(deps.Projects)
	contacts := newContactsHandler(deps.Contacts)
	messages := newMessagesHandler(deps.Messages)

	r.Route("/api/v1", func(ar chi.Router) {
		// Public (unauthenticated) routes.
		ar.Group(func(pr chi.Router) {
			if deps.AuthLimiter != nil {
				pr.Use(ratelimit.Middleware(deps.AuthLimiter, ratelimit.ClientIP, onThrottle...))
			}
			pr.Post("/auth/register", authH.Register)
			pr.Post("/auth/login", authH.Login)
		})

		// Session-authed routes.
		ar.Group(func(sr chi.Router) {
			sr.Use(auth.SessionMiddleware(deps.Sessions, onAuthFailure...))

			sr.Post("/auth/logout", authH.Logout)
			sr.Get("/auth/me", authH.Me)
			sr.Get("/users", users.ListUsers)

			// Projects.
			sr.Get("/projects", projects.ListProjects)
			sr.Post("/projects/create", projects.CreateProject)
			sr.Get("/projects/{id}", projects.GetProject)
			sr.Post("/projects/{id}/edit", projects.UpdateProject)
			sr.Post("/projects/{id}/delete", projects.DeleteProject)

			// Join requests and membership.
			sr.Post("/projects/{id}/join", projects.RequestJoin)
			sr.Get("/projects/{id}/join-requests", projects.ListJoinRequests)
			sr.Post("/join-request/{id}/accept", projects.AcceptJoinRequest)
			sr.Post("/join-request/{id}/reject", projects.RejectJoinRequest)
			sr.Post("/projects/{id}/leave", projects.LeaveProject)

			// Tasks.
			sr.Post("/projects/{id}/tasks/create", projects.CreateTask)
			sr.Post("/tasks/{id}/edit", projects.UpdateTask)

			// Contacts.
			sr.Get("/contacts", contacts.ListContacts)
			sr.Post("/contacts/create", contacts.CreateContact)
			sr.Get("/contacts/{id}", contacts.GetContact)
			sr.Post("/contacts/{id}/edit", contacts.UpdateContact)

			// Messages.
			sr.Get("/messages/inbox", messages.Inbox)
			sr.Get("/messages/sent", messages.Sent)
			sr.Get("/messages/unread-count", messages.UnreadCount)
			sr.Post("/messages/{id}/read", messages.MarkRead)
		})
	})

	return r
}

// healthHandler reports liveness and, when a database is configured, its
// reachability.
func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "degraded",
				"database": "unreachable",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":   "ok",
			"database": "connected",
		})
	}
}
