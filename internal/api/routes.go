package api

import (
	"github.com/go-chi/chi/v5"
)

// setupAPIRoutes sets up API v1 routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Health check
	r.Get("/health", s.HandleHealth)

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.HandleLogin)
		r.Post("/logout", s.HandleLogout)
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/me", s.HandleMe)
		})
	})

	// Employee self-service
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/clock", func(r chi.Router) {
			r.Post("/check-in", s.HandleCheckIn)
			r.Post("/check-out", s.HandleCheckOut)
			r.Get("/status", s.HandleClockStatus)
			r.Get("/history", s.HandleClockHistory)
		})

		r.Route("/breaks", func(r chi.Router) {
			r.Post("/start", s.HandleBreakStart)
			r.Post("/end", s.HandleBreakEnd)
			r.Get("/active", s.HandleBreakActive)
			r.Post("/{id}/attachment", s.HandleBreakAttach)
		})

		r.Route("/leave", func(r chi.Router) {
			r.Post("/", s.HandleLeaveCreate)
			r.Get("/", s.HandleLeaveListMine)
			r.Post("/{id}/cancel", s.HandleLeaveCancel)
			r.Post("/{id}/attachment", s.HandleLeaveAttach)
		})

		r.Route("/reminders", func(r chi.Router) {
			r.Get("/preferences", s.HandleReminderPrefsGet)
			r.Put("/preferences", s.HandleReminderPrefsSet)
		})
	})

	// Tenant administration
	r.Route("/admin", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Use(s.requireAdmin)

		r.Route("/employees", func(r chi.Router) {
			r.Get("/", s.HandleListEmployees)
			r.Post("/", s.HandleCreateEmployee)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetEmployee)
				r.Put("/", s.HandleUpdateEmployee)
				r.Delete("/", s.HandleDeleteEmployee)
				r.Post("/toggle-active", s.HandleToggleEmployeeActive)
				r.Get("/statuses", s.HandleListDailyStatuses)
			})
		})

		r.Route("/centers", func(r chi.Router) {
			r.Get("/", s.HandleListCenters)
			r.Post("/", s.HandleCreateCenter)
			r.Put("/{id}", s.HandleUpdateCenter)
			r.Delete("/{id}", s.HandleDeleteCenter)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.HandleListCategories)
			r.Post("/", s.HandleCreateCategory)
			r.Put("/{id}", s.HandleUpdateCategory)
			r.Delete("/{id}", s.HandleDeleteCategory)
		})

		r.Route("/punches", func(r chi.Router) {
			r.Get("/", s.HandleListPunches)
			r.Get("/open", s.HandleListOpenPunches)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetPunch)
				r.Put("/", s.HandleUpdatePunch)
				r.Delete("/", s.HandleDeletePunch)
				r.Post("/close-now", s.HandleClosePunchNow)
				r.Get("/seals", s.HandleListPunchSeals)
			})
		})

		r.Route("/leave", func(r chi.Router) {
			r.Get("/", s.HandleLeaveListAdmin)
			r.Get("/pending-count", s.HandleLeavePendingCount)
			r.Post("/{id}/approve", s.HandleLeaveApprove)
			r.Post("/{id}/reject", s.HandleLeaveReject)
		})

		r.Route("/overtime", func(r chi.Router) {
			r.Get("/", s.HandleOvertimeList)
			r.Post("/generate", s.HandleOvertimeGenerate)
			r.Post("/{id}/approve", s.HandleOvertimeApprove)
			r.Post("/{id}/reject", s.HandleOvertimeReject)
			r.Post("/{id}/auto-balance", s.HandleOvertimeAutoBalance)
		})

		r.Get("/audit/seals", s.HandleSealAudit)
	})

	// Platform administration
	r.Route("/tenants", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Use(s.requireSuperAdmin)
		r.Get("/", s.HandleListTenants)
		r.Get("/{id}", s.HandleGetTenant)
		r.Put("/{id}", s.HandleUpdateTenant)
	})
}
