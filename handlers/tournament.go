package handlers

import (
	"github.com/fayyadalaas-cell/fxleagues-sub000/middleware"
	"github.com/fayyadalaas-cell/fxleagues-sub000/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTournamentRoutes(app *fiber.App, tournamentService *services.TournamentService, registrationService *services.RegistrationService, resultService *services.ResultService) {
	// 🔓 Public routes (gateway-authenticated, no user context required)
	app.Get("/tournaments", tournamentService.ListTournaments)
	app.Get("/tournaments/:slug", tournamentService.GetTournamentBySlug)
	app.Get("/tournaments/:slug/leaderboard", resultService.GetLeaderboard)

	// 🔐 Authenticated routes
	secured := app.Group("/s", middleware.IdentityMiddleware())

	secured.Post("/tournaments/:id/join", registrationService.JoinTournament)
	secured.Post("/tournaments/:id/credentials", registrationService.SubmitTournamentCredentials)
	secured.Get("/tournaments/:id/registration", registrationService.GetMyRegistration)

	// 🔒 Operator routes (role enforced per handler)
	admin := secured.Group("/admin")

	admin.Post("/tournaments", tournamentService.CreateTournament)
	admin.Get("/tournaments/:id", tournamentService.GetTournamentByID)
	admin.Put("/tournaments/:id", tournamentService.UpdateTournament)
	admin.Delete("/tournaments/:id", tournamentService.DeleteTournament)

	admin.Get("/tournaments/:id/registrations", registrationService.ListPendingRegistrations)
	admin.Post("/registrations/:id/approve", registrationService.ApproveRegistration)
	admin.Post("/registrations/:id/reject", registrationService.RejectRegistration)

	admin.Put("/tournaments/:id/results", resultService.UpsertResults)
}
