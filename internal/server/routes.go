package server

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func (s *FiberServer) RegisterFiberRoutes() {
	s.App.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Accept,Authorization,Content-Type",
		AllowCredentials: false, // credentials require explicit origins
		MaxAge:           300,
	}))

	s.App.Get("/health", s.healthHandler)

	api := s.App.Group("/api/v1")

	roulette := api.Group("/roulette")
	roulette.Get("/verify", s.verifyHandler)
	roulette.Get("/spins/:spinId", s.getSpinHandler)

	roulette.Get("/:userId/state", s.getStateHandler)
	roulette.Get("/:userId/balance", s.getBalanceHandler)
	roulette.Get("/:userId/round", s.getRoundHandler)
	roulette.Get("/:userId/history", s.getHistoryHandler)
	roulette.Post("/:userId/spin", s.spinHandler)
	roulette.Post("/:userId/bet/amount", s.betAmountHandler)
	roulette.Post("/:userId/bet/type", s.betTypeHandler)
	roulette.Post("/:userId/reset", s.resetHandler)
	roulette.Post("/:userId/client-seed", s.clientSeedHandler)

	s.App.Use("/ws", func(c *fiber.Ctx) error {
		if c.Query("user_id") == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "user_id is required",
			})
		}
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.App.Get("/ws", websocket.New(s.gameWebSocketHandler))
}
