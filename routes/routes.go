package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/taskboard-server/controllers"
	"github.com/vnkhanh/taskboard-server/middleware"
)

// Deps holds everything the router needs.
type Deps struct {
	Auth *middleware.Auth

	LoginLimiter  *middleware.IPRateLimiter
	InviteLimiter *middleware.IPRateLimiter

	Users       *controllers.AuthController
	Boards      *controllers.BoardController
	Lists       *controllers.ListController
	Cards       *controllers.CardController
	Invitations *controllers.InvitationController
	Exports     *controllers.ExportController
	Attachments *controllers.AttachmentController
	Realtime    *controllers.RealtimeController
	Health      *controllers.HealthController
}

func SetupRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/health", d.Health.Check)

	// Push channel. Authenticates itself: browsers cannot send headers on an upgrade.
	r.GET("/ws/board/:boardId", d.Realtime.BoardSocket)

	api := r.Group("/api/scrumboard")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", middleware.RateLimitByIP(d.LoginLimiter), d.Users.Register)
			auth.POST("/login", middleware.RateLimitByIP(d.LoginLimiter), d.Users.Login)
			auth.POST("/google/login", middleware.RateLimitByIP(d.LoginLimiter), d.Users.GoogleLogin)
		}

		// Invitation links are opened by signed-out users too.
		inv := api.Group("/invitations")
		{
			inv.GET("/accept", d.Auth.OptionalAuth(), d.Invitations.Accept)
			inv.POST("/complete", d.Invitations.Complete)
			inv.POST("/complete-after-login", d.Auth.AuthJWT(), d.Invitations.CompleteAfterLogin)
			inv.GET("/debug/:token", d.Invitations.Debug)
		}

		protected := api.Group("")
		protected.Use(d.Auth.AuthJWT())
		{
			protected.GET("/me", d.Users.Me)
			protected.GET("/users", d.Users.GetUserByEmail)

			boards := protected.Group("/boards")
			{
				boards.GET("", d.Boards.List)
				boards.POST("", d.Boards.Create)
				boards.GET("/:id", d.Boards.Get)
				boards.PUT("/:id", d.Boards.Update)
				boards.DELETE("/:id", d.Boards.Delete)

				boards.GET("/:id/members", d.Boards.Members)
				boards.POST("/:id/members", d.Boards.AddMember)
				boards.PUT("/:id/members/:userId", d.Boards.UpdateMemberRole)
				boards.DELETE("/:id/members/:userId", d.Boards.RemoveMember)

				boards.POST("/:id/invite", middleware.RateLimitByIP(d.InviteLimiter), d.Invitations.Invite)
				boards.POST("/:id/export", d.Exports.Create)
			}
			protected.GET("/exports/:jobId", d.Exports.Get)

			protected.GET("/list/:boardId", d.Lists.ByBoard)
			protected.POST("/add/list", d.Lists.Create)
			protected.PUT("/edit/list", d.Lists.Update)
			protected.DELETE("/delete/list", d.Lists.Delete)

			protected.GET("/card/:listId", d.Cards.ByList)
			protected.GET("/card/detail/:id", d.Cards.Get)
			protected.POST("/add/card", d.Cards.Create)
			protected.PUT("/edit/card", d.Cards.Update)
			protected.PUT("/cards/update/category", d.Cards.Move)
			protected.DELETE("/delete/card", d.Cards.Delete)

			protected.GET("/attachments/card/:cardId", d.Attachments.List)
			protected.POST("/attachments/card/:cardId", d.Attachments.Upload)

			admin := protected.Group("/admin")
			admin.Use(middleware.RequireAdmin())
			{
				admin.GET("/boards/:id/connections", d.Realtime.Connections)
			}
		}
	}
}
