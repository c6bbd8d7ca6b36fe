package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	config "github.com/phillip/pawshome-go/config"
	controllers "github.com/phillip/pawshome-go/controllers"
	middleware "github.com/phillip/pawshome-go/middleware"
)

// NewRouter builds the engine with the global middleware chain and every
// route registered.
func NewRouter(cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogger(cfg.Logger))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	SetupRoutes(r, cfg)
	return r
}

func SetupRoutes(r *gin.Engine, cfg *config.Config) {
	// public
	r.GET("/", controllers.Root())
	r.GET("/health", controllers.Health(cfg))
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	// protected
	auth := middleware.AuthMiddleware(cfg)
	notBanned := middleware.RejectBanned(cfg)
	admin := middleware.RequireAdmin(cfg)
	idempotent := middleware.Idempotency(cfg)

	authGroup := r.Group("/auth")
	authGroup.Use(auth)
	{
		authGroup.POST("/register", controllers.Register(cfg))
		authGroup.GET("/me", controllers.Me(cfg))
	}

	users := r.Group("/users")
	users.Use(auth)
	{
		users.GET("/profile", controllers.GetProfile(cfg))
		users.PUT("/profile", notBanned, controllers.UpdateProfile(cfg))
		users.GET("", admin, controllers.ListUsers(cfg))
		users.PATCH("/:id/make-admin", admin, controllers.MakeAdmin(cfg))
		users.PATCH("/:id/ban", admin, controllers.ToggleBan(cfg))
	}

	// Campaigns
	r.GET("/campaigns", controllers.ListCampaigns(cfg))
	r.GET("/campaigns/:id", controllers.GetCampaign(cfg))
	r.GET("/campaigns/:id/recommended", controllers.RecommendedCampaigns(cfg))

	campaigns := r.Group("/campaigns")
	campaigns.Use(auth)
	{
		campaigns.GET("/mine", controllers.MyCampaigns(cfg))
		campaigns.GET("/my-contributions", controllers.MyContributions(cfg))
		campaigns.POST("", notBanned, idempotent, controllers.CreateCampaign(cfg))
		campaigns.PUT("/:id", notBanned, controllers.UpdateCampaign(cfg))
		campaigns.PATCH("/:id/pause", notBanned, controllers.TogglePause(cfg))
		campaigns.DELETE("/:id", notBanned, controllers.DeleteCampaign(cfg))
		campaigns.POST("/:id/donate", notBanned, idempotent, controllers.Donate(cfg))
		campaigns.PATCH("/:id/refund", notBanned, controllers.RequestRefund(cfg))
	}

	// Pets
	r.GET("/pets", controllers.ListPets(cfg))
	r.GET("/pets/:id", controllers.GetPet(cfg))

	pets := r.Group("/pets")
	pets.Use(auth)
	{
		pets.GET("/mine", controllers.MyPets(cfg))
		pets.POST("", notBanned, idempotent, controllers.CreatePet(cfg))
		pets.PUT("/:id", notBanned, controllers.UpdatePet(cfg))
		pets.PATCH("/:id/adopted", notBanned, controllers.ToggleAdopted(cfg))
		pets.DELETE("/:id", notBanned, controllers.DeletePet(cfg))
	}

	// Adoptions
	adoptions := r.Group("/adoptions")
	adoptions.Use(auth)
	{
		adoptions.GET("/my-requests", controllers.MyAdoptionRequests(cfg))
		adoptions.GET("/for-my-pets", controllers.RequestsForMyPets(cfg))
		adoptions.POST("", notBanned, idempotent, controllers.CreateAdoptionRequest(cfg))
		adoptions.PATCH("/:id/accept", notBanned, controllers.AcceptAdoptionRequest(cfg))
		adoptions.PATCH("/:id/reject", notBanned, controllers.RejectAdoptionRequest(cfg))
	}

	// Admin
	adminGroup := r.Group("/admin")
	adminGroup.Use(auth, admin)
	{
		adminGroup.GET("/campaigns", controllers.ListAllCampaigns(cfg))
		adminGroup.GET("/pets", controllers.ListAllPets(cfg))
	}
}

func corsConfig(origins []string) cors.Config {
	conf := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.IdempotencyKeyHeader, middleware.RequestIDHeader},
		ExposeHeaders:    []string{"ETag", "Last-Modified", middleware.ReplayedHeader, middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		conf.AllowAllOrigins = true
		conf.AllowCredentials = false
	} else {
		conf.AllowOrigins = origins
	}
	return conf
}
