// router.go - Builds the HTTP engine and wires every route to its guard
//
// Route Overview:
// - Public:  /login, /logout
// - Staff:   /, /add, /edit/:id (any signed-in user)
// - Admin:   /delete/:id, /admin/users/..., /export/...

package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"patient-registry/handlers"
	"patient-registry/middleware"
	"patient-registry/models"
)

// New returns a gin engine serving the registry.
func New(h *handlers.Handler, corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(h.Log))
	r.Use(middleware.Recovery(h.Log))
	r.Use(middleware.SecurityHeaders())
	if len(corsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     corsOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
			ExposeHeaders:    []string{"Content-Disposition", "X-Request-ID"},
			AllowCredentials: true, // Session travels as a cookie
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(middleware.SameOrigin(corsOrigins))                         // Refuse cross-site posts
	r.Use(middleware.LoadSession(h.Sessions, h.Store.Users, h.Log)) // Current user into context

	// Public routes
	r.GET("/login", h.LoginPage)
	r.POST("/login", h.Login)
	r.GET("/logout", h.Logout)

	// Any signed-in user
	staff := r.Group("/")
	staff.Use(middleware.RequireLogin(h.Sessions))
	{
		staff.GET("/", h.ListPatients)
		staff.GET("/add", h.AddPatientPage)
		staff.POST("/add", h.AddPatient)
		staff.GET("/edit/:id", h.EditPatientPage)
		staff.POST("/edit/:id", h.EditPatient)
	}

	requireAdmin := middleware.RequireRole(h.Sessions, models.RoleAdmin)

	r.POST("/delete/:id", requireAdmin, h.DeletePatient)

	admin := r.Group("/admin/users")
	admin.Use(requireAdmin)
	{
		admin.GET("", h.ListUsers)
		admin.GET("/add", h.AddUserPage)
		admin.POST("/add", h.AddUser)
		admin.GET("/edit/:id", h.EditUserPage)
		admin.POST("/edit/:id", h.EditUser)
		admin.POST("/delete/:id", h.DeleteUser)
		admin.POST("/toggle-role/:id", h.ToggleRole)
	}

	exp := r.Group("/export")
	exp.Use(requireAdmin)
	{
		exp.GET("/", h.ExportPage)
		exp.POST("/", h.SubmitExport)
		exp.GET("/download", h.Download)
	}

	return r
}
