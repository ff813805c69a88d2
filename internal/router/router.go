// Package router assembles the console's gin engine.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/course-console/internal/handler"
	"github.com/noah-isme/course-console/internal/middleware"
	"github.com/noah-isme/course-console/internal/service"
	"github.com/noah-isme/course-console/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-console/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-console/pkg/middleware/requestid"
)

// Handlers groups the view handlers mounted by New.
type Handlers struct {
	Auth        *handler.AuthHandler
	Courses     *handler.CourseHandler
	Students    *handler.StudentHandler
	Enrollments *handler.EnrollmentHandler
	Ops         *handler.MetricsHandler
}

// Options configures the engine.
type Options struct {
	AllowedOrigins []string
	Session        middleware.SessionOptions
	EnableMetrics  bool
	EnableDocs     bool
	HTML           render.HTMLRender
}

// New wires middleware, gates and routes.
func New(opts Options, h Handlers, sessions *service.SessionService, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	if metrics != nil {
		r.Use(middleware.Metrics(metrics))
	}
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	if opts.HTML != nil {
		r.HTMLRender = opts.HTML
	}

	r.GET("/health", h.Ops.Health)
	r.GET("/ready", h.Ops.Ready)
	if opts.EnableMetrics {
		r.GET("/metrics", h.Ops.Prometheus)
	}
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	console := r.Group("/")
	console.Use(middleware.Session(sessions, opts.Session, logr))
	console.GET("/", h.Auth.Root)

	public := console.Group("")
	public.Use(middleware.PublicOnly())
	public.GET("/login", h.Auth.LoginPage)
	public.POST("/login", h.Auth.Login)
	public.GET("/signup", h.Auth.SignupPage)
	public.POST("/signup", h.Auth.Signup)

	authed := console.Group("")
	authed.Use(middleware.RequireAuth())
	authed.POST("/logout", h.Auth.Logout)

	courses := authed.Group(middleware.RouteCourses, middleware.RequireCapability(middleware.RouteCourses))
	courses.GET("", h.Courses.List)
	courses.POST("", h.Courses.Create)
	courses.GET("/new", h.Courses.New)
	courses.GET("/:id/edit", h.Courses.Edit)
	courses.POST("/:id", h.Courses.Update)
	courses.PUT("/:id", h.Courses.Update)
	courses.GET("/:id/delete", h.Courses.ConfirmDelete)
	courses.POST("/:id/delete", h.Courses.Delete)
	courses.DELETE("/:id", h.Courses.Delete)
	courses.GET("/:id/enrollments", h.Courses.Roster)

	students := authed.Group(middleware.RouteStudents, middleware.RequireCapability(middleware.RouteStudents))
	students.GET("", h.Students.List)
	students.POST("", h.Students.Create)
	students.GET("/new", h.Students.New)
	students.GET("/:id/edit", h.Students.Edit)
	students.POST("/:id", h.Students.Update)
	students.PUT("/:id", h.Students.Update)
	students.GET("/:id/delete", h.Students.ConfirmDelete)
	students.POST("/:id/delete", h.Students.Delete)
	students.DELETE("/:id", h.Students.Delete)

	enrollments := authed.Group(middleware.RouteEnrollments, middleware.RequireCapability(middleware.RouteEnrollments))
	enrollments.GET("", h.Enrollments.Index)
	enrollments.POST("", h.Enrollments.Enroll)
	enrollments.GET("/export", middleware.RequireCapability(middleware.RouteEnrollmentExport), h.Enrollments.Export)
	enrollments.GET("/:id/drop", h.Enrollments.ConfirmDrop)
	enrollments.POST("/:id/drop", h.Enrollments.Drop)
	enrollments.DELETE("/:id", h.Enrollments.Drop)

	grading := enrollments.Group("", middleware.RequireCapability(middleware.RouteEnrollmentGrade))
	grading.GET("/:id/grade", h.Enrollments.GradeForm)
	grading.POST("/:id/grade", h.Enrollments.Grade)
	grading.PUT("/:id/grade", h.Enrollments.Grade)

	return r
}
