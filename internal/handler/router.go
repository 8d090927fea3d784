package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-academics-api/internal/middleware"
)

// Handlers groups the HTTP handlers mounted under the API prefix.
type Handlers struct {
	Catalog     *CatalogHandler
	Enrollments *EnrollmentHandler
	Grades      *GradeHandler
	Assignments *TeacherAssignmentHandler
	Exams       *ExamHandler
	Promotions  *PromotionHandler
}

// RegisterRoutes mounts the academic records API on group. Every route requires a bearer token.
func RegisterRoutes(group *gin.RouterGroup, verifier middleware.TokenVerifier, h Handlers) {
	api := group.Group("")
	api.Use(middleware.JWT(verifier))

	api.GET("/academic-years", h.Catalog.AcademicYears)
	api.GET("/class-levels", h.Catalog.ClassLevels)
	api.GET("/subjects", h.Catalog.Subjects)
	api.GET("/class-offerings", h.Catalog.ClassOfferings)
	api.GET("/class-offerings/:id/teacher-assignments", h.Assignments.ListForOffering)

	api.GET("/enrollments", h.Enrollments.List)
	api.GET("/enrollments/:id/grade", h.Grades.EnrollmentGrade)
	api.GET("/enrollments/:id/marks", h.Grades.EnrollmentMarks)
	api.GET("/enrollments/:id/subjects", h.Enrollments.Subjects)
	api.GET("/enrollments/:id/exams/upcoming", h.Exams.Upcoming)
	api.GET("/students/:id/results", h.Grades.StudentResults)

	staff := api.Group("")
	staff.Use(middleware.RequireStaff())
	staff.POST("/exams", h.Exams.Create)
	staff.POST("/exams/:id/publish", h.Exams.Publish)
	staff.PUT("/exams/:id/marks", h.Exams.RecordMarks)

	admin := api.Group("")
	admin.Use(middleware.RequireAdmin())
	admin.POST("/enrollments", h.Enrollments.Create)
	admin.PATCH("/enrollments/:id", h.Enrollments.Update)
	admin.POST("/teacher-assignments", h.Assignments.Create)
	admin.POST("/class-offerings/:id/promotions", h.Promotions.Promote)
	admin.GET("/promotion-batches", h.Promotions.List)
	admin.GET("/promotion-batches/:id", h.Promotions.Get)
}
