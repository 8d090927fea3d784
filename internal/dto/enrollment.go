package dto

// EnrollStudentRequest enrolls a student into a class offering.
type EnrollStudentRequest struct {
	StudentID       string `json:"studentId" validate:"required"`
	ClassOfferingID string `json:"classOfferingId" validate:"required"`
	Active          *bool  `json:"active,omitempty"`
}

// UpdateEnrollmentRequest is an administrative correction of an enrollment.
type UpdateEnrollmentRequest struct {
	ClassOfferingID *string `json:"classOfferingId,omitempty" validate:"omitempty,min=1"`
	Active          *bool   `json:"active,omitempty"`
}

// AssignTeacherRequest gives a teacher ownership of a subject within an offering.
type AssignTeacherRequest struct {
	TeacherID       string `json:"teacherId" validate:"required"`
	ClassOfferingID string `json:"classOfferingId" validate:"required"`
	SubjectID       string `json:"subjectId" validate:"required"`
}
