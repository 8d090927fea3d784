package service

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-academics-api/internal/models"
	appErrors "github.com/noah-isme/sma-academics-api/pkg/errors"
)

// Action names a guarded operation.
type Action string

const (
	ActionRunPromotion     Action = "run_promotion"
	ActionCreateExam       Action = "create_exam"
	ActionPublishExam      Action = "publish_exam"
	ActionRecordMarks      Action = "record_marks"
	ActionManageEnrollment Action = "manage_enrollment"
	ActionManageAssignment Action = "manage_assignment"
)

// AccessScope identifies the resource an action targets.
type AccessScope struct {
	ClassOfferingID string
	SubjectID       string
}

type assignmentChecker interface {
	Exists(ctx context.Context, exec sqlx.ExtContext, teacherID, classOfferingID, subjectID string) (bool, error)
}

// AccessPolicy decides whether an actor may perform an action on a scope.
type AccessPolicy struct {
	assignments assignmentChecker
}

// NewAccessPolicy constructs the policy.
func NewAccessPolicy(assignments assignmentChecker) *AccessPolicy {
	return &AccessPolicy{assignments: assignments}
}

// teacherActions are granted to the teacher owning the scope's (offering, subject).
var teacherActions = map[Action]struct{}{
	ActionCreateExam:  {},
	ActionPublishExam: {},
	ActionRecordMarks: {},
}

// Authorize returns nil when allowed, an unauthorized error without an actor, and a forbidden error otherwise.
func (p *AccessPolicy) Authorize(ctx context.Context, actor *models.JWTClaims, action Action, scope AccessScope) error {
	if actor == nil || actor.UserID == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if actor.Role.IsAdmin() {
		return nil
	}
	if _, ok := teacherActions[action]; !ok || actor.Role != models.RoleTeacher {
		return appErrors.Clone(appErrors.ErrForbidden, "administrator privilege required")
	}
	if scope.ClassOfferingID == "" || scope.SubjectID == "" || p.assignments == nil {
		return appErrors.Clone(appErrors.ErrForbidden, "not assigned to this subject")
	}

	assigned, err := p.assignments.Exists(ctx, nil, actor.UserID, scope.ClassOfferingID, scope.SubjectID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher assignment")
	}
	if !assigned {
		return appErrors.Clone(appErrors.ErrForbidden, "not assigned to this subject")
	}
	return nil
}
