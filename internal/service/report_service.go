package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/models"
	"learnhub/internal/repository"
)

type ReportService struct {
	tx       repository.TxRunner
	reports  repository.ReportStore
	forum    repository.ForumStore
	courses  repository.CourseStore
	access   *EnrollmentService
	audit    repository.AuditLogStore
	notifier Notifier
	now      func() time.Time
}

func NewReportService(tx repository.TxRunner, reports repository.ReportStore, forum repository.ForumStore, courses repository.CourseStore, access *EnrollmentService, audit repository.AuditLogStore, notifier Notifier) *ReportService {
	return &ReportService{
		tx:       tx,
		reports:  reports,
		forum:    forum,
		courses:  courses,
		access:   access,
		audit:    audit,
		notifier: notifier,
		now:      time.Now,
	}
}

type ReportInput struct {
	TargetType string `json:"target_type" binding:"required,report_target"`
	TargetID   uint   `json:"target_id" binding:"required"`
	Reason     string `json:"reason" binding:"required,forum_reason"`
	Note       string `json:"note" binding:"max=1000"`
}

// Create files a report against a live forum post. The target's author and
// course are taken from the post itself. A reporter may hold only one pending
// report per target.
func (s *ReportService) Create(ctx context.Context, actor Actor, in ReportInput) (*models.ForumReport, error) {
	if !domain.IsValidTargetType(in.TargetType) {
		return nil, fmt.Errorf("%w: target_type must be one of %s", ErrInvalidInput, strings.Join(domain.ReportTargetTypes, ", "))
	}
	if !domain.IsValidReason(in.Reason) {
		return nil, fmt.Errorf("%w: reason must be one of %s", ErrInvalidInput, strings.Join(domain.ReportReasons, ", "))
	}
	t, err := resolveTarget(ctx, s.forum, in.TargetType, in.TargetID)
	if err != nil {
		return nil, err
	}
	if t.Deleted {
		return nil, ErrNotFound
	}
	if _, err := s.access.RequireAccess(ctx, actor, t.CourseID); err != nil {
		return nil, err
	}
	if t.UserID == actor.ID {
		return nil, ErrSelfReport
	}
	dup, err := s.reports.ExistsPending(ctx, in.TargetType, in.TargetID, actor.ID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, ErrDuplicateReport
	}
	r := &models.ForumReport{
		TargetType:   in.TargetType,
		TargetID:     in.TargetID,
		TargetUserID: t.UserID,
		CourseID:     t.CourseID,
		ReporterID:   actor.ID,
		Reason:       in.Reason,
		Note:         strings.TrimSpace(in.Note),
		Status:       domain.ReportPending,
	}
	if err := s.reports.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	return r, nil
}

type ReportPage struct {
	Items []models.ForumReport `json:"items"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

// List returns reports for moderators. Instructors only see their own courses.
func (s *ReportService) List(ctx context.Context, actor Actor, f repository.ReportFilter) (*ReportPage, error) {
	if f.Status != "" && f.Status != domain.ReportPending && f.Status != domain.ReportResolved && f.Status != domain.ReportRejected {
		return nil, fmt.Errorf("%w: unknown status", ErrInvalidInput)
	}
	if f.Reason != "" && !domain.IsValidReason(f.Reason) {
		return nil, fmt.Errorf("%w: unknown reason", ErrInvalidInput)
	}
	f.CourseIDs = nil
	if !actor.IsAdmin() {
		if !actor.IsInstructor() {
			return nil, ErrForbidden
		}
		ids, err := s.courses.IDsByInstructor(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		if f.CourseID != 0 && !containsID(ids, f.CourseID) {
			return nil, ErrForbidden
		}
		f.CourseIDs = ids
		if f.CourseIDs == nil {
			f.CourseIDs = []uint{}
		}
	}
	f.Page, f.Limit = pageDefaults(f.Page, f.Limit)
	items, total, err := s.reports.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &ReportPage{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

type ReportAction struct {
	Status        string `json:"status" binding:"required,oneof=resolved rejected"`
	Note          string `json:"note" binding:"max=1000"`
	RemoveContent bool   `json:"remove_content"`
}

// Action closes a pending report. Resolving with RemoveContent soft-deletes
// the reported post in the same transaction.
func (s *ReportService) Action(ctx context.Context, actor Actor, id uint, in ReportAction) (*models.ForumReport, error) {
	if in.Status != domain.ReportResolved && in.Status != domain.ReportRejected {
		return nil, ErrInvalidStatus
	}
	existing, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	c, err := s.courses.GetByID(ctx, existing.CourseID)
	if err != nil {
		return nil, notFound(err)
	}
	if !actor.CanManage(c) {
		return nil, ErrForbidden
	}

	var out *models.ForumReport
	err = s.tx.WithTx(ctx, func(st repository.Stores) error {
		r, err := st.Reports().GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if r.Status != domain.ReportPending {
			return ErrReportClosed
		}
		now := s.now()
		if in.Status == domain.ReportResolved && in.RemoveContent {
			reason := strings.TrimSpace(in.Note)
			if reason == "" {
				reason = "removed after report: " + r.Reason
			}
			if err := softDeleteTarget(ctx, st.Forum(), r.TargetType, r.TargetID, actor.ID, reason, now); err != nil {
				return err
			}
		}
		by := actor.ID
		r.Status = in.Status
		r.ActionBy = &by
		r.ActionNote = strings.TrimSpace(in.Note)
		r.ActionAt = &now
		if err := st.Reports().Update(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, out, in.RemoveContent && out.Status == domain.ReportResolved)
	if s.notifier != nil {
		msg := "Thanks for your report. A moderator reviewed it and took action."
		if out.Status == domain.ReportRejected {
			msg = "Thanks for your report. A moderator reviewed it and found no violation."
		}
		err := s.notifier.Notify(ctx, out.ReporterID, domain.NotifReportActioned, "Report reviewed", msg,
			map[string]interface{}{"report_id": out.ID, "status": out.Status})
		if err != nil {
			slog.WarnContext(ctx, "report notification failed", "report_id", out.ID, "error", err)
		}
	}
	return out, nil
}

func (s *ReportService) record(ctx context.Context, actor Actor, r *models.ForumReport, removed bool) {
	meta, _ := json.Marshal(map[string]interface{}{
		"status":         r.Status,
		"target_type":    r.TargetType,
		"target_id":      r.TargetID,
		"remove_content": removed,
	})
	uid := actor.ID
	err := s.audit.Create(ctx, &models.AuditLog{
		UserID:     &uid,
		Action:     "forum_report_" + r.Status,
		Resource:   "forum_report",
		ResourceID: fmt.Sprintf("%d", r.ID),
		Metadata:   string(meta),
	})
	if err != nil {
		slog.WarnContext(ctx, "audit log write failed", "report_id", r.ID, "error", err)
	}
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
