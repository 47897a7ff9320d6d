// Package commitment implements the promise lifecycle: guardians define
// recurring commitments, the service materializes dated assignments from
// them, dependents submit verification, and guardians resolve it. Every
// status change is a guarded compare-and-set in the store, so a stale or
// duplicate request loses the race instead of clobbering state.
package commitment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ho8ae/growpromise-sub001/internal/auth"
	"github.com/ho8ae/growpromise-sub001/internal/event"
	"github.com/ho8ae/growpromise-sub001/internal/fault"
	"github.com/ho8ae/growpromise-sub001/internal/growth"
	"github.com/ho8ae/growpromise-sub001/internal/ledger"
	"github.com/ho8ae/growpromise-sub001/internal/model"
	"github.com/ho8ae/growpromise-sub001/internal/recurrence"
	"github.com/ho8ae/growpromise-sub001/internal/store"
)

type Service struct {
	commitments *store.CommitmentStore
	members     *store.MemberStore
	ledger      *ledger.Service
	growth      *growth.Service
	bus         *event.Bus
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(commitments *store.CommitmentStore, members *store.MemberStore, led *ledger.Service, gro *growth.Service, bus *event.Bus, logger *slog.Logger) *Service {
	return &Service{
		commitments: commitments,
		members:     members,
		ledger:      led,
		growth:      gro,
		bus:         bus,
		logger:      logger,
		now:         time.Now,
	}
}

// --- Commitment definitions ---

type CommitmentInput struct {
	Title       string
	Description string
	Recurrence  string
	StartDate   time.Time
	EndDate     *time.Time
}

func (in *CommitmentInput) validate() (recurrence.Kind, error) {
	if strings.TrimSpace(in.Title) == "" {
		return "", fault.Validationf("title is required")
	}
	kind, err := recurrence.Parse(in.Recurrence)
	if err != nil {
		return "", fault.Validationf("%v", err)
	}
	if in.StartDate.IsZero() {
		return "", fault.Validationf("start date is required")
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return "", fault.Validationf("end date is before start date")
	}
	return kind, nil
}

func (s *Service) Create(ctx context.Context, in CommitmentInput) (*model.Commitment, error) {
	ident, ok := auth.FromContext(ctx)
	if !ok || ident.Role != model.RoleGuardian {
		return nil, fault.ErrPermissionDenied
	}
	kind, err := in.validate()
	if err != nil {
		return nil, err
	}
	start := recurrence.StartOfDay(in.StartDate)
	var end *time.Time
	if in.EndDate != nil {
		e := recurrence.StartOfDay(*in.EndDate)
		end = &e
	}
	c, err := s.commitments.Create(ident.MemberID, strings.TrimSpace(in.Title), in.Description, string(kind), start, end)
	if err != nil {
		return nil, err
	}
	s.logger.Info("commitment created", "commitment_id", c.ID, "guardian_id", ident.MemberID, "recurrence", c.Recurrence)
	return c, nil
}

func (s *Service) Update(ctx context.Context, id int64, in CommitmentInput) (*model.Commitment, error) {
	if _, err := s.owned(ctx, id); err != nil {
		return nil, err
	}
	kind, err := in.validate()
	if err != nil {
		return nil, err
	}
	start := recurrence.StartOfDay(in.StartDate)
	var end *time.Time
	if in.EndDate != nil {
		e := recurrence.StartOfDay(*in.EndDate)
		end = &e
	}
	return s.commitments.Update(id, strings.TrimSpace(in.Title), in.Description, string(kind), start, end)
}

func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	if _, err := s.owned(ctx, id); err != nil {
		return err
	}
	return s.commitments.SetActive(id, active)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.owned(ctx, id); err != nil {
		return err
	}
	return s.commitments.Delete(id)
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Commitment, error) {
	c, err := s.commitments.GetByID(id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fault.ErrNotFound
	}
	return c, nil
}

func (s *Service) List(ctx context.Context) ([]model.Commitment, error) {
	ident, ok := auth.FromContext(ctx)
	if !ok {
		return nil, fault.ErrPermissionDenied
	}
	if ident.Role == model.RoleGuardian {
		return s.commitments.ListByGuardian(ident.MemberID)
	}
	return s.commitments.ListActive()
}

// --- Assignment materialization ---

// Instantiate creates the dated assignments a commitment owes a dependent
// between from and to. Dates that already have an assignment are skipped,
// so calling it again for an overlapping window is harmless.
func (s *Service) Instantiate(ctx context.Context, commitmentID, dependentID int64, from, to time.Time) ([]model.Assignment, error) {
	c, err := s.owned(ctx, commitmentID)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, fault.Validationf("commitment is not active")
	}

	dep, err := s.members.GetByID(dependentID)
	if err != nil {
		return nil, err
	}
	if dep == nil {
		return nil, fault.ErrNotFound
	}
	if dep.Role != model.RoleDependent {
		return nil, fault.Validationf("assignments can only target dependents")
	}

	kind, err := recurrence.Parse(c.Recurrence)
	if err != nil {
		return nil, fmt.Errorf("parse recurrence: %w", err)
	}

	var created []model.Assignment
	for _, due := range recurrence.DueDates(kind, c.StartDate, c.EndDate, from, to) {
		a, err := s.commitments.CreateAssignment(c.ID, dependentID, due)
		if err != nil {
			return created, err
		}
		if a != nil {
			created = append(created, *a)
		}
	}
	s.logger.Info("assignments instantiated", "commitment_id", c.ID, "dependent_id", dependentID, "created", len(created))
	return created, nil
}

// Assignment returns one assignment with expiry applied. A pending
// assignment whose due date has passed reads back as expired; the write
// happens here rather than on a timer.
func (s *Service) Assignment(ctx context.Context, id int64) (*model.Assignment, error) {
	a, err := s.commitments.GetAssignmentByID(id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fault.ErrNotFound
	}
	return s.expireIfDue(a)
}

func (s *Service) AssignmentsForDependent(ctx context.Context, dependentID int64) ([]model.Assignment, error) {
	if ident, ok := auth.FromContext(ctx); ok && ident.Role == model.RoleDependent && ident.MemberID != dependentID {
		return nil, fault.ErrPermissionDenied
	}
	list, err := s.commitments.ListAssignmentsByDependent(dependentID)
	if err != nil {
		return nil, err
	}
	return s.expireDue(list)
}

func (s *Service) AssignmentsForCommitment(ctx context.Context, commitmentID int64) ([]model.Assignment, error) {
	if _, err := s.owned(ctx, commitmentID); err != nil {
		return nil, err
	}
	list, err := s.commitments.ListAssignmentsByCommitment(commitmentID)
	if err != nil {
		return nil, err
	}
	return s.expireDue(list)
}

func (s *Service) expireDue(list []model.Assignment) ([]model.Assignment, error) {
	for i := range list {
		a, err := s.expireIfDue(&list[i])
		if err != nil {
			return nil, err
		}
		list[i] = *a
	}
	return list, nil
}

// expireIfDue lazily expires a pending assignment once its due day is over.
// Due dates are stored at the start of the day, so the assignment stays
// submittable through the whole due day and expires at the next midnight.
func (s *Service) expireIfDue(a *model.Assignment) (*model.Assignment, error) {
	if a.Status != model.StatusPending || s.now().Before(a.DueDate.AddDate(0, 0, 1)) {
		return a, nil
	}
	changed, err := s.commitments.MarkExpired(a.ID, s.now())
	if err != nil {
		return nil, err
	}
	if changed {
		s.logger.Info("assignment expired", "assignment_id", a.ID, "due_date", a.DueDate)
	}
	// Re-read either way: a concurrent submit may have won instead.
	fresh, err := s.commitments.GetAssignmentByID(a.ID)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		return nil, fault.ErrNotFound
	}
	return fresh, nil
}

// --- Lifecycle transitions ---

// SubmitVerification moves a pending or rejected assignment to submitted,
// attaching the dependent's proof. The due date is checked first so an
// overdue pending assignment expires instead of getting submitted.
func (s *Service) SubmitVerification(ctx context.Context, assignmentID int64, imageRef, note string) (*model.Assignment, error) {
	ident, ok := auth.FromContext(ctx)
	if !ok || ident.Role != model.RoleDependent {
		return nil, fault.ErrPermissionDenied
	}

	a, err := s.Assignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.DependentID != ident.MemberID {
		return nil, fault.ErrPermissionDenied
	}
	if strings.TrimSpace(imageRef) == "" {
		return nil, fault.Validationf("verification image is required")
	}

	changed, err := s.commitments.MarkSubmitted(a.ID, imageRef, note, s.now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, &fault.InvalidTransitionError{AssignmentID: a.ID, From: string(a.Status), Op: "submit"}
	}

	a, err = s.Assignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	s.bus.Publish(event.New(event.KindAssignmentSubmitted, event.AssignmentSubmitted{
		AssignmentID: a.ID,
		CommitmentID: a.CommitmentID,
		DependentID:  a.DependentID,
	}))
	return a, nil
}

// Approve resolves a submitted assignment in the dependent's favor. The
// sticker mint is keyed by assignment id, so approving twice (or replaying
// the request) cannot produce a second sticker.
func (s *Service) Approve(ctx context.Context, assignmentID int64) (*model.Assignment, error) {
	a, err := s.resolvable(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	changed, err := s.commitments.MarkApproved(a.ID, s.now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, &fault.InvalidTransitionError{AssignmentID: a.ID, From: string(a.Status), Op: "approve"}
	}

	c, err := s.commitments.GetByID(a.CommitmentID)
	if err != nil {
		return nil, err
	}
	title := "Sticker"
	if c != nil {
		title = c.Title
	}
	sticker, err := s.ledger.Mint(ctx, a.DependentID, a.ID, title, a.VerificationRef)
	if err != nil {
		return nil, fmt.Errorf("mint sticker: %w", err)
	}

	granted, err := s.growth.GrantApprovalExperience(ctx, a.DependentID)
	if err != nil {
		s.logger.Error("grant approval experience", "assignment_id", a.ID, "error", err)
		granted = 0
	}

	a, err = s.Assignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	s.bus.Publish(event.New(event.KindAssignmentApproved, event.AssignmentApproved{
		AssignmentID:      a.ID,
		CommitmentID:      a.CommitmentID,
		DependentID:       a.DependentID,
		StickerID:         sticker.ID,
		ExperienceGranted: granted,
	}))
	s.logger.Info("assignment approved", "assignment_id", a.ID, "sticker_id", sticker.ID, "experience", granted)
	return a, nil
}

// Reject sends a submitted assignment back to the dependent with a reason.
// The dependent can submit again.
func (s *Service) Reject(ctx context.Context, assignmentID int64, reason string) (*model.Assignment, error) {
	a, err := s.resolvable(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fault.Validationf("rejection reason is required")
	}

	changed, err := s.commitments.MarkRejected(a.ID, reason)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, &fault.InvalidTransitionError{AssignmentID: a.ID, From: string(a.Status), Op: "reject"}
	}

	a, err = s.Assignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	s.bus.Publish(event.New(event.KindAssignmentRejected, event.AssignmentRejected{
		AssignmentID: a.ID,
		CommitmentID: a.CommitmentID,
		DependentID:  a.DependentID,
		Reason:       reason,
	}))
	return a, nil
}

// resolvable loads an assignment and checks the caller is the guardian who
// owns its commitment.
func (s *Service) resolvable(ctx context.Context, assignmentID int64) (*model.Assignment, error) {
	ident, ok := auth.FromContext(ctx)
	if !ok || ident.Role != model.RoleGuardian {
		return nil, fault.ErrPermissionDenied
	}
	a, err := s.Assignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	c, err := s.commitments.GetByID(a.CommitmentID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fault.ErrNotFound
	}
	if c.GuardianID != ident.MemberID {
		return nil, fault.ErrPermissionDenied
	}
	return a, nil
}

func (s *Service) owned(ctx context.Context, commitmentID int64) (*model.Commitment, error) {
	ident, ok := auth.FromContext(ctx)
	if !ok || ident.Role != model.RoleGuardian {
		return nil, fault.ErrPermissionDenied
	}
	c, err := s.commitments.GetByID(commitmentID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fault.ErrNotFound
	}
	if c.GuardianID != ident.MemberID {
		return nil, fault.ErrPermissionDenied
	}
	return c, nil
}
