package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ho8ae/growpromise-sub001/internal/model"
)

type CommitmentStore struct {
	db *sql.DB
}

func NewCommitmentStore(db *sql.DB) *CommitmentStore {
	return &CommitmentStore{db: db}
}

// --- Commitment methods ---

const commitmentCols = `id, guardian_id, title, description, recurrence, start_date, end_date, active, created_at, updated_at`

func scanCommitment(scanner interface{ Scan(...any) error }) (*model.Commitment, error) {
	var c model.Commitment
	var endDate sql.NullTime
	var active int

	err := scanner.Scan(
		&c.ID, &c.GuardianID, &c.Title, &c.Description, &c.Recurrence,
		&c.StartDate, &endDate, &active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if endDate.Valid {
		c.EndDate = &endDate.Time
	}
	c.Active = active != 0
	return &c, nil
}

func (s *CommitmentStore) Create(guardianID int64, title, description, recurrence string, startDate time.Time, endDate *time.Time) (*model.Commitment, error) {
	var end sql.NullTime
	if endDate != nil {
		end = sql.NullTime{Time: endDate.UTC(), Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO commitments (guardian_id, title, description, recurrence, start_date, end_date) VALUES (?, ?, ?, ?, ?, ?)`,
		guardianID, title, description, recurrence, startDate.UTC(), end,
	)
	if err != nil {
		return nil, fmt.Errorf("insert commitment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *CommitmentStore) GetByID(id int64) (*model.Commitment, error) {
	row := s.db.QueryRow(`SELECT `+commitmentCols+` FROM commitments WHERE id = ?`, id)
	c, err := scanCommitment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get commitment: %w", err)
	}
	return c, nil
}

func (s *CommitmentStore) List() ([]model.Commitment, error) {
	rows, err := s.db.Query(`SELECT ` + commitmentCols + ` FROM commitments ORDER BY active DESC, title ASC`)
	if err != nil {
		return nil, fmt.Errorf("list commitments: %w", err)
	}
	defer rows.Close()
	return collectCommitments(rows)
}

func (s *CommitmentStore) ListByGuardian(guardianID int64) ([]model.Commitment, error) {
	rows, err := s.db.Query(
		`SELECT `+commitmentCols+` FROM commitments WHERE guardian_id = ? ORDER BY active DESC, title ASC`,
		guardianID,
	)
	if err != nil {
		return nil, fmt.Errorf("list commitments by guardian: %w", err)
	}
	defer rows.Close()
	return collectCommitments(rows)
}

func (s *CommitmentStore) ListActive() ([]model.Commitment, error) {
	rows, err := s.db.Query(`SELECT ` + commitmentCols + ` FROM commitments WHERE active = 1 ORDER BY title ASC`)
	if err != nil {
		return nil, fmt.Errorf("list active commitments: %w", err)
	}
	defer rows.Close()
	return collectCommitments(rows)
}

func collectCommitments(rows *sql.Rows) ([]model.Commitment, error) {
	var commitments []model.Commitment
	for rows.Next() {
		c, err := scanCommitment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan commitment: %w", err)
		}
		commitments = append(commitments, *c)
	}
	return commitments, rows.Err()
}

func (s *CommitmentStore) Update(id int64, title, description, recurrence string, startDate time.Time, endDate *time.Time) (*model.Commitment, error) {
	var end sql.NullTime
	if endDate != nil {
		end = sql.NullTime{Time: endDate.UTC(), Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE commitments SET title = ?, description = ?, recurrence = ?, start_date = ?, end_date = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, description, recurrence, startDate.UTC(), end, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update commitment: %w", err)
	}
	return s.GetByID(id)
}

func (s *CommitmentStore) SetActive(id int64, active bool) error {
	var a int
	if active {
		a = 1
	}
	_, err := s.db.Exec(`UPDATE commitments SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, a, id)
	if err != nil {
		return fmt.Errorf("set commitment active: %w", err)
	}
	return nil
}

// Delete removes a commitment; its assignments cascade with it.
func (s *CommitmentStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM commitments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete commitment: %w", err)
	}
	return nil
}

// --- Assignment methods ---

const assignmentCols = `id, commitment_id, dependent_id, due_date, status, verification_ref, verification_note, verification_time, rejection_reason, completed_at, created_at, updated_at`

func scanAssignment(scanner interface{ Scan(...any) error }) (*model.Assignment, error) {
	var a model.Assignment
	var verificationTime, completedAt sql.NullTime

	err := scanner.Scan(
		&a.ID, &a.CommitmentID, &a.DependentID, &a.DueDate, &a.Status,
		&a.VerificationRef, &a.VerificationNote, &verificationTime,
		&a.RejectionReason, &completedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if verificationTime.Valid {
		a.VerificationTime = &verificationTime.Time
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return &a, nil
}

// CreateAssignment inserts an assignment for one due date. If one already
// exists for the same commitment, dependent, and due date, no new row is
// created and (nil, nil) is returned.
func (s *CommitmentStore) CreateAssignment(commitmentID, dependentID int64, dueDate time.Time) (*model.Assignment, error) {
	result, err := s.db.Exec(
		`INSERT INTO assignments (commitment_id, dependent_id, due_date) VALUES (?, ?, ?)
		 ON CONFLICT (commitment_id, dependent_id, due_date) DO NOTHING`,
		commitmentID, dependentID, dueDate.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetAssignmentByID(id)
}

func (s *CommitmentStore) GetAssignmentByID(id int64) (*model.Assignment, error) {
	row := s.db.QueryRow(`SELECT `+assignmentCols+` FROM assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

func (s *CommitmentStore) ListAssignmentsByDependent(dependentID int64) ([]model.Assignment, error) {
	rows, err := s.db.Query(
		`SELECT `+assignmentCols+` FROM assignments WHERE dependent_id = ? ORDER BY due_date DESC, id DESC`,
		dependentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments by dependent: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

func (s *CommitmentStore) ListAssignmentsByCommitment(commitmentID int64) ([]model.Assignment, error) {
	rows, err := s.db.Query(
		`SELECT `+assignmentCols+` FROM assignments WHERE commitment_id = ? ORDER BY due_date DESC, id DESC`,
		commitmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments by commitment: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

// ListAssignmentsByStatus returns assignments in the given status, oldest
// due date first. Used by guardians reviewing submitted proof.
func (s *CommitmentStore) ListAssignmentsByStatus(status model.AssignmentStatus) ([]model.Assignment, error) {
	rows, err := s.db.Query(
		`SELECT `+assignmentCols+` FROM assignments WHERE status = ? ORDER BY due_date ASC, id ASC`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments by status: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

func collectAssignments(rows *sql.Rows) ([]model.Assignment, error) {
	var assignments []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

// --- Guarded transitions ---
//
// Every status change is a compare-and-set on the current status, never a
// blind overwrite. A false return means another caller got there first (or
// the transition was illegal); the caller decides what that means.

// MarkSubmitted moves pending or rejected to submitted, recording the
// proof. Any prior rejection reason is cleared.
func (s *CommitmentStore) MarkSubmitted(id int64, imageRef, note string, at time.Time) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE assignments
		 SET status = ?, verification_ref = ?, verification_note = ?, verification_time = ?, rejection_reason = '', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status IN (?, ?)`,
		model.StatusSubmitted, imageRef, note, at.UTC(), id, model.StatusPending, model.StatusRejected,
	)
	if err != nil {
		return false, fmt.Errorf("mark submitted: %w", err)
	}
	return oneRowChanged(result)
}

// MarkApproved moves submitted to approved.
func (s *CommitmentStore) MarkApproved(id int64, at time.Time) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE assignments SET status = ?, completed_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		model.StatusApproved, at.UTC(), id, model.StatusSubmitted,
	)
	if err != nil {
		return false, fmt.Errorf("mark approved: %w", err)
	}
	return oneRowChanged(result)
}

// MarkRejected moves submitted to rejected with a reason.
func (s *CommitmentStore) MarkRejected(id int64, reason string) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE assignments SET status = ?, rejection_reason = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		model.StatusRejected, reason, id, model.StatusSubmitted,
	)
	if err != nil {
		return false, fmt.Errorf("mark rejected: %w", err)
	}
	return oneRowChanged(result)
}

// MarkExpired moves pending to expired once the due day is over. Due dates
// sit at the start of the day, so a row expires only when now has reached
// the following midnight. Idempotent: running it twice (or losing the race
// to another reader) leaves the same row state.
func (s *CommitmentStore) MarkExpired(id int64, now time.Time) (bool, error) {
	cutoff := now.AddDate(0, 0, -1).UTC()
	result, err := s.db.Exec(
		`UPDATE assignments SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ? AND due_date <= ?`,
		model.StatusExpired, id, model.StatusPending, cutoff,
	)
	if err != nil {
		return false, fmt.Errorf("mark expired: %w", err)
	}
	return oneRowChanged(result)
}

func oneRowChanged(result sql.Result) (bool, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}
