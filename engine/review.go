package engine

import (
	"context"
	"fmt"

	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/shared"
)

type ReviewInput struct {
	Status model.SubmissionStatus
	Score  *int
	Note   *string
}

// Review records a staff decision on a submission and recomputes the teen's
// progress for the challenge.
func (e *Engine) Review(ctx context.Context, submissionID, reviewerID string, in ReviewInput) (*model.Submission, error) {
	if !in.Status.Valid() {
		return nil, shared.NewValidationError("status", "status must be one of PENDING, APPROVED, REJECTED")
	}

	submission, err := e.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, lookupError(err, "submission")
	}
	task, err := e.store.GetTask(ctx, submission.TaskID)
	if err != nil {
		return nil, lookupError(err, "task")
	}

	if in.Score != nil && (*in.Score < 0 || *in.Score > task.MaxScore) {
		return nil, shared.NewValidationError("score", fmt.Sprintf("score must be between 0 and %d", task.MaxScore))
	}

	now := e.now()
	reviewer := reviewerID
	submission.Status = in.Status
	submission.Score = in.Score
	submission.ReviewNote = in.Note
	submission.ReviewedByID = &reviewer
	submission.ReviewedAt = &now
	submission.UpdatedAt = now

	if err := e.store.SaveReview(ctx, submission); err != nil {
		return nil, shared.NewInternalError(err, "failed to save review")
	}

	switch in.Status {
	case model.SubmissionApproved:
		e.emit(ctx, Event{
			Type:   EventTaskApproved,
			TeenID: submission.TeenID,
			Data:   map[string]string{"task_id": task.ID, "task_title": task.Title, "challenge_id": task.ChallengeID},
		})
	case model.SubmissionRejected:
		data := map[string]string{"task_id": task.ID, "task_title": task.Title, "challenge_id": task.ChallengeID}
		if in.Note != nil {
			data["note"] = *in.Note
		}
		e.emit(ctx, Event{Type: EventSubmissionRejected, TeenID: submission.TeenID, Data: data})
	}

	if _, err := e.RecomputeProgress(ctx, submission.TeenID, submission.ChallengeID); err != nil {
		return submission, err
	}
	return submission, nil
}
