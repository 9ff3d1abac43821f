package engine

import (
	"context"
	"fmt"

	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/shared"
	log "github.com/sirupsen/logrus"
)

type SubmitInput struct {
	TeenID  string
	TaskID  string
	Payload string
	Files   []FileUpload
}

// SubmitTask normalizes a submission, stores its files and upserts it on
// (task, teen). A resubmission replaces the earlier content and resets the status
// to APPROVED with review fields cleared.
func (e *Engine) SubmitTask(ctx context.Context, in SubmitInput) (*model.Submission, error) {
	task, err := e.store.GetTask(ctx, in.TaskID)
	if err != nil {
		return nil, lookupError(err, "task")
	}
	challenge, err := e.store.GetChallenge(ctx, task.ChallengeID)
	if err != nil {
		return nil, lookupError(err, "challenge")
	}
	if !challenge.OpenAt(e.now()) {
		return nil, shared.NewConflictError(nil, "challenge is not open for submissions")
	}

	normalized, err := NormalizeSubmission(task, in.Payload, in.Files)
	if err != nil {
		return nil, err
	}
	content, err := MarshalContent(normalized.Content)
	if err != nil {
		return nil, shared.NewInternalError(err, "failed to encode submission content")
	}

	previous, err := e.store.FindSubmission(ctx, task.ID, in.TeenID)
	if err != nil {
		if !isNotFound(err) {
			return nil, shared.NewInternalError(err, "failed to load submission")
		}
		previous = nil
	}

	urls, err := e.uploadFiles(ctx, fmt.Sprintf("submissions/%s/%s", in.TeenID, task.ID), normalized.Files)
	if err != nil {
		return nil, err
	}

	now := e.now()
	submission, err := e.store.UpsertSubmission(ctx, &model.Submission{
		ID:          newID(),
		TaskID:      task.ID,
		TeenID:      in.TeenID,
		ChallengeID: task.ChallengeID,
		Content:     content,
		FileURLs:    urls,
		Status:      model.SubmissionApproved,
		SubmittedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		e.discardFiles(ctx, urls)
		return nil, shared.NewInternalError(err, "failed to save submission")
	}

	if previous != nil {
		e.discardFiles(ctx, staleFiles(previous.FileURLs, urls))
	}

	log.WithFields(log.Fields{
		"teen_id": in.TeenID,
		"task_id": task.ID,
		"type":    task.Type,
	}).Info("Submission saved")

	if _, err := e.RecomputeProgress(ctx, in.TeenID, task.ChallengeID); err != nil {
		return submission, err
	}
	return submission, nil
}

// DeleteSubmission removes a submission and recomputes progress. teenID limits the
// call to the owner's submissions; staff pass an empty teenID.
func (e *Engine) DeleteSubmission(ctx context.Context, submissionID, teenID string) error {
	submission, err := e.store.GetSubmission(ctx, submissionID)
	if err != nil {
		return lookupError(err, "submission")
	}
	if teenID != "" && submission.TeenID != teenID {
		return shared.NewForbiddenError(nil, "submission belongs to another teen")
	}

	if err := e.store.DeleteSubmission(ctx, submissionID); err != nil {
		if isNotFound(err) {
			return shared.NewNotFoundError(err, "submission not found")
		}
		return shared.NewInternalError(err, "failed to delete submission")
	}
	e.discardFiles(ctx, submission.FileURLs)

	_, err = e.RecomputeProgress(ctx, submission.TeenID, submission.ChallengeID)
	return err
}

func (e *Engine) uploadFiles(ctx context.Context, folder string, files []FileUpload) ([]string, error) {
	if len(files) == 0 {
		return []string{}, nil
	}
	if e.storage == nil {
		return nil, shared.NewDependencyError(nil, "file storage is not configured")
	}

	urls := make([]string, 0, len(files))
	for _, f := range files {
		url, err := e.storage.Upload(ctx, folder, f.Data, f.MimeType)
		if err != nil {
			e.discardFiles(ctx, urls)
			return nil, shared.NewDependencyError(err, "failed to store attachment")
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// discardFiles removes stored objects. Failures only leave orphans behind, so they
// are logged.
func (e *Engine) discardFiles(ctx context.Context, urls []string) {
	if e.storage == nil {
		return
	}
	for _, url := range urls {
		if err := e.storage.Delete(ctx, url); err != nil {
			log.WithError(err).WithField("url", url).Warn("Failed to delete stored attachment")
		}
	}
}

func staleFiles(previous, current []string) []string {
	keep := make(map[string]bool, len(current))
	for _, url := range current {
		keep[url] = true
	}
	var stale []string
	for _, url := range previous {
		if !keep[url] {
			stale = append(stale, url)
		}
	}
	return stale
}
