package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/Calstins/teensha/dto"
	"github.com/Calstins/teensha/engine"
	"github.com/Calstins/teensha/middleware"
	"github.com/Calstins/teensha/shared"
	"github.com/gofiber/fiber/v2"
)

const maxFilesPerSubmission = 5

type SubmissionHandler struct {
	engine  EngineInterface
	teenSvc TeenServiceInterface
}

func NewSubmissionHandler(engine EngineInterface, teenSvc TeenServiceInterface) *SubmissionHandler {
	return &SubmissionHandler{
		engine:  engine,
		teenSvc: teenSvc,
	}
}

// @Summary Submit a task
// @Description Submit or resubmit a task. Send JSON, or multipart/form-data with a "payload" field and "files" attachments.
// @Tags submissions
// @Accept json,mpfd
// @Produce json
// @Security Bearer
// @Param taskId path string true "Task ID"
// @Param request body dto.SubmitTaskRequest true "Submission payload"
// @Success 201 {object} shared.Response{data=model.Submission}
// @Failure 400 {object} shared.Response
// @Failure 409 {object} shared.Response
// @Router /api/v1/tasks/{taskId}/submissions [post]
func (h *SubmissionHandler) SubmitTask(c *fiber.Ctx) error {
	var req dto.SubmitTaskRequest
	var files []engine.FileUpload

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return shared.NewBadRequestError(err, "invalid multipart form")
		}
		if values := form.Value["payload"]; len(values) > 0 {
			req.Payload = values[0]
		}
		if len(form.File["files"]) > maxFilesPerSubmission {
			return shared.NewValidationError("files", "too many files")
		}
		for _, fh := range form.File["files"] {
			upload, err := readUpload(fh)
			if err != nil {
				return err
			}
			files = append(files, upload)
		}
	} else if err := c.BodyParser(&req); err != nil {
		return err
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	submission, err := h.engine.SubmitTask(c.UserContext(), engine.SubmitInput{
		TeenID:  middleware.UserID(c),
		TaskID:  c.Params("taskId"),
		Payload: req.Payload,
		Files:   files,
	})
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusCreated, "Submission received", submission)
}

// @Summary My submissions
// @Tags submissions
// @Produce json
// @Security Bearer
// @Param challenge_id query string false "Limit to one challenge"
// @Success 200 {object} shared.Response{data=[]model.Submission}
// @Router /api/v1/submissions/me [get]
func (h *SubmissionHandler) ListMine(c *fiber.Ctx) error {
	submissions, err := h.teenSvc.ListSubmissions(c.UserContext(), middleware.UserID(c), c.Query("challenge_id"))
	if err != nil {
		return err
	}
	return shared.ResponseOK(c, submissions)
}

// @Summary Delete my submission
// @Tags submissions
// @Produce json
// @Security Bearer
// @Param id path string true "Submission ID"
// @Success 200 {object} shared.Response
// @Failure 404 {object} shared.Response
// @Router /api/v1/submissions/{id} [delete]
func (h *SubmissionHandler) DeleteMine(c *fiber.Ctx) error {
	if err := h.engine.DeleteSubmission(c.UserContext(), c.Params("id"), middleware.UserID(c)); err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Submission deleted", nil)
}

// @Summary Review queue (Staff)
// @Tags admin
// @Produce json
// @Security Bearer
// @Param status query string false "PENDING, APPROVED or REJECTED" default(PENDING)
// @Param challenge_id query string false "Challenge ID"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} shared.Response{data=dto.SubmissionListResponse}
// @Router /api/v1/admin/submissions [get]
func (h *SubmissionHandler) ReviewQueue(c *fiber.Ctx) error {
	var q dto.ReviewQueueQuery
	if err := c.QueryParser(&q); err != nil {
		return shared.NewBadRequestError(err, "invalid query")
	}
	if err := q.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	resp, err := h.teenSvc.ReviewQueue(c.UserContext(), q)
	if err != nil {
		return err
	}
	return shared.ResponseOK(c, resp)
}

// @Summary Review a submission (Staff)
// @Description Approve, reject or reset a submission. Progress is recomputed.
// @Tags admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Submission ID"
// @Param request body dto.ReviewSubmissionRequest true "Decision"
// @Success 200 {object} shared.Response{data=model.Submission}
// @Router /api/v1/admin/submissions/{id}/review [patch]
func (h *SubmissionHandler) Review(c *fiber.Ctx) error {
	var req dto.ReviewSubmissionRequest
	if err := c.BodyParser(&req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}

	submission, err := h.engine.Review(c.UserContext(), c.Params("id"), middleware.UserID(c), engine.ReviewInput{
		Status: req.Status,
		Score:  req.Score,
		Note:   req.Note,
	})
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Submission reviewed", submission)
}

// @Summary Delete any submission (Staff)
// @Tags admin
// @Produce json
// @Security Bearer
// @Param id path string true "Submission ID"
// @Success 200 {object} shared.Response
// @Router /api/v1/admin/submissions/{id} [delete]
func (h *SubmissionHandler) DeleteAny(c *fiber.Ctx) error {
	if err := h.engine.DeleteSubmission(c.UserContext(), c.Params("id"), ""); err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Submission deleted", nil)
}

func readUpload(fh *multipart.FileHeader) (engine.FileUpload, error) {
	if fh.Size > shared.MaxUploadSizeBytes {
		return engine.FileUpload{}, shared.NewValidationError("files", fh.Filename+" exceeds the upload size limit")
	}
	f, err := fh.Open()
	if err != nil {
		return engine.FileUpload{}, shared.NewBadRequestError(err, "failed to read upload")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, shared.MaxUploadSizeBytes+1))
	if err != nil {
		return engine.FileUpload{}, shared.NewBadRequestError(err, "failed to read upload")
	}
	return engine.FileUpload{
		Name:     fh.Filename,
		MimeType: fh.Header.Get(fiber.HeaderContentType),
		Size:     int64(len(data)),
		Data:     data,
	}, nil
}
