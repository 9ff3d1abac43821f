package engine

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Calstins/teensha/dto"
	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/shared"
	"github.com/bytedance/sonic"
	"github.com/gabriel-vasile/mimetype"
)

// FileUpload is an attachment received with a submission.
type FileUpload struct {
	Name     string
	MimeType string
	Size     int64
	Data     []byte
}

// Content is the canonical, type-tagged shape of a submission.
type Content interface {
	TaskType() model.TaskType
}

type TextContent struct {
	Text string `json:"text"`
}

type ImageContent struct {
	Description string `json:"description,omitempty"`
	FileCount   int    `json:"fileCount"`
}

type VideoContent struct {
	URL         string `json:"url"`
	Platform    string `json:"platform"`
	Description string `json:"description,omitempty"`
}

type QuizContent struct {
	Answers map[string]string `json:"answers"`
}

type FormContent struct {
	Responses map[string]string `json:"responses"`
}

type PickOneContent struct {
	SelectedOption string `json:"selectedOption"`
}

type ChecklistContent struct {
	CheckedItems []string `json:"checkedItems"`
}

func (TextContent) TaskType() model.TaskType      { return model.TaskTypeText }
func (ImageContent) TaskType() model.TaskType     { return model.TaskTypeImage }
func (VideoContent) TaskType() model.TaskType     { return model.TaskTypeVideo }
func (QuizContent) TaskType() model.TaskType      { return model.TaskTypeQuiz }
func (FormContent) TaskType() model.TaskType      { return model.TaskTypeForm }
func (PickOneContent) TaskType() model.TaskType   { return model.TaskTypePickOne }
func (ChecklistContent) TaskType() model.TaskType { return model.TaskTypeChecklist }

// Normalized is the output of NormalizeSubmission. Files carry their sniffed MIME type.
type Normalized struct {
	Content Content
	Files   []FileUpload
}

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// videoHosts maps a recognised host to its platform name.
var videoHosts = []struct {
	host     string
	platform string
}{
	{"youtube.com", "youtube"},
	{"youtu.be", "youtube"},
	{"vimeo.com", "vimeo"},
	{"tiktok.com", "tiktok"},
	{"instagram.com", "instagram"},
	{"facebook.com", "facebook"},
	{"fb.watch", "facebook"},
}

// NormalizeSubmission validates a raw payload against its task and returns the
// canonical content. Only the first violated rule is reported.
func NormalizeSubmission(task *model.Task, raw string, files []FileUpload) (*Normalized, error) {
	if task == nil {
		return nil, shared.NewInternalError(nil, "task is required")
	}

	opts, err := ParseTaskOptions(task.Type, task.Options)
	if err != nil {
		return nil, shared.NewInternalError(err, "task options are malformed")
	}

	checked, err := inspectFiles(files)
	if err != nil {
		return nil, err
	}

	var content Content
	switch o := opts.(type) {
	case NoOptions:
		switch task.Type {
		case model.TaskTypeText:
			content, err = normalizeText(raw)
		case model.TaskTypeImage:
			content, err = normalizeImage(raw, checked)
		case model.TaskTypeVideo:
			content, err = normalizeVideo(raw)
		}
	case QuizOptions:
		content, err = normalizeQuiz(raw, o)
	case FormOptions:
		content, err = normalizeForm(raw, o)
	case PickOneOptions:
		content, err = normalizePickOne(raw, o)
	case ChecklistOptions:
		content, err = normalizeChecklist(raw, o)
	}
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, shared.NewValidationError("type", fmt.Sprintf("unsupported task type %q", task.Type))
	}

	return &Normalized{Content: content, Files: checked}, nil
}

// MarshalContent encodes content for storage.
func MarshalContent(c Content) ([]byte, error) {
	return sonic.Marshal(c)
}

func decodePayload(raw string) (map[string]interface{}, error) {
	raw = strings.TrimSpace(raw)
	payload := map[string]interface{}{}
	if raw == "" {
		return payload, nil
	}
	if err := sonic.UnmarshalString(raw, &payload); err != nil {
		return nil, shared.NewValidationError("content", "content must be a JSON object")
	}
	return payload, nil
}

func inspectFiles(files []FileUpload) ([]FileUpload, error) {
	checked := make([]FileUpload, 0, len(files))
	for _, f := range files {
		size := f.Size
		if len(f.Data) > 0 {
			size = int64(len(f.Data))
		}
		if size > shared.MaxUploadSizeBytes {
			return nil, shared.NewValidationError("files", fmt.Sprintf("%s exceeds the 10MB limit", displayName(f)))
		}

		mimeType := declaredType(f.MimeType)
		if len(f.Data) > 0 {
			detected := mimetype.Detect(f.Data)
			mimeType = ""
			for _, allowed := range allowedImageTypes {
				if detected.Is(allowed) {
					mimeType = allowed
					break
				}
			}
		}
		if !isAllowedImage(mimeType) {
			return nil, shared.NewValidationError("files", fmt.Sprintf("%s is not a supported image (jpeg, png, gif, webp)", displayName(f)))
		}

		f.MimeType = mimeType
		f.Size = size
		checked = append(checked, f)
	}
	return checked, nil
}

func displayName(f FileUpload) string {
	if f.Name == "" {
		return "file"
	}
	return f.Name
}

func declaredType(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = strings.TrimSpace(v[:i])
	}
	return v
}

func isAllowedImage(mimeType string) bool {
	for _, allowed := range allowedImageTypes {
		if mimeType == allowed {
			return true
		}
	}
	return false
}

func normalizeText(raw string) (Content, error) {
	text := raw
	trimmed := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(trimmed, "{"):
		// Answers may start with a brace without being JSON.
		if payload, err := decodePayload(trimmed); err == nil {
			text = stringValue(payload["text"])
		}
	case strings.HasPrefix(trimmed, `"`):
		var s string
		if err := sonic.UnmarshalString(trimmed, &s); err == nil {
			text = s
		}
	}

	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < shared.MinTextLength {
		return nil, shared.NewValidationError("text", fmt.Sprintf("text must be at least %d characters", shared.MinTextLength))
	}
	return TextContent{Text: text}, nil
}

func normalizeImage(raw string, files []FileUpload) (Content, error) {
	if len(files) == 0 {
		return nil, shared.NewValidationError("files", "at least one image is required")
	}
	payload, err := decodeLoose(raw, "description")
	if err != nil {
		return nil, err
	}
	return ImageContent{
		Description: stringValue(payload["description"]),
		FileCount:   len(files),
	}, nil
}

func normalizeVideo(raw string) (Content, error) {
	payload, err := decodeLoose(raw, "url")
	if err != nil {
		return nil, err
	}
	link := stringValue(payload["url"])
	if link == "" {
		link = stringValue(payload["videoUrl"])
	}
	if link == "" {
		return nil, shared.NewValidationError("url", "video url is required")
	}

	platform, ok := detectPlatform(link)
	if !ok {
		return nil, shared.NewValidationError("url", "video url must link to YouTube, Vimeo, TikTok, Instagram or Facebook")
	}
	return VideoContent{
		URL:         link,
		Platform:    platform,
		Description: stringValue(payload["description"]),
	}, nil
}

func detectPlatform(link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	for _, vh := range videoHosts {
		if host == vh.host || strings.HasSuffix(host, "."+vh.host) {
			return vh.platform, true
		}
	}
	return "", false
}

func normalizeQuiz(raw string, opts QuizOptions) (Content, error) {
	payload, err := decodePayload(raw)
	if err != nil {
		return nil, err
	}
	answers, ok := payload["answers"].(map[string]interface{})
	if !ok {
		return nil, shared.NewValidationError("answers", "answers are required")
	}

	normalized := make(map[string]string, len(opts.Questions))
	for _, q := range opts.Questions {
		answer := stringValue(answers[q.ID])
		if answer == "" {
			return nil, shared.NewValidationError("answers."+q.ID, fmt.Sprintf("question %q is not answered", q.ID))
		}
		if len(q.Options) > 0 && !contains(q.Options, answer) {
			return nil, shared.NewValidationError("answers."+q.ID, fmt.Sprintf("answer to question %q is not one of its options", q.ID))
		}
		normalized[q.ID] = answer
	}
	return QuizContent{Answers: normalized}, nil
}

func normalizeForm(raw string, opts FormOptions) (Content, error) {
	payload, err := decodePayload(raw)
	if err != nil {
		return nil, err
	}
	responses, _ := payload["responses"].(map[string]interface{})

	normalized := make(map[string]string, len(opts.Fields))
	for _, f := range opts.Fields {
		field := "responses." + f.ID
		name := f.Label
		if name == "" {
			name = f.ID
		}

		value := stringValue(responses[f.ID])
		if value == "" {
			if f.Required {
				return nil, shared.NewValidationError(field, fmt.Sprintf("%s is required", name))
			}
			continue
		}

		switch f.Type {
		case FieldEmail:
			if err := dto.GetValidator().Var(value, "email"); err != nil {
				return nil, shared.NewValidationError(field, fmt.Sprintf("%s must be a valid email address", name))
			}
		case FieldNumber:
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				return nil, shared.NewValidationError(field, fmt.Sprintf("%s must be a number", name))
			}
		case FieldSelect:
			if !contains(f.Options, value) {
				return nil, shared.NewValidationError(field, fmt.Sprintf("%s must be one of its options", name))
			}
		}
		normalized[f.ID] = value
	}
	return FormContent{Responses: normalized}, nil
}

func normalizePickOne(raw string, opts PickOneOptions) (Content, error) {
	payload, err := decodePayload(raw)
	if err != nil {
		return nil, err
	}
	selected := stringValue(payload["selectedOption"])
	if selected == "" {
		return nil, shared.NewValidationError("selectedOption", "an option must be selected")
	}
	if !opts.has(selected) {
		return nil, shared.NewValidationError("selectedOption", fmt.Sprintf("option %q is not one of the task's options", selected))
	}
	return PickOneContent{SelectedOption: selected}, nil
}

func normalizeChecklist(raw string, opts ChecklistOptions) (Content, error) {
	payload, err := decodePayload(raw)
	if err != nil {
		return nil, err
	}
	items, _ := payload["checkedItems"].([]interface{})
	if len(items) == 0 {
		return nil, shared.NewValidationError("checkedItems", "at least one item must be checked")
	}

	seen := map[string]bool{}
	checked := make([]string, 0, len(items))
	for _, item := range items {
		id := stringValue(item)
		if id == "" || !opts.has(id) {
			return nil, shared.NewValidationError("checkedItems", fmt.Sprintf("item %q is not part of this checklist", id))
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		checked = append(checked, id)
	}
	return ChecklistContent{CheckedItems: checked}, nil
}

// decodeLoose also accepts a bare string, which is read as the value of key.
func decodeLoose(raw, key string) (map[string]interface{}, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return map[string]interface{}{}, nil
	}
	if !strings.HasPrefix(trimmed, "{") {
		return map[string]interface{}{key: trimmed}, nil
	}
	return decodePayload(trimmed)
}

func stringValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	}
	return ""
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
