package engine

import (
	"fmt"
	"strings"

	"github.com/Calstins/teensha/model"
	"github.com/Calstins/teensha/shared"
	"github.com/bytedance/sonic"
)

// TaskOptions is the type-specific configuration stored on a task.
type TaskOptions interface {
	TaskType() model.TaskType
	validate() error
}

type QuizQuestion struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
}

type QuizOptions struct {
	Questions []QuizQuestion `json:"questions"`
}

type FormField struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

type FormOptions struct {
	Fields []FormField `json:"fields"`
}

type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type PickOneOptions struct {
	Options []Choice `json:"options"`
}

type ChecklistOptions struct {
	Items []Choice `json:"items"`
}

// NoOptions is carried by TEXT, IMAGE and VIDEO tasks.
type NoOptions struct {
	Type model.TaskType `json:"-"`
}

const (
	FieldText     = "text"
	FieldTextarea = "textarea"
	FieldEmail    = "email"
	FieldNumber   = "number"
	FieldSelect   = "select"
	FieldDate     = "date"
)

var formFieldTypes = map[string]bool{
	FieldText: true, FieldTextarea: true, FieldEmail: true,
	FieldNumber: true, FieldSelect: true, FieldDate: true,
}

func (QuizOptions) TaskType() model.TaskType      { return model.TaskTypeQuiz }
func (FormOptions) TaskType() model.TaskType      { return model.TaskTypeForm }
func (PickOneOptions) TaskType() model.TaskType   { return model.TaskTypePickOne }
func (ChecklistOptions) TaskType() model.TaskType { return model.TaskTypeChecklist }
func (o NoOptions) TaskType() model.TaskType      { return o.Type }

func (o QuizOptions) validate() error {
	if len(o.Questions) == 0 {
		return fmt.Errorf("a quiz needs at least one question")
	}
	seen := map[string]bool{}
	for _, q := range o.Questions {
		if err := checkID(seen, q.ID, "question"); err != nil {
			return err
		}
	}
	return nil
}

func (o FormOptions) validate() error {
	if len(o.Fields) == 0 {
		return fmt.Errorf("a form needs at least one field")
	}
	seen := map[string]bool{}
	for _, f := range o.Fields {
		if err := checkID(seen, f.ID, "field"); err != nil {
			return err
		}
		if !formFieldTypes[f.Type] {
			return fmt.Errorf("field %q has unknown type %q", f.ID, f.Type)
		}
		if f.Type == FieldSelect && len(f.Options) == 0 {
			return fmt.Errorf("select field %q needs options", f.ID)
		}
	}
	return nil
}

func (o PickOneOptions) validate() error {
	if len(o.Options) == 0 {
		return fmt.Errorf("pick-one task needs at least one option")
	}
	return checkChoices(o.Options, "option")
}

func (o ChecklistOptions) validate() error {
	if len(o.Items) == 0 {
		return fmt.Errorf("checklist needs at least one item")
	}
	return checkChoices(o.Items, "item")
}

func (NoOptions) validate() error { return nil }

func checkChoices(choices []Choice, kind string) error {
	seen := map[string]bool{}
	for _, c := range choices {
		if err := checkID(seen, c.ID, kind); err != nil {
			return err
		}
	}
	return nil
}

func checkID(seen map[string]bool, id, kind string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("every %s needs an id", kind)
	}
	if seen[id] {
		return fmt.Errorf("duplicate %s id %q", kind, id)
	}
	seen[id] = true
	return nil
}

func (o PickOneOptions) has(id string) bool {
	for _, c := range o.Options {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (o ChecklistOptions) has(id string) bool {
	for _, c := range o.Items {
		if c.ID == id {
			return true
		}
	}
	return false
}

// ParseTaskOptions decodes the stored options of a task type. Missing options decode
// to the empty variant.
func ParseTaskOptions(taskType model.TaskType, raw []byte) (TaskOptions, error) {
	empty := len(raw) == 0 || string(raw) == "null"

	var opts TaskOptions
	var err error
	switch taskType {
	case model.TaskTypeText, model.TaskTypeImage, model.TaskTypeVideo:
		return NoOptions{Type: taskType}, nil
	case model.TaskTypeQuiz:
		var o QuizOptions
		if !empty {
			err = sonic.Unmarshal(raw, &o)
		}
		opts = o
	case model.TaskTypeForm:
		var o FormOptions
		if !empty {
			err = sonic.Unmarshal(raw, &o)
		}
		opts = o
	case model.TaskTypePickOne:
		var o PickOneOptions
		if !empty {
			err = sonic.Unmarshal(raw, &o)
		}
		opts = o
	case model.TaskTypeChecklist:
		var o ChecklistOptions
		if !empty {
			err = sonic.Unmarshal(raw, &o)
		}
		opts = o
	default:
		return nil, fmt.Errorf("unknown task type %q", taskType)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s options: %w", taskType, err)
	}
	return opts, nil
}

// ValidateTaskOptions checks the options supplied when a task is authored.
func ValidateTaskOptions(taskType model.TaskType, raw []byte) (TaskOptions, error) {
	if !taskType.Valid() {
		return nil, shared.NewValidationError("type", fmt.Sprintf("unknown task type %q", taskType))
	}
	opts, err := ParseTaskOptions(taskType, raw)
	if err != nil {
		return nil, shared.NewValidationError("options", "options are not valid JSON for this task type")
	}
	if err := opts.validate(); err != nil {
		return nil, shared.NewValidationError("options", err.Error())
	}
	return opts, nil
}
