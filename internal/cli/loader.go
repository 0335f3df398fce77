package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"formgate/internal/model"
)

// Load error codes.
const (
	ErrCodeGeneric  = "E001"
	ErrCodeNotFound = "E002"
	ErrCodeParse    = "E003"
	ErrCodeInvalid  = "E004"
)

// LoadError is a problem reading an input file.
type LoadError struct {
	Code    string
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
}

type schemaFile struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Questions   []questionFile `yaml:"questions"`
	CreatedAt   string         `yaml:"createdAt"`
	UpdatedAt   string         `yaml:"updatedAt"`
}

type questionFile struct {
	ID       string    `yaml:"id"`
	Text     string    `yaml:"text"`
	Type     string    `yaml:"type"`
	Options  []string  `yaml:"options"`
	Required bool      `yaml:"required"`
	Order    int       `yaml:"order"`
	Rule     *ruleFile `yaml:"conditionalRule"`
}

type ruleFile struct {
	DependsOn    string      `yaml:"dependsOn"`
	Operator     string      `yaml:"operator"`
	CompareValue interface{} `yaml:"compareValue"`
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "file not found"}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Path: path, Message: err.Error()}
	}
	return data, nil
}

// decodeStrict decodes YAML (and therefore JSON) rejecting unknown fields.
func decodeStrict(path string, data []byte, out interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return &LoadError{Code: ErrCodeParse, Path: path, Message: err.Error()}
	}
	return nil
}

// LoadSchema reads a form schema file.
func LoadSchema(path string) ([]model.Question, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var doc schemaFile
	if err := decodeStrict(path, data, &doc); err != nil {
		return nil, err
	}

	questions := make([]model.Question, 0, len(doc.Questions))
	for i, qf := range doc.Questions {
		q := model.Question{
			ID:       qf.ID,
			Text:     qf.Text,
			Type:     model.QuestionType(qf.Type),
			Options:  qf.Options,
			Required: qf.Required,
			Order:    qf.Order,
		}
		if q.ID == "" {
			return nil, &LoadError{Code: ErrCodeInvalid, Path: path, Message: fmt.Sprintf("question %d has no id", i+1)}
		}
		if qf.Rule != nil {
			v, err := model.ScalarOf(qf.Rule.CompareValue)
			if err != nil {
				return nil, &LoadError{Code: ErrCodeInvalid, Path: path, Message: fmt.Sprintf("question %s: compareValue: %v", q.ID, err)}
			}
			q.Rule = &model.ConditionalRule{
				DependsOn:    qf.Rule.DependsOn,
				Operator:     model.Operator(qf.Rule.Operator),
				CompareValue: v,
			}
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// LoadAnswers reads an answer file: a mapping from question id to either a
// bare scalar, {value: x}, or {filePath: p, originalName: n}.
func LoadAnswers(path string) (model.AnswerSet, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Path: path, Message: err.Error()}
	}

	ids := make([]string, 0, len(doc))
	for id := range doc {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	answers := model.AnswerSet{}
	for _, id := range ids {
		v, err := answerValue(doc[id])
		if err != nil {
			return nil, &LoadError{Code: ErrCodeInvalid, Path: path, Message: fmt.Sprintf("answer %s: %v", id, err)}
		}
		answers.Put(id, v)
	}
	return answers, nil
}

func answerValue(raw interface{}) (model.AnswerValue, error) {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		s, err := model.ScalarOf(raw)
		return model.ScalarAnswer(s), err
	}
	if p, ok := obj["filePath"]; ok {
		path, _ := p.(string)
		name, _ := obj["originalName"].(string)
		if path == "" {
			return model.AnswerValue{}, fmt.Errorf("filePath must be a non-empty string")
		}
		return model.FileAnswer(path, name), nil
	}
	if v, ok := obj["value"]; ok {
		s, err := model.ScalarOf(v)
		return model.ScalarAnswer(s), err
	}
	return model.AnswerValue{}, fmt.Errorf("expected a scalar, {value} or {filePath, originalName}")
}
