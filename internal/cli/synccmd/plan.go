package synccmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/crmarques/hypersync/faults"
	"github.com/crmarques/hypersync/internal/cli/common"
	"github.com/crmarques/hypersync/orchestrator"
	"github.com/crmarques/hypersync/resource"
	"github.com/crmarques/hypersync/yamlutil"
)

// Plan is a declarative sync run: a document applied to a target resource
// and a tree of steps run below every resource the target produces.
type Plan struct {
	// Target is the resource URI; empty means the API root.
	Target       string         `yaml:"target,omitempty"`
	Kind         string         `yaml:"kind,omitempty"`
	Document     map[string]any `yaml:"document,omitempty"`
	DocumentFile string         `yaml:"document-file,omitempty"`
	Steps        []Step         `yaml:"steps,omitempty"`
}

// Step addresses a named child of the resources produced by its parent.
type Step struct {
	Kind         string `yaml:"kind"`
	Name         string `yaml:"name"`
	Rel          string `yaml:"rel,omitempty"`
	DocumentName string `yaml:"document-name,omitempty"`
	Steps        []Step `yaml:"steps,omitempty"`
}

// LoadPlan reads a plan file. document-file is resolved against the plan's
// directory and must stay inside it.
func LoadPlan(path string) (Plan, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return Plan{}, validationError("flag --plan is required", nil)
	}
	data, err := os.ReadFile(trimmed)
	if err != nil {
		return Plan{}, validationError(fmt.Sprintf("failed to read plan %s", trimmed), err)
	}
	plan, err := DecodePlan(data)
	if err != nil {
		return Plan{}, err
	}

	if plan.DocumentFile != "" {
		documentPath := plan.DocumentFile
		planDir := filepath.Dir(trimmed)
		if !filepath.IsAbs(documentPath) {
			documentPath = filepath.Join(planDir, documentPath)
		}
		if !common.WithinDir(planDir, documentPath) {
			return Plan{}, validationError(fmt.Sprintf("document-file %s is outside the plan directory", plan.DocumentFile), nil)
		}
		document, err := loadDocument(documentPath)
		if err != nil {
			return Plan{}, err
		}
		plan.Document = document
	}
	return plan, nil
}

func DecodePlan(data []byte) (Plan, error) {
	var plan Plan
	if err := yamlutil.DecodeStrict(data, &plan); err != nil {
		if errors.Is(err, io.EOF) {
			return Plan{}, validationError("plan is empty", nil)
		}
		return Plan{}, validationError("failed to decode plan", err)
	}
	if plan.Document != nil && plan.DocumentFile != "" {
		return Plan{}, validationError("plan document and document-file are mutually exclusive", nil)
	}
	if plan.Document == nil && plan.DocumentFile == "" {
		return Plan{}, validationError("plan requires a document or document-file", nil)
	}
	if _, err := plan.Request(); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// loadDocument reads a JSON or YAML document.
func loadDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, validationError(fmt.Sprintf("failed to read document %s", path), err)
	}
	var document map[string]any
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, validationError(fmt.Sprintf("failed to decode document %s", path), err)
	}
	if document == nil {
		return nil, validationError(fmt.Sprintf("document %s is empty", path), nil)
	}
	return document, nil
}

func (p Plan) Representation() resource.Representation {
	return resource.FromMap(p.Document)
}

// Request maps the plan onto an orchestrator request tree.
func (p Plan) Request() (orchestrator.Request, error) {
	kind := orchestrator.KindResource
	if raw := strings.TrimSpace(p.Kind); raw != "" {
		parsed, err := orchestrator.ParseKind(raw)
		if err != nil {
			return orchestrator.Request{}, err
		}
		if parsed != orchestrator.KindResource && parsed != orchestrator.KindCollection {
			return orchestrator.Request{}, validationError(fmt.Sprintf("plan kind must be resource or collection, got %q", raw), nil)
		}
		kind = parsed
	}

	children, err := stepRequests(p.Steps, "steps")
	if err != nil {
		return orchestrator.Request{}, err
	}
	return orchestrator.Request{Kind: kind, Children: children}, nil
}

func stepRequests(steps []Step, path string) ([]orchestrator.Request, error) {
	if len(steps) == 0 {
		return nil, nil
	}
	requests := make([]orchestrator.Request, 0, len(steps))
	for idx, step := range steps {
		stepPath := fmt.Sprintf("%s[%d]", path, idx)
		request, err := step.request(stepPath)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, nil
}

func (s Step) request(path string) (orchestrator.Request, error) {
	if strings.TrimSpace(s.Name) == "" {
		return orchestrator.Request{}, validationError(fmt.Sprintf("%s.name is required", path), nil)
	}

	kind, err := orchestrator.ParseKind(strings.TrimSpace(s.Kind))
	if err != nil {
		return orchestrator.Request{}, validationError(fmt.Sprintf("%s.kind: %v", path, err), nil)
	}
	switch kind {
	case orchestrator.KindCollection:
		// Steps hang off a parent, so a collection is always a named one.
		kind = orchestrator.KindNamedCollection
	case orchestrator.KindResource:
		return orchestrator.Request{}, validationError(fmt.Sprintf("%s.kind must be singleton, collection or uri-list", path), nil)
	}
	if kind == orchestrator.KindURIList && len(s.Steps) > 0 {
		return orchestrator.Request{}, validationError(fmt.Sprintf("%s: uri-list steps cannot have steps", path), nil)
	}

	children, err := stepRequests(s.Steps, path+".steps")
	if err != nil {
		return orchestrator.Request{}, err
	}
	return orchestrator.Request{
		Kind: kind,
		Named: orchestrator.Named{
			Name:         strings.TrimSpace(s.Name),
			Rel:          strings.TrimSpace(s.Rel),
			DocumentName: strings.TrimSpace(s.DocumentName),
		},
		Children: children,
	}, nil
}

func validationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}
