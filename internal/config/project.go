package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/hupe1980/ui5omit/internal/omit"
)

// minSpecVersion is the oldest ui5.yaml specification version that supports
// custom task configuration.
const minSpecVersion = ">= 2.0"

// Project is the project document of a ui5.yaml file.
type Project struct {
	SpecVersion string          `yaml:"specVersion"`
	Kind        string          `yaml:"kind,omitempty"`
	Type        string          `yaml:"type"`
	Metadata    ProjectMetadata `yaml:"metadata"`
	Builder     Builder         `yaml:"builder,omitempty"`
}

// ProjectMetadata holds the project identity.
type ProjectMetadata struct {
	Name string `yaml:"name"`
}

// Builder is the builder section of a project.
type Builder struct {
	CustomTasks []CustomTask `yaml:"customTasks,omitempty"`
}

// CustomTask is one entry of builder.customTasks.
type CustomTask struct {
	Name          string    `yaml:"name"`
	BeforeTask    string    `yaml:"beforeTask,omitempty"`
	AfterTask     string    `yaml:"afterTask,omitempty"`
	Configuration yaml.Node `yaml:"configuration,omitempty"`
}

// LoadProject reads the project document from a ui5.yaml file.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project file %q: %w", path, err)
	}

	p, err := ParseProject(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return p, nil
}

// ParseProject parses a possibly multi-document ui5.yaml and returns the
// first document describing a project. Extension documents (kind: extension)
// are skipped.
func ParseProject(data []byte) (*Project, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	for {
		var p Project
		if err := dec.Decode(&p); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, fmt.Errorf("parsing ui5.yaml: %w", err)
		}

		if p.Kind != "" && p.Kind != "project" {
			continue
		}

		if err := p.Validate(); err != nil {
			return nil, err
		}

		return &p, nil
	}

	return nil, errors.New("no project document found")
}

// Validate checks the project document.
func (p *Project) Validate() error {
	if p.SpecVersion == "" {
		return errors.New("specVersion is required")
	}

	v, err := semver.NewVersion(p.SpecVersion)
	if err != nil {
		return fmt.Errorf("invalid specVersion %q: %w", p.SpecVersion, err)
	}

	c, err := semver.NewConstraint(minSpecVersion)
	if err != nil {
		return err
	}

	if !c.Check(v) {
		return fmt.Errorf("specVersion %s is not supported: custom task configuration requires %s", p.SpecVersion, minSpecVersion)
	}

	if p.Metadata.Name == "" {
		return errors.New("metadata.name is required")
	}

	return nil
}

// CustomTask returns the custom task registered under name.
func (p *Project) CustomTask(name string) (*CustomTask, bool) {
	for i := range p.Builder.CustomTasks {
		if p.Builder.CustomTasks[i].Name == name {
			return &p.Builder.CustomTasks[i], true
		}
	}

	return nil, false
}

// TaskOptions decodes the configuration block of the named custom task. A
// missing task or an empty configuration yields zero RawOptions, which
// resolve to the defaults. Unknown keys are an error. The boolean reports
// whether the task was found.
func (p *Project) TaskOptions(name string) (omit.RawOptions, bool, error) {
	var raw omit.RawOptions

	task, ok := p.CustomTask(name)
	if !ok {
		return raw, false, nil
	}

	if task.Configuration.Kind == 0 {
		return raw, true, nil
	}

	// Round-trip through the options file decoder so that unknown keys are
	// rejected the same way in both sources.
	data, err := yaml.Marshal(&task.Configuration)
	if err != nil {
		return raw, true, fmt.Errorf("encoding configuration of task %q: %w", name, err)
	}

	raw, err = ParseTaskOptions(data)
	if err != nil {
		return raw, true, fmt.Errorf("configuration of task %q: %w", name, err)
	}

	return raw, true, nil
}

// LoadTaskOptions reads a standalone task options file (YAML or JSON) with
// the same keys as the ui5.yaml configuration block.
func LoadTaskOptions(path string) (omit.RawOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return omit.RawOptions{}, fmt.Errorf("reading options file %q: %w", path, err)
	}

	return ParseTaskOptions(data)
}

// ParseTaskOptions decodes task options from YAML or JSON. Unknown keys are
// rejected.
func ParseTaskOptions(data []byte) (omit.RawOptions, error) {
	var raw omit.RawOptions

	if err := sigsyaml.UnmarshalStrict(data, &raw); err != nil {
		return omit.RawOptions{}, fmt.Errorf("parsing task options: %w", err)
	}

	return raw, nil
}
