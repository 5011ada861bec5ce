// Package prompts provides the prompt templates sent to the coding agent.
// Templates are embedded at compile time and parsed once at startup.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"sync"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Package errors for prompt management.
var (
	// ErrTemplateNotFound indicates the requested template doesn't exist.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrTemplateExecution indicates a failure during template execution.
	ErrTemplateExecution = errors.New("template execution failed")
)

// PromptID identifies a prompt template.
type PromptID string

// Registered prompt IDs. The ID matches the template file name without
// extension.
const (
	// AgentTask is the prompt piped to the coding agent on stdin.
	AgentTask PromptID = "agent_task"
)

// AgentTaskData is the data for the AgentTask template.
type AgentTaskData struct {
	// Task is the natural-language change description.
	Task string

	// Repo is the repository directory name, for orientation only.
	Repo string

	// Branch is the branch the working copy has checked out.
	Branch string
}

// registry holds parsed templates with thread-safe lazy initialization.
type registry struct {
	once      sync.Once
	templates map[PromptID]*template.Template
	initErr   error
}

//nolint:gochecknoglobals // Singleton registry over the embedded templates
var globalRegistry = &registry{}

func (r *registry) get(id PromptID) (*template.Template, error) {
	r.once.Do(func() {
		r.templates = make(map[PromptID]*template.Template)
		for _, pid := range []PromptID{AgentTask} {
			tmpl, err := template.ParseFS(templateFS, "templates/"+string(pid)+".tmpl")
			if err != nil {
				r.initErr = fmt.Errorf("parse prompt %s: %w", pid, err)
				return
			}
			r.templates[pid] = tmpl
		}
	})
	if r.initErr != nil {
		return nil, r.initErr
	}

	tmpl, ok := r.templates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return tmpl, nil
}

// Render executes a prompt template with the provided data.
func Render(id PromptID, data any) (string, error) {
	tmpl, err := globalRegistry.get(id)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: prompt %s: %w", ErrTemplateExecution, id, err)
	}
	return buf.String(), nil
}

// MustRender executes a prompt template and panics on error.
// Use only with known-good data; the embedded templates parse at startup.
func MustRender(id PromptID, data any) string {
	result, err := Render(id, data)
	if err != nil {
		panic(fmt.Sprintf("prompts.MustRender(%s): %v", id, err))
	}
	return result
}
