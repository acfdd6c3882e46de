// Package catalog lists the generation models and agents and which of them are premium-gated.
package catalog

import (
	"fmt"

	"github.com/quickai/quickai/internal/domain"
)

// Model is a downstream generation model.
type Model struct {
	Name         string
	Description  string
	Premium      bool
	SystemPrompt string
}

// Agent is a persona whose system prompt overrides the model's.
type Agent struct {
	Name         string
	Description  string
	SystemPrompt string
}

// Catalog is an immutable model/agent registry.
type Catalog struct {
	text          []Model
	image         []Model
	agents        []Agent
	byText        map[string]Model
	byImage       map[string]Model
	byAgent       map[string]Agent
	defaultPrompt string
}

// New validates and indexes the given entries.
func New(text, image []Model, agents []Agent, defaultPrompt string) (*Catalog, error) {
	c := &Catalog{
		text:          append([]Model(nil), text...),
		image:         append([]Model(nil), image...),
		agents:        append([]Agent(nil), agents...),
		byText:        make(map[string]Model, len(text)),
		byImage:       make(map[string]Model, len(image)),
		byAgent:       make(map[string]Agent, len(agents)),
		defaultPrompt: defaultPrompt,
	}
	if err := index(c.byText, text, "text"); err != nil {
		return nil, err
	}
	if err := index(c.byImage, image, "image"); err != nil {
		return nil, err
	}
	for _, a := range agents {
		if a.Name == "" {
			return nil, fmt.Errorf("agent name is required")
		}
		if _, dup := c.byAgent[a.Name]; dup {
			return nil, fmt.Errorf("duplicate agent %q", a.Name)
		}
		c.byAgent[a.Name] = a
	}
	return c, nil
}

func index(dst map[string]Model, models []Model, kind string) error {
	for _, m := range models {
		if m.Name == "" {
			return fmt.Errorf("%s model name is required", kind)
		}
		if _, dup := dst[m.Name]; dup {
			return fmt.Errorf("duplicate %s model %q", kind, m.Name)
		}
		dst[m.Name] = m
	}
	return nil
}

// Models returns the models for r in declaration order.
func (c *Catalog) Models(r domain.Resource) []Model {
	switch r {
	case domain.ResourceText:
		return append([]Model(nil), c.text...)
	case domain.ResourceImage:
		return append([]Model(nil), c.image...)
	default:
		return nil
	}
}

// FreeModels returns the models of r usable without premium.
func (c *Catalog) FreeModels(r domain.Resource) []Model {
	var out []Model
	for _, m := range c.Models(r) {
		if !m.Premium {
			out = append(out, m)
		}
	}
	return out
}

// Model looks up a model by resource and name.
func (c *Catalog) Model(r domain.Resource, name string) (Model, error) {
	var (
		m  Model
		ok bool
	)
	switch r {
	case domain.ResourceText:
		m, ok = c.byText[name]
	case domain.ResourceImage:
		m, ok = c.byImage[name]
	default:
		return Model{}, fmt.Errorf("%w: %q", domain.ErrUnknownResource, r)
	}
	if !ok {
		return Model{}, fmt.Errorf("%w: %s model %q", domain.ErrUnknownModel, r, name)
	}
	return m, nil
}

// IsPremium reports whether the named model is premium-gated.
func (c *Catalog) IsPremium(r domain.Resource, name string) (bool, error) {
	m, err := c.Model(r, name)
	if err != nil {
		return false, err
	}
	return m.Premium, nil
}

// Agents returns all agents in declaration order.
func (c *Catalog) Agents() []Agent { return append([]Agent(nil), c.agents...) }

// Agent looks up an agent.
func (c *Catalog) Agent(name string) (Agent, error) {
	a, ok := c.byAgent[name]
	if !ok {
		return Agent{}, fmt.Errorf("%w: agent %q", domain.ErrUnknownModel, name)
	}
	return a, nil
}

// SystemPrompt picks the agent's prompt, then the text model's, then the default.
func (c *Catalog) SystemPrompt(model, agent string) string {
	if a, ok := c.byAgent[agent]; ok && a.SystemPrompt != "" {
		return a.SystemPrompt
	}
	if m, ok := c.byText[model]; ok && m.SystemPrompt != "" {
		return m.SystemPrompt
	}
	return c.defaultPrompt
}
