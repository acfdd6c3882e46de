// Package preferences holds per-user generation settings.
package preferences

// Defaults applied to users with no stored record.
const (
	DefaultTextModel  = "openai"
	DefaultImageModel = "flux"
	DefaultAgent      = "agent-1"
)

// Preferences is a user's selected models and agent.
type Preferences struct {
	TextModel  string
	ImageModel string
	Agent      string
}

// Defaults returns the settings of a user who never changed anything.
func Defaults() Preferences {
	return Preferences{
		TextModel:  DefaultTextModel,
		ImageModel: DefaultImageModel,
		Agent:      DefaultAgent,
	}
}

// Patch is a partial update; nil fields keep the current value.
type Patch struct {
	TextModel  *string
	ImageModel *string
	Agent      *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.TextModel == nil && p.ImageModel == nil && p.Agent == nil
}

// Apply returns p with the patch applied.
func (p Preferences) Apply(patch Patch) Preferences {
	if patch.TextModel != nil {
		p.TextModel = *patch.TextModel
	}
	if patch.ImageModel != nil {
		p.ImageModel = *patch.ImageModel
	}
	if patch.Agent != nil {
		p.Agent = *patch.Agent
	}
	return p
}

// WithDefaults fills empty fields from Defaults.
func (p Preferences) WithDefaults() Preferences {
	d := Defaults()
	if p.TextModel == "" {
		p.TextModel = d.TextModel
	}
	if p.ImageModel == "" {
		p.ImageModel = d.ImageModel
	}
	if p.Agent == "" {
		p.Agent = d.Agent
	}
	return p
}
