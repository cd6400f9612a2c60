package rufas

import "context"

// DefaultTags are created in a freshly initialized workspace when seeding is
// enabled.
var DefaultTags = []TagInput{
	{Name: "config", Description: "Configuration and build files", Color: "#6B7280"},
	{Name: "docs", Description: "Documentation", Color: "#3B82F6"},
	{Name: "features", Description: "Feature implementation", Color: "#22C55E"},
	{Name: "components-ui", Description: "User interface components", Color: "#A855F7"},
	{Name: "core", Description: "Core logic", Color: "#EF4444"},
	{Name: "types", Description: "Type definitions", Color: "#EAB308"},
}

// SeedDefaultTags creates DefaultTags that do not exist yet, matched by name.
// It returns the tags it created.
func (e *Engine) SeedDefaultTags(ctx context.Context) ([]Tag, error) {
	existing, err := e.Tags(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(existing))
	for _, t := range existing {
		names[t.Name] = true
	}

	var created []Tag
	for _, in := range DefaultTags {
		if names[in.Name] {
			continue
		}
		tag, err := e.CreateTag(ctx, in)
		if err != nil {
			return created, err
		}
		created = append(created, *tag)
	}
	return created, nil
}
