package content

import (
	"fmt"
	"strings"

	"github.com/osteele/liquid"
)

// Renderer turns a campaign template into the text for one recipient:
// spintax first, then Liquid merge tags.
type Renderer struct {
	engine *liquid.Engine
	rnd    Rand
}

// NewRenderer creates a renderer. A nil rnd uses DefaultRand.
func NewRenderer(rnd Rand) *Renderer {
	if rnd == nil {
		rnd = DefaultRand
	}
	engine := liquid.NewEngine()

	// {{ first_name | fallback: "there" }}
	engine.RegisterFilter("fallback", func(value interface{}, def string) interface{} {
		if value == nil || strings.TrimSpace(fmt.Sprint(value)) == "" {
			return def
		}
		return value
	})
	// {{ email | email_domain }}
	engine.RegisterFilter("email_domain", func(email string) string {
		if i := strings.LastIndex(email, "@"); i >= 0 {
			return email[i+1:]
		}
		return ""
	})

	return &Renderer{engine: engine, rnd: rnd}
}

// Render expands spintax in tmpl and then binds fields into its merge tags.
// Unknown variables render as empty strings.
func (r *Renderer) Render(tmpl string, fields map[string]any) (string, error) {
	spun := Spintax(tmpl, r.rnd)
	if !strings.Contains(spun, "{{") && !strings.Contains(spun, "{%") {
		return spun, nil
	}
	out, err := r.engine.ParseAndRenderString(spun, liquid.Bindings(fields))
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}

// Validate reports template syntax errors without rendering.
func (r *Renderer) Validate(tmpl string) error {
	if _, err := r.engine.ParseString(tmpl); err != nil {
		return fmt.Errorf("parse template: %w", err)
	}
	return nil
}
