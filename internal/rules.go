package internal

import (
	"fmt"
	"path/filepath"

	"github.com/starford/frontedit/internal/schema"
	"github.com/starford/frontedit/internal/session"
	"github.com/starford/frontedit/internal/validate"
)

// Rules loads the schema files named in c.Schemas. Relative paths are
// resolved against the project root.
func (c *Config) Rules() (session.Resolver, error) {
	resolver := make(session.Resolver, 0, len(c.Schemas))
	for i, sc := range c.Schemas {
		rules, err := sc.load(c.Project.Root)
		if err != nil {
			return nil, fmt.Errorf("schemas[%d] (%s): %w", i, sc.Match, err)
		}
		resolver = append(resolver, session.RuleSet{Match: sc.Match, Rules: rules})
	}
	return resolver, nil
}

func (c *SchemaConfig) load(root string) (session.Rules, error) {
	var rules session.Rules
	if c.Fields != "" {
		fields, err := schema.LoadDescriptors(resolve(root, c.Fields))
		if err != nil {
			return rules, err
		}
		rules.Fields = fields
	}
	if c.Validation != "" {
		s, err := validate.Load(resolve(root, c.Validation))
		if err != nil {
			return rules, err
		}
		rules.Validation = s
	}
	if c.JSONSchema != "" {
		s, err := validate.CompileStrict(resolve(root, c.JSONSchema))
		if err != nil {
			return rules, err
		}
		rules.Strict = s
	}
	return rules, nil
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
