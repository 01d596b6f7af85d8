package internal

import (
	"fmt"

	"github.com/starford/frontedit/internal/document"
	"github.com/starford/frontedit/internal/schema"
	"github.com/starford/frontedit/internal/session"
	"github.com/starford/frontedit/internal/storage"
	"github.com/starford/frontedit/internal/validate"
)

// Inspector answers one-shot questions about project files without starting
// the server or touching the index.
type Inspector struct {
	store storage.Provider
	rules session.Resolver
}

// NewInspector opens the project described by cfg.
func NewInspector(cfg *Config) (*Inspector, error) {
	store, err := storage.NewFS(cfg.Project.Root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	rules, err := cfg.Rules()
	if err != nil {
		return nil, fmt.Errorf("load schemas: %w", err)
	}
	return &Inspector{store: store, rules: rules}, nil
}

// Fields returns the form field tree of the file at path.
func (in *Inspector) Fields(path string) ([]*schema.Field, error) {
	doc, err := in.load(path)
	if err != nil {
		return nil, err
	}
	return session.Fields(doc, in.rules.Resolve(doc.Path).Fields)
}

// Validate checks the file at path against its configured schemas and
// returns the error messages.
func (in *Inspector) Validate(path string) ([]string, error) {
	doc, err := in.load(path)
	if err != nil {
		return nil, err
	}
	rules := in.rules.Resolve(doc.Path)
	errs := validate.Validate(doc.Data(), rules.Validation)
	if rules.Strict != nil {
		errs = append(errs, rules.Strict.Validate(doc.Data())...)
	}
	return errs, nil
}

func (in *Inspector) load(path string) (*document.Document, error) {
	data, err := in.store.Read(path)
	if err != nil {
		return nil, err
	}
	return document.Parse(path, data)
}
