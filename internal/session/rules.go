package session

import (
	"path"
	"strings"

	"github.com/starford/frontedit/internal/schema"
	"github.com/starford/frontedit/internal/validate"
)

// Rules are the schema settings applied to one file.
type Rules struct {
	Fields     []schema.Descriptor
	Validation *validate.Schema
	Strict     *validate.Strict
}

// RuleSet binds Rules to the files matching a glob.
type RuleSet struct {
	Match string
	Rules Rules
}

// Resolver picks the first RuleSet matching a file path.
type Resolver []RuleSet

// Resolve returns the rules for p, or empty rules when nothing matches.
//
// Match is tried against the full slash path and against the base name. A
// pattern ending in "/**" matches everything below its directory.
func (r Resolver) Resolve(p string) Rules {
	p = path.Clean(strings.TrimPrefix(p, "/"))
	for _, rs := range r {
		if matches(rs.Match, p) {
			return rs.Rules
		}
	}
	return Rules{}
}

func matches(pattern, p string) bool {
	if pattern == "" {
		return false
	}
	if dir, ok := strings.CutSuffix(pattern, "/**"); ok {
		return strings.HasPrefix(p, dir+"/")
	}
	if ok, _ := path.Match(pattern, p); ok {
		return true
	}
	ok, _ := path.Match(pattern, path.Base(p))
	return ok
}
