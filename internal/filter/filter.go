// Package filter implements the small expression language the CLI uses to
// narrow down described catalog objects.
//
// Expressions combine field predicates with "and"/"or" and parentheses:
//
//	kind = view
//	name ~ "pg_%" and kind != table
//	(name = users or name = posts) and kind = table
//
// Fields are "name" and "kind". The "~" operator matches SQL LIKE-style
// patterns where % spans any run of characters and _ matches exactly one.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/electwix/metacat/internal/metadata"
)

var filterLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
		{Name: "String", Pattern: `"[^"]*"`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "Operator", Pattern: `!=|=|~`},
		{Name: "Paren", Pattern: `[()]`},
	},
})

var parser = participle.MustBuild[expr](
	participle.Lexer(filterLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
)

type expr struct {
	Left  *andExpr   `parser:"@@"`
	Right []*andExpr `parser:"( 'or' @@ )*"`
}

type andExpr struct {
	Left  *term   `parser:"@@"`
	Right []*term `parser:"( 'and' @@ )*"`
}

type term struct {
	Pred *predicate `parser:"  @@"`
	Sub  *expr      `parser:"| '(' @@ ')'"`
}

type predicate struct {
	Field string `parser:"@Ident"`
	Op    string `parser:"@Operator"`
	Value string `parser:"@(String | Ident)"`

	like *regexp.Regexp
}

// Filter is a compiled, reusable object filter.
type Filter struct {
	root *expr
}

// Parse compiles a filter expression.
func Parse(input string) (*Filter, error) {
	root, err := parser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("parse filter %q: %w", input, err)
	}
	if err := compile(root); err != nil {
		return nil, fmt.Errorf("parse filter %q: %w", input, err)
	}
	return &Filter{root: root}, nil
}

// Match reports whether the object satisfies the filter.
func (f *Filter) Match(obj metadata.Object) bool {
	return f.root.match(obj)
}

func (e *expr) match(obj metadata.Object) bool {
	if e.Left.match(obj) {
		return true
	}
	for _, alt := range e.Right {
		if alt.match(obj) {
			return true
		}
	}
	return false
}

func (a *andExpr) match(obj metadata.Object) bool {
	if !a.Left.match(obj) {
		return false
	}
	for _, t := range a.Right {
		if !t.match(obj) {
			return false
		}
	}
	return true
}

func (t *term) match(obj metadata.Object) bool {
	if t.Pred != nil {
		return t.Pred.match(obj)
	}
	return t.Sub.match(obj)
}

func (p *predicate) match(obj metadata.Object) bool {
	var field string
	switch p.Field {
	case "name":
		field = obj.Name
	case "kind":
		field = string(obj.Kind)
	}

	switch p.Op {
	case "=":
		return field == p.Value
	case "!=":
		return field != p.Value
	case "~":
		return p.like.MatchString(field)
	}
	return false
}

func compile(e *expr) error {
	for _, a := range append([]*andExpr{e.Left}, e.Right...) {
		for _, t := range append([]*term{a.Left}, a.Right...) {
			if t.Sub != nil {
				if err := compile(t.Sub); err != nil {
					return err
				}
				continue
			}
			if err := t.Pred.compile(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *predicate) compile() error {
	switch p.Field {
	case "name", "kind":
	default:
		return fmt.Errorf("unknown field %q (want name or kind)", p.Field)
	}

	if p.Op == "~" {
		re, err := likeToRegexp(p.Value)
		if err != nil {
			return err
		}
		p.like = re
	}
	return nil
}

// likeToRegexp translates a SQL LIKE pattern into an anchored regexp:
// % spans any run of characters, _ matches exactly one.
func likeToRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString(`\A`)
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(`.*`)
		case '_':
			b.WriteString(`.`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString(`\z`)

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	return re, nil
}
