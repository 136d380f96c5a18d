// Package annotations parses the textual decorator syntax accepted by
// nem.Annotate:
//
//	@Get("/:id") @OnUndefined(404) @Param("id", type=int)
//
// Decorators take positional arguments followed by key=value arguments.
// Values are strings in single or double quotes, integers, floats, booleans
// or bare identifiers. Line comments start with //.
package annotations

import (
	"errors"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	nemerrors "github.com/toyz/nem/internal/errors"
)

// Source is a sequence of decorators
type Source struct {
	Decorators []*Decorator `parser:"@@*"`
}

// Decorator is a single @Name(args...)
type Decorator struct {
	Pos  lexer.Position
	Name string `parser:"'@' @Ident"`
	Args []*Arg `parser:"( '(' ( @@ ( ',' @@ )* ','? )? ')' )?"`
}

// Arg is a positional or key=value argument
type Arg struct {
	Pos   lexer.Position
	Key   string `parser:"( @Ident '=' )?"`
	Value *Value `parser:"@@"`
}

// Value is an argument value. Exactly one field is set.
type Value struct {
	String *string  `parser:"  @String"`
	Float  *float64 `parser:"| @Float"`
	Int    *int64   `parser:"| @Int"`
	Bool   *Boolean `parser:"| @('true' | 'false')"`
	Ident  *string  `parser:"| @Ident"`
}

// Boolean captures true and false
type Boolean bool

// Capture implements participle.Capture
func (b *Boolean) Capture(values []string) error {
	*b = values[0] == "true"
	return nil
}

// Interface returns the Go value of v
func (v *Value) Interface() any {
	switch {
	case v == nil:
		return nil
	case v.String != nil:
		return *v.String
	case v.Float != nil:
		return *v.Float
	case v.Int != nil:
		return *v.Int
	case v.Bool != nil:
		return bool(*v.Bool)
	case v.Ident != nil:
		return *v.Ident
	}
	return nil
}

// Kind names the value type for error messages
func (v *Value) Kind() string {
	switch {
	case v == nil:
		return "nothing"
	case v.String != nil:
		return "string"
	case v.Float != nil:
		return "float"
	case v.Int != nil:
		return "integer"
	case v.Bool != nil:
		return "boolean"
	case v.Ident != nil:
		return "identifier"
	}
	return "nothing"
}

var decoratorLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"|'(\\.|[^'\\])*'`},
	{Name: "Float", Pattern: `[-+]?\d+\.\d+`},
	{Name: "Int", Pattern: `[-+]?\d+`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Punct", Pattern: `[@(),=]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var parser = participle.MustBuild[Source](
	participle.Lexer(decoratorLexer),
	participle.Map(unquote, "String"),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

func unquote(tok lexer.Token) (lexer.Token, error) {
	if strings.HasPrefix(tok.Value, "'") {
		inner := tok.Value[1 : len(tok.Value)-1]
		inner = strings.ReplaceAll(inner, `\'`, `'`)
		inner = strings.ReplaceAll(inner, `"`, `\"`)
		tok.Value = `"` + inner + `"`
	}
	s, err := strconv.Unquote(tok.Value)
	if err != nil {
		return tok, participle.Errorf(tok.Pos, "invalid string %s", tok.Value)
	}
	tok.Value = s
	return tok, nil
}

// Parse parses src. owner names the annotated member in error locations.
func Parse(owner, src string) ([]*Decorator, error) {
	ast, err := parser.ParseString(owner, src)
	if err != nil {
		loc := nemerrors.SourceLocation{Source: owner}
		var perr participle.Error
		if errors.As(err, &perr) {
			loc.Line = perr.Position().Line
			loc.Column = perr.Position().Column
			return nil, nemerrors.New(nemerrors.SyntaxErrorCode, perr.Message()).WithLocation(loc)
		}
		return nil, nemerrors.Wrap(nemerrors.SyntaxErrorCode, "invalid annotation", err).WithLocation(loc)
	}
	return ast.Decorators, nil
}
