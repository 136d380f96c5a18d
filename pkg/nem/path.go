package nem

import (
	"strings"
)

// PathPartType represents the type of path part
type PathPartType int

const (
	StaticPart PathPartType = iota
	ParameterPart
	WildcardPart
)

// PathPart represents a single segment of a route path
type PathPart struct {
	Type  PathPartType
	Value string // static text, parameter name, or wildcard name ("" for a bare *)
}

// RoutePath is an express-style route path: "/users/:id", "/files/*"
type RoutePath string

// Raw returns the path as written
func (p RoutePath) Raw() string {
	return string(p)
}

// Parts splits the path into segments
func (p RoutePath) Parts() []PathPart {
	var parts []PathPart
	for _, seg := range strings.Split(strings.Trim(string(p), "/"), "/") {
		switch {
		case seg == "":
			continue
		case strings.HasPrefix(seg, ":"):
			parts = append(parts, PathPart{Type: ParameterPart, Value: seg[1:]})
		case strings.HasPrefix(seg, "*"):
			parts = append(parts, PathPart{Type: WildcardPart, Value: seg[1:]})
		default:
			parts = append(parts, PathPart{Type: StaticPart, Value: seg})
		}
	}
	return parts
}

// ParamNames returns the names of the path parameters in order
func (p RoutePath) ParamNames() []string {
	var names []string
	for _, part := range p.Parts() {
		if part.Type == ParameterPart {
			names = append(names, part.Value)
		}
	}
	return names
}

// Format rebuilds the path, letting wildcard segments be renamed for
// routers that need a named catch-all
func (p RoutePath) Format(wildcard func(name string) string) string {
	parts := p.Parts()
	if len(parts) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, part := range parts {
		b.WriteByte('/')
		switch part.Type {
		case ParameterPart:
			b.WriteString(":" + part.Value)
		case WildcardPart:
			if wildcard != nil {
				b.WriteString(wildcard(part.Value))
			} else {
				b.WriteString("*" + part.Value)
			}
		default:
			b.WriteString(part.Value)
		}
	}
	return b.String()
}

// JoinPaths joins mount prefixes and a route path into one normalized path.
// "/" segments collapse, and the result has no trailing slash unless it is
// the root.
func JoinPaths(paths ...string) string {
	var segs []string
	for _, p := range paths {
		if t := strings.Trim(p, "/"); t != "" {
			segs = append(segs, t)
		}
	}
	return "/" + strings.Join(segs, "/")
}
