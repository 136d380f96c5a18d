package annotations

import (
	"fmt"
	"strings"
)

// Decorator names grouped by what they attach to a method
var (
	RouteDecorators = []string{"Get", "Post", "Put", "Delete", "Patch", "Options", "Head", "All"}

	DirectiveDecorators = []string{
		"ContentType", "StatusCode", "Header", "Redirect", "View",
		"Json", "Raw", "Text", "OnUndefined", "OnNull", "SSE",
	}

	// NamedBindingDecorators take the name of the value they bind
	NamedBindingDecorators = []string{"Param", "QueryParam", "BodyParam", "HeaderParam", "SessionParam"}

	// WholeBindingDecorators bind a whole collection or object
	WholeBindingDecorators = []string{"Params", "QueryParams", "Body", "Headers", "Session", "SessionId", "Req", "Res", "Err"}
)

func validateStatus(min, max int) func(any) error {
	return func(v any) error {
		if n, ok := v.(int); ok && (n < min || n > max) {
			return fmt.Errorf("status must be between %d and %d, got %d", min, max, n)
		}
		return nil
	}
}

func validatePath(v any) error {
	if s := v.(string); s != "" && !strings.HasPrefix(s, "/") {
		return fmt.Errorf("path must start with '/', got '%s'", s)
	}
	return nil
}

func validateNotEmpty(v any) error {
	if v.(string) == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}

func routeSchema(name string) Schema {
	return Schema{
		Name:        name,
		Description: fmt.Sprintf("Mounts the method for %s requests", strings.ToUpper(name)),
		Positional:  []string{"path"},
		Parameters: map[string]ParameterSpec{
			"path": {
				Type:         StringType,
				DefaultValue: "/",
				Description:  "Route path relative to the controller",
				Validator:    validatePath,
			},
		},
		Examples: []string{fmt.Sprintf(`@%s("/:id")`, name), fmt.Sprintf("@%s", name)},
	}
}

func bindingOptions(params map[string]ParameterSpec) map[string]ParameterSpec {
	params["type"] = ParameterSpec{
		Type:        StringType,
		Description: "Semantic type the value is coerced to: int, float, bool, uuid, string or an alias",
	}
	params["required"] = ParameterSpec{
		Type:        BoolType,
		Description: "Fail with 400 when the value is missing",
	}
	return params
}

func namedBindingSchema(name string) Schema {
	return Schema{
		Name:        name,
		Description: "Binds one named request value to the next method argument",
		Positional:  []string{"name"},
		Parameters: bindingOptions(map[string]ParameterSpec{
			"name": {Type: StringType, Required: true, Validator: validateNotEmpty},
		}),
		Examples: []string{fmt.Sprintf(`@%s("id", type=int, required=true)`, name)},
	}
}

func wholeBindingSchema(name string) Schema {
	return Schema{
		Name:        name,
		Description: "Binds a request collection to the next method argument",
		Parameters:  bindingOptions(map[string]ParameterSpec{}),
		Examples:    []string{"@" + name},
	}
}

func flagSchema(name, description string) Schema {
	return Schema{Name: name, Description: description, Parameters: map[string]ParameterSpec{}}
}

// BuiltinSchemas returns the schemas of every builtin decorator
func BuiltinSchemas() []Schema {
	var out []Schema
	for _, name := range RouteDecorators {
		out = append(out, routeSchema(name))
	}
	for _, name := range NamedBindingDecorators {
		out = append(out, namedBindingSchema(name))
	}
	for _, name := range WholeBindingDecorators {
		out = append(out, wholeBindingSchema(name))
	}

	out = append(out,
		Schema{
			Name:       "ContentType",
			Positional: []string{"type"},
			Parameters: map[string]ParameterSpec{
				"type": {Type: StringType, Required: true, Validator: validateNotEmpty},
			},
			Examples: []string{`@ContentType("text/csv")`},
		},
		Schema{
			Name:       "StatusCode",
			Positional: []string{"code"},
			Parameters: map[string]ParameterSpec{
				"code": {Type: IntType, Required: true, Validator: validateStatus(100, 599)},
			},
			Examples: []string{"@StatusCode(201)"},
		},
		Schema{
			Name:       "Header",
			Positional: []string{"name", "value"},
			Parameters: map[string]ParameterSpec{
				"name":  {Type: StringType, Required: true, Validator: validateNotEmpty},
				"value": {Type: StringType, Required: true},
			},
			Examples: []string{`@Header("Cache-Control", "no-store")`},
		},
		Schema{
			Name:       "Redirect",
			Positional: []string{"url", "status"},
			Parameters: map[string]ParameterSpec{
				"url":    {Type: StringType, Required: true, Validator: validateNotEmpty},
				"status": {Type: IntType, Validator: validateStatus(300, 308)},
			},
			Examples: []string{`@Redirect("/login")`, `@Redirect("/moved", 301)`},
		},
		Schema{
			Name:       "View",
			Positional: []string{"name"},
			Parameters: map[string]ParameterSpec{
				"name": {Type: StringType, Required: true, Validator: validateNotEmpty},
			},
			Examples: []string{`@View("users/show")`},
		},
		flagSchema("Json", "Ends the response as JSON"),
		flagSchema("Raw", "Ends the response with the raw result"),
		flagSchema("Text", "Ends the response as plain text"),
		Schema{
			Name:       "OnUndefined",
			Positional: []string{"status"},
			Parameters: map[string]ParameterSpec{
				"status": {Type: AnyType, Required: true},
			},
			Examples: []string{"@OnUndefined(404)"},
		},
		Schema{
			Name:       "OnNull",
			Positional: []string{"status"},
			Parameters: map[string]ParameterSpec{
				"status": {Type: AnyType, Required: true},
			},
			Examples: []string{"@OnNull(204)"},
		},
		Schema{
			Name:       "SSE",
			Positional: []string{"retry"},
			Parameters: map[string]ParameterSpec{
				"retry": {Type: IntType, DefaultValue: 0, Description: "Reconnect delay in milliseconds sent on error"},
			},
			Examples: []string{"@SSE", "@SSE(5000)"},
		},
	)
	return out
}
