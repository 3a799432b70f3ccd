package apicall

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Source is the part of an HTTP request carrying a value.
type Source int

const (
	// SourceAuto means no explicit annotation; the classifier decides.
	SourceAuto Source = iota
	SourceRoute
	SourceQuery
	SourceForm
	SourceHeader
	SourceBody
)

func (s Source) String() string {
	switch s {
	case SourceAuto:
		return "auto"
	case SourceRoute:
		return "route"
	case SourceQuery:
		return "query"
	case SourceForm:
		return "form"
	case SourceHeader:
		return "header"
	case SourceBody:
		return "body"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

const controllerSuffix = "Controller"

// Controller groups actions under a common route prefix.
type Controller struct {
	// Name of the server-side type, e.g. "AccountsController".
	Name string `validate:"required"`

	// Controller-level route template, e.g. "api/[controller]". May be empty.
	Route string
}

// ResourceName returns the controller name without the "Controller" suffix.
func (c *Controller) ResourceName() string {
	return strings.TrimSuffix(c.Name, controllerSuffix)
}

// Action describes one server-side handler method.
type Action struct {
	Controller *Controller `validate:"required"`

	// Name of the handler method. Substituted for the [action] token.
	Name string `validate:"required"`

	// HTTP method.
	Method string `validate:"required,oneof=GET POST PUT PATCH DELETE"`

	// Action-level route template. A leading "/" discards the controller route.
	Route string

	// Declared parameters, in the order arguments are passed.
	Params []Param `validate:"dive"`

	// Declared return shape. The zero Shape expects no payload.
	Returns Shape
}

// Key is the name under which the action is called: "Resource.Action".
func (a *Action) Key() string {
	return a.Controller.ResourceName() + "." + a.Name
}

// Param is the declared metadata of one action argument.
type Param struct {
	// Name of the argument on the server side.
	Name string `validate:"required"`

	// Explicit binding source. SourceAuto lets the classifier decide.
	From Source `validate:"gte=0,lte=5"`

	// Wire name overriding Name, like a Name property of a binding annotation.
	As string

	// Declared type. If nil, the dynamic type of the argument is used.
	Type reflect.Type
}

func (p Param) wireName() string {
	if p.As != "" {
		return p.As
	}
	return p.Name
}

// CallDescriptor is one invocation of an action.
type CallDescriptor struct {
	// Method is the action key, "Resource.Action".
	Method string

	// Args are the argument values, matched with Action.Params by position.
	Args []any

	// Returns overrides the action's declared shape if set.
	Returns *Shape
}

var validate = validator.New()

// validateAction panics if the action table entry is malformed.
func validateAction(a *Action) {
	if a == nil {
		panic("nil action in the table of actions")
	}
	if err := validate.Struct(a); err != nil {
		panic(fmt.Sprintf("invalid action %q: %v", a.Name, err))
	}
	if !carriesBody(a.Method) {
		for _, p := range a.Params {
			if p.From == SourceBody || p.From == SourceForm {
				panic(fmt.Sprintf("action %s: parameter %s is bound to %s, but %s requests have no body", a.Key(), p.Name, p.From, a.Method))
			}
		}
	}
}

func carriesBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}
