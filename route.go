package apicall

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	controllerToken = "[controller]"
	actionToken     = "[action]"
)

var placeholderRe = regexp.MustCompile(`\{([^{}]+)\}`)

// StripConstraints removes constraints ("{id:guid}"), optional markers
// ("{id?}") and catch-all stars ("{*path}") from every placeholder.
func StripConstraints(template string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		return "{" + placeholderName(m) + "}"
	})
}

func placeholderName(m string) string {
	name := m[1 : len(m)-1]
	if i := strings.IndexByte(name, ':'); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSuffix(name, "?")
	name = strings.TrimLeft(name, "*")
	if i := strings.IndexByte(name, '='); i >= 0 {
		name = name[:i]
	}
	return name
}

// joinTemplates combines controller and action templates. An action
// template starting with "/" (or "~/") replaces the controller template.
func joinTemplates(controller, action string) string {
	if strings.HasPrefix(action, "/") || strings.HasPrefix(action, "~/") {
		return strings.TrimLeft(strings.TrimPrefix(action, "~"), "/")
	}
	controller = strings.Trim(controller, "/")
	switch {
	case controller == "":
		return action
	case action == "":
		return controller
	}
	return controller + "/" + action
}

// routeTemplate returns the template of an action with tokens replaced and
// constraints removed.
func routeTemplate(a *Action) string {
	template := joinTemplates(a.Controller.Route, a.Route)
	template = strings.ReplaceAll(template, controllerToken, a.Controller.ResourceName())
	template = strings.ReplaceAll(template, actionToken, a.Name)
	return StripConstraints(template)
}

// resolveRoute substitutes bound values into the placeholders of the
// action route. Used parameters are marked consumed. Placeholders without
// a value are left as is; see unresolvedPlaceholders.
func resolveRoute(a *Action, params []*BoundParameter) string {
	return substitute(routeTemplate(a), params)
}

func substitute(template string, params []*BoundParameter) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		p := findRouteValue(params, placeholderName(m))
		if p == nil {
			return m
		}
		text, ok := formatScalar(p.Value)
		if !ok {
			return m
		}
		p.Consumed = true
		return url.PathEscape(text)
	})
}

// findRouteValue finds an unconsumed non-nil value for a placeholder.
// Header and body values never fill route placeholders.
func findRouteValue(params []*BoundParameter, name string) *BoundParameter {
	for _, p := range params {
		if p.Name != name || p.Consumed || isNil(p.Value) {
			continue
		}
		if p.Source == SourceHeader || p.Source == SourceBody {
			continue
		}
		return p
	}
	return nil
}

func unresolvedPlaceholders(path string) []string {
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(path, -1) {
		names = append(names, m[1])
	}
	return names
}
