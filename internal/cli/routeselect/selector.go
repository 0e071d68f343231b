package routeselect

import (
	"fmt"

	"github.com/manifoldco/promptui"

	"github.com/nidhal-dev/authfront/internal/router"
	"github.com/nidhal-dev/authfront/internal/session"
)

// Option is one entry in the route picker
type Option struct {
	Label string
	Route router.Route
}

// Options builds the picker entries. Routes the current session would be
// redirected away from are marked, but still listed.
func Options(r *router.Router, s session.Session) []Option {
	routes := r.Routes()
	options := make([]Option, 0, len(routes))
	for _, route := range routes {
		label := fmt.Sprintf("%s (%s)", route.Name, route.Path)
		if route.Guard != nil {
			to := router.Location{Name: route.Name, Path: route.Path}
			if d := route.Guard(s, to, r.Current()); !d.Allowed() {
				label += " [" + d.String() + "]"
			}
		}
		options = append(options, Option{Label: label, Route: route})
	}
	return options
}

// PromptRoute shows an interactive prompt for the user to pick a route
func PromptRoute(r *router.Router, s session.Session) (string, error) {
	options := Options(r, s)
	if len(options) == 0 {
		return "", fmt.Errorf("no routes configured")
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     "Open a page",
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("route selection cancelled: %w", err)
	}

	return options[index].Route.Name, nil
}
