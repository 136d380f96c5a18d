package cli

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/toyz/nem/pkg/nem"
)

var methodColors = map[string]*color.Color{
	http.MethodGet:    color.New(color.FgGreen, color.Bold),
	http.MethodPost:   color.New(color.FgYellow, color.Bold),
	http.MethodPut:    color.New(color.FgBlue, color.Bold),
	http.MethodPatch:  color.New(color.FgCyan, color.Bold),
	http.MethodDelete: color.New(color.FgRed, color.Bold),
}

// PrintRoutes writes the route table, one route per line:
//
//	GET     /star-wars/:id   JSONController.Show   [session]
func PrintRoutes(w io.Writer, routes []nem.RouteInfo) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, r := range routes {
		method := fmt.Sprintf("%-7s", r.Method)
		if c, ok := methodColors[r.Method]; ok {
			method = c.Sprint(method)
		}
		handler := r.Handler
		if r.Controller != "" {
			handler = r.Controller + "." + r.Handler
		}
		middlewares := ""
		if len(r.Middlewares) > 0 {
			middlewares = color.New(color.Faint).Sprintf("[%s]", strings.Join(r.Middlewares, ", "))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", method, r.Path, handler, middlewares)
	}
	tw.Flush()
}
