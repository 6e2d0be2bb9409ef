package render

import (
	"errors"
	"html"
	"strings"

	"github.com/mk12/zendown/internal/macro"
	"github.com/mk12/zendown/internal/project"
)

// Describe splits err into the kind and detail shown in an error marker.
func Describe(err error) (kind, info string) {
	var re *project.ResolveError
	if errors.As(err, &re) {
		return re.Err.Error(), re.Target
	}
	var me *macro.Error
	if errors.As(err, &me) {
		if errors.Is(me.Err, macro.ErrUndefined) {
			return macro.ErrUndefined.Error(), me.Name
		}
		return "macro error", me.Error()
	}
	return "error", err.Error()
}

// Marker returns the HTML shown in place of content that failed to render.
func Marker(kind, info string) string {
	return `<span class="error">` + html.EscapeString("�"+strings.ToUpper(kind)+": "+info+"�") + "</span>"
}
