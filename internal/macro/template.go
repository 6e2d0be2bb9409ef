package macro

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark/ast"

	"github.com/mk12/zendown/internal/project"
	"github.com/mk12/zendown/internal/zfm"
)

// templateData is the dot of a project macro template.
type templateData struct {
	Arg     string
	Body    template.HTML
	Article string
	Project string
}

var templateFuncs = template.FuncMap{
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"slug":  zfm.Slugify,
	"smart": zfm.Smartify,
}

// registerTemplate registers a macro declared in the project config. Inline
// macros take an argument; block macros take an argument and a body.
func registerTemplate(r *Registry, name string, def project.MacroDef) error {
	kind, err := ParseKind(def.Kind)
	if err != nil {
		return fmt.Errorf("macro %s: %w", name, err)
	}
	tmpl, err := template.New(name).Funcs(templateFuncs).Parse(def.Template)
	if err != nil {
		return fmt.Errorf("macro %s: %w", name, err)
	}
	run := func(ctx *Context, arg string, children []ast.Node) (string, error) {
		data := templateData{Arg: arg, Project: ctx.Project.Name()}
		if ctx.Article != nil {
			data.Article = ctx.Article.Title()
		}
		if len(children) > 0 {
			body, err := ctx.Render(children...)
			if err != nil {
				return "", err
			}
			data.Body = template.HTML(body)
		}
		var b strings.Builder
		if err := tmpl.Execute(&b, data); err != nil {
			return "", err
		}
		return b.String(), nil
	}
	if kind == Inline {
		return r.Register(name, kind, func(ctx *Context, arg string) (string, error) {
			return run(ctx, arg, nil)
		})
	}
	return r.Register(name, kind, FullFunc(run))
}
