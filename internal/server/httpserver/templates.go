package httpserver

import (
	"embed"
	"html/template"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Template names as registered with gin.
const (
	tmplHome     = "home.tmpl"
	tmplLogin    = "login.tmpl"
	tmplRegister = "register.tmpl"
	tmplSecrets  = "secrets.tmpl"
	tmplSubmit   = "submit.tmpl"
	tmplError    = "error.tmpl"
)

func loadTemplates() (*template.Template, error) {
	return template.New("").ParseFS(templatesFS, "templates/*.tmpl")
}
