// Package templates embeds the HTML views and builds the Fiber view engine.
package templates

import (
	"embed"
	"html/template"
	"net/http"
	"strings"

	"mailbutler/utils"

	"github.com/gofiber/template/html/v2"
)

//go:embed layouts/*.html *.html
var FS embed.FS

// NewEngine returns the view engine over the embedded templates. With reload
// set the templates are parsed again on every render.
func NewEngine(reload bool) *html.Engine {
	engine := html.NewFileSystem(http.FS(FS), ".html")

	engine.AddFunc("join", strings.Join)
	engine.AddFunc("lower", strings.ToLower)

	// i18n functions take the request language explicitly
	engine.AddFunc("t", func(lang, messageID string) string {
		return utils.T(utils.GetLocalizer(lang), messageID)
	})
	engine.AddFunc("tPlural", func(lang, messageID string, count int) string {
		return utils.TPlural(utils.GetLocalizer(lang), messageID, count)
	})

	// safeHTML renders sanitized rich content
	engine.AddFunc("safeHTML", func(content string) template.HTML {
		return template.HTML(utils.SanitizeHTML(content))
	})

	engine.Reload(reload)
	return engine
}
