package landing

import (
	"context"
	"embed"
	"html/template"
	"net/http"

	"github.com/akeren/raine-waitlist/config/router"
	"github.com/akeren/raine-waitlist/domain/waitlist"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/*.html
var templatesFS embed.FS

const pageTemplate = "landing.html"

// StatsProvider is the part of the waitlist service the page reads from.
type StatsProvider interface {
	Stats(ctx context.Context, appSlug string) *waitlist.WaitlistStats
}

type Config struct {
	AppSlug      string
	WaitlistMode bool
	SubmitPath   string
}

// PageData is what landing.html renders.
type PageData struct {
	AppSlug       string
	WaitlistMode  bool
	SubmitPath    string
	TotalEntries  int64
	RecentEntries int64
	TotalLabel    string
	RecentLabel   string
}

func ParseTemplates() (*template.Template, error) {
	return template.New("").ParseFS(templatesFS, "templates/*.html")
}

func NewLandingController(stats StatsProvider, cfg Config) *router.RESTController {
	if cfg.SubmitPath == "" {
		cfg.SubmitPath = "/v1/waitlist"
	}
	tmpl := template.Must(ParseTemplates())
	printer := message.NewPrinter(language.English)

	return router.NewRESTController(
		"LandingController",
		"/",
		func(rs *router.RouterService, c *router.RESTController) {
			rs.SetHTMLTemplate(tmpl)
			rs.AddGetHandler(c, nil, "", func(ctx *router.RequestContext) *router.ServiceResult {
				return router.HTMLResult(http.StatusOK, pageTemplate, buildPageData(ctx.Request.Context(), stats, cfg, printer))
			})
		},
	)
}

func buildPageData(ctx context.Context, stats StatsProvider, cfg Config, printer *message.Printer) PageData {
	data := PageData{
		AppSlug:      cfg.AppSlug,
		WaitlistMode: cfg.WaitlistMode,
		SubmitPath:   cfg.SubmitPath,
	}

	if cfg.WaitlistMode && stats != nil {
		if s := stats.Stats(ctx, cfg.AppSlug); s != nil {
			data.TotalEntries = s.TotalEntries
			data.RecentEntries = s.RecentEntries
		}
	}

	data.TotalLabel = printer.Sprintf("%d", data.TotalEntries)
	data.RecentLabel = printer.Sprintf("%d", data.RecentEntries)
	return data
}
