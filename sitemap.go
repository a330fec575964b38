package promptgallery

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/promptgallery/catalog"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

const sitemapDate = "2006-01-02"

func (a *App) renderSitemap(c echo.Context, prompts []catalog.Prompt, posts []catalog.BlogPost) error {
	base := a.Config.URL
	urls := []sitemapURL{
		{Loc: BuildURL(base)},
		{Loc: BuildURL(base, "blog")},
	}
	for _, p := range prompts {
		urls = append(urls, sitemapURL{
			Loc:     BuildURL(base, "images", p.Slug),
			LastMod: p.CreatedAt.UTC().Format(sitemapDate),
		})
	}
	for _, b := range posts {
		urls = append(urls, sitemapURL{
			Loc:     BuildURL(base, "blog", b.Slug),
			LastMod: b.UpdatedAt.UTC().Format(sitemapDate),
		})
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
