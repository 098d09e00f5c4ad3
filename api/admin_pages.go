package api

import (
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"menu-admin/logger"
	"menu-admin/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

func loadTemplates() *template.Template {
	return template.Must(template.ParseFS(templatesFS, "templates/*.html"))
}

type adminPages struct {
	menu MenuRepository
}

func (p *adminPages) menuPage(c *gin.Context) {
	ctx := c.Request.Context()
	selected, _ := strconv.ParseInt(c.Query("category"), 10, 64)

	cats, err := p.menu.ListCategories(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("admin menu: categories", "error", err)
		c.HTML(http.StatusInternalServerError, "menu.html", gin.H{"Error": "Failed to load categories. Reload to retry."})
		return
	}
	items, err := p.menu.ListItems(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("admin menu: items", "error", err)
		c.HTML(http.StatusInternalServerError, "menu.html", gin.H{"Error": "Failed to load menu items. Reload to retry."})
		return
	}
	if selected > 0 {
		items = byCategory(items, selected)
	}
	c.HTML(http.StatusOK, "menu.html", gin.H{
		"Categories": cats,
		"Items":      items,
		"Selected":   selected,
		"Error":      c.Query("error"),
	})
}

func (p *adminPages) setAvailability(c *gin.Context) {
	back := "/admin/menu"
	if cat := c.PostForm("category"); cat != "" {
		back += "?category=" + url.QueryEscape(cat)
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	available, perr := strconv.ParseBool(c.PostForm("is_available"))
	if err != nil || perr != nil {
		c.Redirect(http.StatusSeeOther, withError(back, "Invalid request"))
		return
	}
	if _, err := p.menu.SetAvailability(c.Request.Context(), id, available); err != nil {
		logger.FromContext(c.Request.Context()).Warn("admin toggle failed", "id", id, "error", err)
		c.Redirect(http.StatusSeeOther, withError(back, "Failed to update menu item"))
		return
	}
	c.Redirect(http.StatusSeeOther, back)
}

func byCategory(items []models.MenuItem, categoryID int64) []models.MenuItem {
	out := make([]models.MenuItem, 0, len(items))
	for _, it := range items {
		if it.CategoryID == categoryID {
			out = append(out, it)
		}
	}
	return out
}

func withError(path, msg string) string {
	u, _ := url.Parse(path)
	q := u.Query()
	q.Set("error", msg)
	u.RawQuery = q.Encode()
	return u.String()
}
