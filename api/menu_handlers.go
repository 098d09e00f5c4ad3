package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"menu-admin/logger"
	"menu-admin/models"
	"menu-admin/services"
	"menu-admin/validation"
)

// MenuRepository is the menu service as the HTTP layer sees it.
type MenuRepository interface {
	Ping(ctx context.Context) error
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListItems(ctx context.Context) ([]models.MenuItem, error)
	CreateItem(ctx context.Context, in models.MenuItemInput) (*models.MenuItem, error)
	UpdateItem(ctx context.Context, id int64, in models.MenuItemInput) (*models.MenuItem, error)
	SetAvailability(ctx context.Context, id int64, available bool) (*models.MenuItem, error)
}

type menuHandler struct {
	menu MenuRepository
}

func (h *menuHandler) health(c *gin.Context) {
	if err := h.menu.Ping(c.Request.Context()); err != nil {
		logger.FromContext(c.Request.Context()).Error("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *menuHandler) listCategories(c *gin.Context) {
	cats, err := h.menu.ListCategories(c.Request.Context())
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("fetch categories failed", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": cats})
}

func (h *menuHandler) listItems(c *gin.Context) {
	items, err := h.menu.ListItems(c.Request.Context())
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("fetch menu items failed", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch menu items"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"menuItems": items})
}

func (h *menuHandler) createItem(c *gin.Context) {
	var in models.MenuItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	item, err := h.menu.CreateItem(c.Request.Context(), in)
	if err != nil {
		writeError(c, err, "Failed to create menu item")
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *menuHandler) updateItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	var in models.MenuItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	item, err := h.menu.UpdateItem(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err, "Failed to update menu item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item updated successfully", "menuItem": item})
}

type availabilityRequest struct {
	IsAvailable *bool `json:"is_available" binding:"required"`
}

func (h *menuHandler) setAvailability(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "is_available is required"})
		return
	}
	item, err := h.menu.SetAvailability(c.Request.Context(), id, *req.IsAvailable)
	if err != nil {
		writeError(c, err, "Failed to update menu item")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item updated successfully", "menuItem": item})
}

// itemID parses :id. Ids that can never exist are reported as not found.
func itemID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Menu item not found"})
		return 0, false
	}
	return id, true
}

// writeError maps the service error taxonomy onto HTTP. Store details are
// logged, never returned.
func writeError(c *gin.Context, err error, fallback string) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  validationMessage(ve.Fields),
			"fields": ve.Fields,
		})
	case errors.Is(err, services.ErrConstraint):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  "Category does not exist",
			"fields": validation.Violations{validation.FieldCategoryID: validation.RequiredField},
		})
	case errors.Is(err, services.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Menu item not found"})
	default:
		logger.FromContext(c.Request.Context()).Error(fallback, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// validationMessage picks a stable first message so clients get a readable
// summary alongside the field map.
func validationMessage(v validation.Violations) string {
	for _, f := range []string{validation.FieldName, validation.FieldPrice, validation.FieldCategoryID, validation.FieldImageURL, validation.FieldDescription} {
		if r, ok := v[f]; ok {
			return validation.Message(f, r)
		}
	}
	return "Invalid menu item"
}
