package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"transit_editor/internal/editor"
	"transit_editor/internal/models"
	"transit_editor/internal/surface"
)

// StopFinder answers the search boxes of the editor.
type StopFinder interface {
	SearchStops(ctx context.Context, q string) ([]models.StopPayload, error)
	NearbyStops(ctx context.Context, at models.LatLng, radius float64) ([]models.StopPayload, error)
}

// EditorController exposes one editing session to the browser map widget.
type EditorController struct {
	Editor *editor.Editor
	Layers *surface.Layers
	Finder StopFinder

	// DefaultColor is used for new routes opened without a color.
	DefaultColor string
}

func NewEditorController(e *editor.Editor, layers *surface.Layers, finder StopFinder) *EditorController {
	return &EditorController{Editor: e, Layers: layers, Finder: finder}
}

// writeEditorError maps editor errors to HTTP statuses. Backend rejections
// keep the backend's message.
func writeEditorError(c *gin.Context, err error) {
	var apiErr *models.APIError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &apiErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Message, "status": apiErr.Status})
		return
	case errors.Is(err, editor.ErrOutOfRange):
		status = http.StatusNotFound
	case errors.Is(err, editor.ErrInvalidRoute), errors.Is(err, editor.ErrInvalidStop),
		errors.Is(err, editor.ErrStopNotPlaced), errors.Is(err, editor.ErrUnresolvedStop):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, editor.ErrNoSession), errors.Is(err, editor.ErrWrongSession),
		errors.Is(err, editor.ErrSessionOpen), errors.Is(err, editor.ErrSessionClosed),
		errors.Is(err, editor.ErrSaveInFlight), errors.Is(err, editor.ErrBusy),
		errors.Is(err, editor.ErrNoEditingRoute), errors.Is(err, editor.ErrPathPending):
		status = http.StatusConflict
	default:
		logrus.WithError(err).Error("editor request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func position(c *gin.Context) (int, bool) {
	pos, err := strconv.Atoi(c.Param("pos"))
	if err != nil || pos < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid position"})
		return 0, false
	}
	return pos, true
}

func (ec *EditorController) State(c *gin.Context) {
	c.JSON(http.StatusOK, ec.Editor.State())
}

func (ec *EditorController) StopLayer(c *gin.Context) {
	c.Header("X-Layers-Version", strconv.FormatUint(ec.Layers.Version(), 10))
	c.JSON(http.StatusOK, ec.Layers.Markers())
}

func (ec *EditorController) PathLayer(c *gin.Context) {
	c.Header("X-Layers-Version", strconv.FormatUint(ec.Layers.Version(), 10))
	c.JSON(http.StatusOK, ec.Layers.Paths())
}

func (ec *EditorController) Load(c *gin.Context) {
	if err := ec.Editor.Load(c.Request.Context()); err != nil {
		writeEditorError(c, err)
		return
	}
	c.JSON(http.StatusOK, ec.Editor.State())
}

func (ec *EditorController) OpenNewStop(c *gin.Context) {
	s, err := ec.Editor.OpenNewStop()
	if err != nil {
		writeEditorError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": s, "mode": ec.Editor.Mode()})
}

func (ec *EditorController) OpenEditStop(c *gin.Context) {
	pos, ok := position(c)
	if !ok {
		return
	}
	s, err := ec.Editor.OpenEditStop(editor.StopPosition(pos))
	if err != nil {
		writeEditorError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": s, "mode": ec.Editor.Mode()})
}

func (ec *EditorController) OpenNewRoute(c *gin.Context) {
	var input struct {
		Color string `json:"color" binding:"omitempty,hexcolor"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
	}
	if input.Color == "" {
		input.Color = ec.DefaultColor
	}
	s, err := ec.Editor.OpenNewRoute(input.Color)
	if err != nil {
		writeEditorError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": s, "mode": ec.Editor.Mode()})
}

func (ec *EditorController) OpenEditRoute(c *gin.Context) {
	pos, ok := position(c)
	if !ok {
		return
	}
	s, err := ec.Editor.OpenEditRoute(editor.RoutePosition(pos))
	if err != nil {
		writeEditorError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": s, "mode": ec.Editor.Mode()})
}

func (ec *EditorController) UpdateStopDraft(c *gin.Context) {
	var draft editor.StopDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if err := ec.Editor.UpdateStopDraft(draft); err != nil {
		writeEditorError(c, err)
		return
	}
	c.JSON(http.StatusOK, ec.Editor.State())
}

func (ec *EditorController) UpdateRouteDraft(c *gin.Context) {
	var draft editor.RouteDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if err := ec.Editor.UpdateRouteDraft(draft); err != nil {
		writeEditorError(c, err)
		return
	}
	c.JSON(http.StatusOK, ec.Editor.State())
}

func (ec *EditorController) RemoveStopFromRoute(c *gin.Context) {
	pos, ok := position(c)
	if !ok {
		return
	}
	if err := ec.Editor.RemoveStopFromRoute(editor.StopPosition(pos)); err != nil {
		writeEditorError(c, err)
		return
	}
	c.JSON(http.StatusOK, ec.Editor.State())
}

func (ec *EditorController) Save(c *gin.Context) {
	if err := ec.Editor.Save(c.Request.Context()); err != nil {
		writeEditorError(c, err)
		return
	}
	c.JSON(http.StatusOK, ec.Editor.State())
}

func (ec *EditorController) Cancel(c *gin.Context) {
	if err := ec.Editor.Cancel(); err != nil {
		writeEditorError(c, err)
		return
	}
	c.JSON(http.StatusOK, ec.Editor.State())
}

func (ec *EditorController) Click(c *gin.Context) {
	ev := editor.ClickEvent{Stop: editor.NoStop}
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	outcome := ec.Editor.HandleClick(ev)
	c.JSON(http.StatusOK, gin.H{"outcome": outcome, "mode": ec.Editor.Mode()})
}

func (ec *EditorController) Drag(c *gin.Context) {
	var ev editor.DragEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"moved": ec.Editor.HandleDrag(ev)})
}

func (ec *EditorController) DeleteStop(c *gin.Context) {
	pos, ok := position(c)
	if !ok {
		return
	}
	if err := ec.Editor.DeleteStop(c.Request.Context(), editor.StopPosition(pos)); err != nil {
		writeEditorError(c, err)
		return
	}
	c.JSON(http.StatusOK, ec.Editor.State())
}

func (ec *EditorController) DeleteRoute(c *gin.Context) {
	pos, ok := position(c)
	if !ok {
		return
	}
	if err := ec.Editor.DeleteRoute(c.Request.Context(), editor.RoutePosition(pos)); err != nil {
		writeEditorError(c, err)
		return
	}
	c.JSON(http.StatusOK, ec.Editor.State())
}

func (ec *EditorController) SearchStops(c *gin.Context) {
	stops, err := ec.Finder.SearchStops(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeEditorError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stops": stops})
}

func (ec *EditorController) NearbyStops(c *gin.Context) {
	q, err := parseNearby(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	stops, err := ec.Finder.NearbyStops(c.Request.Context(), models.LatLng{Lat: q.Lat, Lng: q.Lon}, q.Radius)
	if err != nil {
		writeEditorError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stops": stops})
}
