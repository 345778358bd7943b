package handler

import (
	"net/http"

	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AppUpdateHandler struct {
	updateService service.AppUpdateService
}

func NewAppUpdateHandler(updateService service.AppUpdateService) *AppUpdateHandler {
	return &AppUpdateHandler{updateService: updateService}
}

func (h *AppUpdateHandler) RegisterRoutes(router *gin.RouterGroup) {
	updates := router.Group("/api/updates")
	{
		updates.POST("/versions", h.RegisterVersion)
		updates.GET("/check", h.CheckForUpdates)
		updates.GET("/download", h.Download)
	}
}

// RegisterVersion records a released build of the companion app
// @Summary      Register app version
// @Description  Registers a build; re-registering the same platform/component/version overwrites it
// @Tags         updates
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterVersionRequest  true  "Version Payload"
// @Success      201      {object}  response.Response{data=service.AppVersionResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/updates/versions [post]
func (h *AppUpdateHandler) RegisterVersion(c *gin.Context) {
	var req service.RegisterVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	version, err := h.updateService.RegisterVersion(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, version))
}

// CheckForUpdates returns releases newer than the caller's version
// @Summary      Check for updates
// @Tags         updates
// @Produce      json
// @Param        platform   query     string  true  "Platform (android, ios)"
// @Param        component  query     string  true  "Component name"
// @Param        version    query     string  true  "Currently installed version"
// @Success      200        {object}  response.Response{data=service.UpdateCheckResponse}
// @Failure      400        {object}  response.Response
// @Router       /api/updates/check [get]
func (h *AppUpdateHandler) CheckForUpdates(c *gin.Context) {
	result, err := h.updateService.CheckForUpdates(
		c.Request.Context(),
		c.Query("platform"),
		c.Query("component"),
		c.Query("version"),
	)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Download hands out a time-limited link to an update package
// @Summary      Get update download link
// @Tags         updates
// @Produce      json
// @Param        platform   query     string  true  "Platform"
// @Param        component  query     string  true  "Component name"
// @Param        version    query     string  true  "Version to download"
// @Success      200        {object}  response.Response{data=service.DownloadResponse}
// @Failure      400        {object}  response.Response
// @Router       /api/updates/download [get]
func (h *AppUpdateHandler) Download(c *gin.Context) {
	result, err := h.updateService.Download(
		c.Request.Context(),
		c.Query("platform"),
		c.Query("component"),
		c.Query("version"),
	)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
