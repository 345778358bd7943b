package handler

import (
	"net/http"

	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type MeasurementConfigHandler struct {
	configService service.MeasurementConfigService
}

func NewMeasurementConfigHandler(configService service.MeasurementConfigService) *MeasurementConfigHandler {
	return &MeasurementConfigHandler{configService: configService}
}

func (h *MeasurementConfigHandler) RegisterRoutes(router *gin.RouterGroup) {
	configs := router.Group("/api/measurement-configs")
	{
		configs.GET("", h.ListConfigs)
		configs.POST("", h.CreateConfig)
		configs.PUT("/:garmentType", h.UpdateConfig)
		configs.DELETE("/:garmentType", h.DeleteConfig)
	}
}

// ListConfigs returns all measurement templates
// @Summary      List measurement configs
// @Tags         measurement-configs
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.MeasurementConfigResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/measurement-configs [get]
func (h *MeasurementConfigHandler) ListConfigs(c *gin.Context) {
	configs, err := h.configService.List(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, configs))
}

// CreateConfig creates a measurement template for a garment type
// @Summary      Create measurement config
// @Tags         measurement-configs
// @Accept       json
// @Produce      json
// @Param        payload  body      service.MeasurementConfigRequest  true  "Config Payload"
// @Success      201      {object}  response.Response{data=service.MeasurementConfigResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/measurement-configs [post]
func (h *MeasurementConfigHandler) CreateConfig(c *gin.Context) {
	var req service.MeasurementConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	config, err := h.configService.Create(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, config))
}

// UpdateConfig replaces the measurement fields of a garment type
// @Summary      Update measurement config
// @Tags         measurement-configs
// @Accept       json
// @Produce      json
// @Param        garmentType  path      string  true  "Garment Type"
// @Param        payload      body      object  true  "Fields Payload"
// @Success      200          {object}  response.Response{data=service.MeasurementConfigResponse}
// @Failure      404          {object}  response.Response
// @Router       /api/measurement-configs/{garmentType} [put]
func (h *MeasurementConfigHandler) UpdateConfig(c *gin.Context) {
	var req struct {
		Fields []model.ConfigField `json:"measurements"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	config, err := h.configService.Update(c.Request.Context(), c.Param("garmentType"), req.Fields)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, config))
}

// DeleteConfig removes a measurement template
// @Summary      Delete measurement config
// @Tags         measurement-configs
// @Produce      json
// @Param        garmentType  path      string  true  "Garment Type"
// @Success      200          {object}  response.Response
// @Failure      404          {object}  response.Response
// @Router       /api/measurement-configs/{garmentType} [delete]
func (h *MeasurementConfigHandler) DeleteConfig(c *gin.Context) {
	if err := h.configService.Delete(c.Request.Context(), c.Param("garmentType")); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}
