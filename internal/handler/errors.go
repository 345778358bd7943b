package handler

import (
	"backend/internal/apierror"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// abortWithError maps a service error onto the response envelope using the
// status code carried by its error kind.
func abortWithError(c *gin.Context, err error) {
	status := apierror.Status(err)
	c.JSON(status, response.Error(status, err.Error()))
}
