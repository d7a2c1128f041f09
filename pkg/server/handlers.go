package server

import (
	"net/http"

	"github.com/animalet/envtoken-go/pkg/config"
	"github.com/animalet/envtoken-go/pkg/tokens"
	"github.com/gin-gonic/gin"
)

type handlers struct {
	engine     *tokens.Engine
	properties config.Properties
}

// substituteRequest carries either text or a local/managed pair.
type substituteRequest struct {
	Text    *string `json:"text"`
	Local   *string `json:"local"`
	Managed *string `json:"managed"`
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) environment(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"environment": h.engine.Environment(),
		"connection":  h.engine.Connection(),
	})
}

func (h *handlers) tokens(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Tokens())
}

func (h *handlers) resolvedProperties(c *gin.Context) {
	c.JSON(http.StatusOK, h.properties.Resolve(h.engine))
}

func (h *handlers) substitute(c *gin.Context) {
	var req substituteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	switch {
	case req.Text != nil:
		c.JSON(http.StatusOK, gin.H{"result": h.engine.Substitute(*req.Text)})
	case req.Local != nil || req.Managed != nil:
		result, ok := h.engine.SelectAndSubstitute(req.Local, req.Managed)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no value for this environment"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": result})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "either text or local/managed is required"})
	}
}
