package httpapi

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the /v1 endpoints on rg.
//
//	GET  /v1/parameters        current serving vector
//	POST /v1/evolve            run one evolution pass
//	POST /v1/engagement        submit an engagement observation
//	GET  /v1/generations       generation history, newest first
//	GET  /v1/generations/:id   one full generation record
//
// write is applied to the POST routes only.
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers, write ...gin.HandlerFunc) {
	rg.GET("/parameters", h.HandleParameters)
	rg.GET("/generations", h.HandleListGenerations)
	rg.GET("/generations/:id", h.HandleGetGeneration)

	writes := rg.Group("", write...)
	writes.POST("/evolve", h.HandleEvolve)
	writes.POST("/engagement", h.HandleEngagement)
}
