package graph

import (
	"net/http"

	"github.com/gin-gonic/gin"
	graphql "github.com/graph-gophers/graphql-go"
)

// Request is the JSON body of a GraphQL POST.
type Request struct {
	Query         string                 `json:"query" binding:"required"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// Handler serves POST /graphql. The caller, if any, must already be on the
// request context. GraphQL errors travel in the response body with status 200.
func Handler(schema *graphql.Schema) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid GraphQL request"})
			return
		}
		resp := schema.Exec(c.Request.Context(), req.Query, req.OperationName, req.Variables)
		c.JSON(http.StatusOK, resp)
	}
}
