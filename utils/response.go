package utils

import "github.com/gin-gonic/gin"

// Application error codes carried in the error envelope.
const (
	CodeBadRequest      = 4000
	CodeUnauthorized    = 4010
	CodeNotFound        = 4040
	CodeConflict        = 4090
	CodeUnprocessable   = 4220
	CodeCreationBusy    = 4221
	CodeTooManyRequests = 4290
	CodeInternal        = 5000
	CodeReconciliation  = 5001
)

// ErrorResponse is the uniform body of every failed request.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error writes the error envelope with the given HTTP status.
func Error(ctx *gin.Context, status int, code int, message string) {
	ctx.JSON(status, ErrorResponse{Code: code, Message: message})
}

// Abort writes the error envelope and stops the handler chain.
func Abort(ctx *gin.Context, status int, code int, message string) {
	ctx.AbortWithStatusJSON(status, ErrorResponse{Code: code, Message: message})
}
