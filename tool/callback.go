package tool

import "github.com/gin-gonic/gin"

// FastReturnError is the JSON body of a failed API call.
func FastReturnError(msg string) gin.H {
	return gin.H{"status": "error", "error": msg}
}

// FastReturnSuccessWithData wraps a list or record returned by the status API.
func FastReturnSuccessWithData(data any) gin.H {
	return gin.H{"status": "ok", "data": data}
}
