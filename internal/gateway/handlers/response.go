package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type PaginationMeta struct {
	Page     int32 `json:"page"`
	PageSize int32 `json:"page_size"`
	Total    int64 `json:"total"`
}

func successResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func errorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
	}
}

func successWithMetaResponse(message string, data interface{}, meta interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	}
}

// --- Helper for handling gRPC errors ---
func handleGRPCError(c *gin.Context, err error) {
	if err != nil {
		if s, ok := status.FromError(err); ok {
			switch s.Code() {
			case codes.InvalidArgument:
				c.JSON(http.StatusBadRequest, errorResponse(s.Message()))
			case codes.NotFound:
				c.JSON(http.StatusNotFound, errorResponse(s.Message()))
			case codes.FailedPrecondition:
				c.JSON(http.StatusBadRequest, errorResponse(s.Message()))
			case codes.AlreadyExists:
				c.JSON(http.StatusConflict, errorResponse(s.Message()))
			case codes.Aborted:
				c.JSON(http.StatusConflict, errorResponse("Concurrent update, retry later: "+s.Message()))
			case codes.PermissionDenied:
				c.JSON(http.StatusForbidden, errorResponse(s.Message()))
			case codes.Unavailable:
				c.JSON(http.StatusServiceUnavailable, errorResponse("Ledger service unavailable"))
			case codes.DeadlineExceeded:
				c.JSON(http.StatusGatewayTimeout, errorResponse("Ledger service timed out"))
			default:
				c.JSON(http.StatusInternalServerError, errorResponse("Service error: "+s.Message()))
			}
		} else {
			c.JSON(http.StatusInternalServerError, errorResponse("Unknown service error"))
		}
		c.Abort()
	}
}
