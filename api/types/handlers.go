package types

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/killallgit/speech-coach/pkg/errors"
	"github.com/killallgit/speech-coach/pkg/logger"
)

// Pagination bounds shared by list endpoints
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// BindJSONOrError attempts to bind JSON request body to target struct
// Returns false and sends error response if binding fails
func BindJSONOrError(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Status:  StatusError,
			Message: "Invalid request body",
			Error:   string(apperrors.ErrCodeValidation),
			Details: err.Error(),
		})
		return false
	}
	return true
}

// ParsePagination reads limit and offset query parameters. Invalid values
// send a 400 and return false.
func ParsePagination(c *gin.Context) (limit, offset int, ok bool) {
	limit = DefaultPageSize
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			SendBadRequest(c, "limit must be a positive integer")
			return 0, 0, false
		}
		limit = v
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if raw := c.Query("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			SendBadRequest(c, "offset must be a non-negative integer")
			return 0, 0, false
		}
		offset = v
	}
	return limit, offset, true
}

// SendError writes err using the HTTP status and code carried by an
// AppError. Anything else is a 500.
func SendError(c *gin.Context, err error) {
	status := apperrors.GetHTTPCode(err)
	if status >= http.StatusInternalServerError {
		logger.WithComponent("api").WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
	}
	resp := ErrorResponse{
		Status:  StatusError,
		Message: apperrors.UserMessage(err),
		Error:   string(apperrors.GetCode(err)),
	}
	if details := apperrors.GetDetails(err); len(details) > 0 {
		resp.Details = details
	}
	c.JSON(status, resp)
}

// SendBadRequest sends a standardized bad request response
func SendBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Status: StatusError, Message: message, Error: string(apperrors.ErrCodeValidation)})
}

// SendNotFound sends a standardized not found response
func SendNotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Status: StatusError, Message: message, Error: string(apperrors.ErrCodeNotFound)})
}

// SendServiceUnavailable is used when a handler's backing service is not wired
func SendServiceUnavailable(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{Status: StatusError, Message: message})
}

// SendSuccess sends a standardized success response with data
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// SendCreated sends a standardized created response with data
func SendCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// SendAccepted is used for requests whose work continues in the background
func SendAccepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, data)
}
