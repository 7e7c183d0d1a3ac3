package response

import (
	"encoding/json"
	"net/http"

	"github.com/Varun5711/placeshare/internal/logger"
	"github.com/Varun5711/placeshare/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const genericMessage = "Something went wrong, please try again later."

// HTTPStatus maps an error code from the service layer to the response status.
func HTTPStatus(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.AlreadyExists, codes.FailedPrecondition:
		return http.StatusUnprocessableEntity
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error writes err as {"message": ...}. Errors that are not status errors, and
// every code that maps to 500, get a generic message; the detail is logged.
func Error(w http.ResponseWriter, log *logger.Logger, err error) {
	st, ok := status.FromError(err)
	if !ok {
		st = status.New(codes.Unknown, err.Error())
	}

	httpStatus := HTTPStatus(st.Code())
	message := st.Message()
	if httpStatus == http.StatusInternalServerError {
		log.Error("Request failed: %v", err)
		message = genericMessage
	}

	JSON(w, httpStatus, models.ErrorResponse{Message: message})
}
