package server

import (
	"errors"
	"net/http"

	"github.com/shineum/mailgate/internal/mailerr"
	"github.com/shineum/mailgate/internal/normalize"
)

func ping(w http.ResponseWriter, _ *http.Request) {
	respondText(w, http.StatusOK, "pong")
}

// sendMail handles POST .../sendmail for dialect d. Legacy clients get the
// message id as plain text; current clients get {"messageId": "..."}.
func (s *Server) sendMail(d normalize.Dialect) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, cleanup, err := normalize.ReadRequest(r, d, s.config.MaxMemory)
		defer cleanup()
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		s.log.DebugContext(r.Context(), "send request received", "dialect", d.Name, "request", req.String())

		id, err := s.gateway.Send(r.Context(), d, req)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		if d.Name == normalize.Legacy.Name {
			respondText(w, http.StatusOK, id)
			return
		}
		respondJSON(w, http.StatusOK, sendResponse{MessageID: id})
	}
}

type sendResponse struct {
	MessageID string `json:"messageId"`
}

// statusFor maps an error code to its HTTP status.
func statusFor(code mailerr.Code) int {
	switch code {
	case mailerr.CodeUnauthorized:
		return http.StatusUnauthorized
	case mailerr.CodeUnauthorizedSender:
		return http.StatusForbidden
	case mailerr.CodeInvalidContentType:
		return http.StatusUnsupportedMediaType
	case mailerr.CodeAttachmentTooLarge:
		return http.StatusRequestEntityTooLarge
	case mailerr.CodeProviderRejected:
		return http.StatusUnprocessableEntity
	case mailerr.CodeProviderDispatchError:
		return http.StatusBadGateway
	case mailerr.CodeAuthorizationUnavailable:
		return http.StatusServiceUnavailable
	case "":
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := mailerr.CodeOf(err)
	status := statusFor(code)
	message := err.Error()

	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		status = http.StatusRequestEntityTooLarge
	}
	if code == "" {
		s.log.ErrorContext(r.Context(), "unexpected error", "error", err)
		code = "InternalError"
		message = "internal server error"
	}

	respondJSON(w, status, errorResponse{Error: errorBody{Code: string(code), Message: message}})
}
