package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/SanteonNL/natours/apiquery"
	"github.com/SanteonNL/natours/cmd/natours/datasource"
	"github.com/SanteonNL/natours/models/tour"
	"github.com/rs/zerolog/hlog"
)

const (
	statusSuccess = "success"
	statusFail    = "fail"
	statusError   = "error"
)

// envelope is a JSend response body.
type envelope struct {
	Status      string `json:"status"`
	RequestedAt string `json:"requestedAt,omitempty"`
	Results     *int   `json:"results,omitempty"`
	Message     string `json:"message,omitempty"`
	Data        any    `json:"data,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondWithFail(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, envelope{Status: statusFail, Message: message})
}

// respondWithError maps err onto a status code. Internal details are only
// shown in development.
func (tr *TourRouter) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status < http.StatusInternalServerError {
		hlog.FromRequest(r).Debug().Err(err).Int("status", status).Msg("Request failed")
		respondWithFail(w, status, err.Error())
		return
	}

	hlog.FromRequest(r).Error().Err(err).Msg("Request failed")
	message := "Something went very wrong!"
	if tr.development {
		message = err.Error()
	}
	respondWithJSON(w, status, envelope{Status: statusError, Message: message})
}

func statusFor(err error) int {
	var (
		validation *tour.ValidationError
		tooLarge   *http.MaxBytesError
		syntax     *json.SyntaxError
		typeErr    *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, datasource.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case apiquery.IsClientError(err),
		errors.Is(err, apiquery.ErrMixedProjection),
		errors.Is(err, tour.ErrCast),
		errors.Is(err, datasource.ErrDuplicate),
		errors.Is(err, errInvalidBody),
		errors.As(err, &validation),
		errors.As(err, &syntax),
		errors.As(err, &typeErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
