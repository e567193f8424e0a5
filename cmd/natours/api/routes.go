package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/SanteonNL/natours/apiquery"
	"github.com/SanteonNL/natours/cmd/natours/metrics"
	"github.com/SanteonNL/natours/cmd/natours/tours"
	"github.com/SanteonNL/natours/models/tour"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var errInvalidBody = errors.New("request body must be a JSON object")

type TourRouter struct {
	tourService *tours.TourService
	development bool
	log         zerolog.Logger
}

func NewTourRouter(tourService *tours.TourService, development bool, log zerolog.Logger) *TourRouter {
	return &TourRouter{
		tourService: tourService,
		development: development,
		log:         log.With().Str("component", "api").Logger(),
	}
}

func (tr *TourRouter) SetupRoutes() http.Handler {
	r := mux.NewRouter()

	r.Use(requestTime)
	r.Use(accessLog(tr.log))
	r.Use(tr.recoverer)
	r.Use(metrics.Middleware)
	r.Use(limitBody)

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	r.Handle("/api/v1/tours/top-5-cheap", aliasTopCheap(http.HandlerFunc(tr.handleGetAllTours))).Methods("GET")
	r.HandleFunc("/api/v1/tours", tr.handleGetAllTours).Methods("GET")
	r.HandleFunc("/api/v1/tours", tr.handleCreateTour).Methods("POST")
	r.HandleFunc("/api/v1/tours/{id}", tr.handleGetTour).Methods("GET")
	r.HandleFunc("/api/v1/tours/{id}", tr.handleUpdateTour).Methods("PATCH")
	r.HandleFunc("/api/v1/tours/{id}", tr.handleDeleteTour).Methods("DELETE")

	// mux skips r.Use middleware for unmatched requests
	r.NotFoundHandler = accessLog(tr.log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithFail(w, http.StatusNotFound, fmt.Sprintf("Can't find %s on this server!", r.URL.Path))
	}))
	r.MethodNotAllowedHandler = accessLog(tr.log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithFail(w, http.StatusMethodNotAllowed, fmt.Sprintf("%s is not allowed on %s", r.Method, r.URL.Path))
	}))

	return r
}

func (tr *TourRouter) handleGetAllTours(w http.ResponseWriter, r *http.Request) {
	params, err := apiquery.ParseQuery(r.URL.Query())
	if err != nil {
		tr.respondWithError(w, r, err)
		return
	}

	records, err := tr.tourService.List(r.Context(), params)
	if err != nil {
		tr.respondWithError(w, r, err)
		return
	}

	results := len(records)
	respondWithJSON(w, http.StatusOK, envelope{
		Status:      statusSuccess,
		RequestedAt: requestedAt(r).Format("2006-01-02T15:04:05.000Z07:00"),
		Results:     &results,
		Data:        map[string]any{"tours": records},
	})
}

func (tr *TourRouter) handleGetTour(w http.ResponseWriter, r *http.Request) {
	t, err := tr.tourService.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		tr.respondWithError(w, r, err)
		return
	}
	respondWithTour(w, http.StatusOK, t)
}

func (tr *TourRouter) handleCreateTour(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeDocument(r)
	if err != nil {
		tr.respondWithError(w, r, err)
		return
	}

	t, err := tr.tourService.Create(r.Context(), doc)
	if err != nil {
		tr.respondWithError(w, r, err)
		return
	}
	respondWithTour(w, http.StatusCreated, t)
}

func (tr *TourRouter) handleUpdateTour(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeDocument(r)
	if err != nil {
		tr.respondWithError(w, r, err)
		return
	}

	t, err := tr.tourService.Update(r.Context(), mux.Vars(r)["id"], doc)
	if err != nil {
		tr.respondWithError(w, r, err)
		return
	}
	respondWithTour(w, http.StatusOK, t)
}

func (tr *TourRouter) handleDeleteTour(w http.ResponseWriter, r *http.Request) {
	if err := tr.tourService.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		tr.respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondWithTour(w http.ResponseWriter, status int, t *tour.Tour) {
	respondWithJSON(w, status, envelope{
		Status: statusSuccess,
		Data:   map[string]any{"tour": t.Record()},
	})
}

func decodeDocument(r *http.Request) (tour.Document, error) {
	if r.Body == nil {
		return nil, errInvalidBody
	}
	var doc tour.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if doc == nil {
		return nil, errInvalidBody
	}
	return doc, nil
}
