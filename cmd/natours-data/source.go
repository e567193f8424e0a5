package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/SanteonNL/natours/cmd/natours/datasource"
	"github.com/SanteonNL/natours/models/tour"
	"github.com/SanteonNL/natours/util"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// tourSource reads dev-data tours from a local file or a URL.
type tourSource struct {
	retry *retryablehttp.Client
	log   zerolog.Logger
}

func newTourSource(log zerolog.Logger) *tourSource {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	log = log.With().Str("component", "source").Logger()
	retryClient.Logger = retryLogger{log: log}
	retryClient.HTTPClient = &http.Client{
		Timeout: 60 * time.Second,
	}
	return &tourSource{
		retry: retryClient,
		log:   log,
	}
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

func (s *tourSource) Read(ctx context.Context, location string) ([]*tour.Tour, error) {
	if !isURL(location) {
		path, err := util.GetAbsolutePath(location)
		if err != nil {
			return nil, err
		}
		s.log.Debug().Str("path", path).Msg("Reading tours from file")
		return datasource.ReadToursFile(path)
	}
	s.log.Debug().Str("url", location).Msg("Fetching tours")

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.retry.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: unexpected status %s", location, resp.Status)
	}
	return datasource.ReadTours(resp.Body)
}

// retryLogger routes retryablehttp output through zerolog.
type retryLogger struct {
	log zerolog.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(keysAndValues).Msg(msg)
}
