package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"constserv/constants"
	"constserv/dataset"
	"constserv/metrics"
)

const maxRequestBody = 1 << 20

// ConstantRequest is the body of POST /constants.
type ConstantRequest struct {
	Names []string `json:"names"`
}

func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "Hello, world!")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "Tutto Bene!")
}

func (s *Server) handleQuit(w http.ResponseWriter, r *http.Request) {
	s.log.Info("Shutdown requested, stopping server...", zap.String("request_id", requestID(r)))
	if !s.quit.Fire() {
		s.log.Debug("Shutdown already in progress")
	}
	writeText(w, http.StatusOK, "Shutting down server...")
}

func (s *Server) handleConstants(w http.ResponseWriter, r *http.Request) {
	req, err := decodeConstantRequest(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		writeText(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	results := constants.ResolveBatch(s.resolver, req.Names)
	metrics.RecordBatch(len(results))

	body, err := json.Marshal(results)
	if err != nil {
		s.log.Error("Failed to encode response", zap.String("request_id", requestID(r)), zap.Error(err))
		writeText(w, http.StatusInternalServerError, fmt.Sprintf("Failed to encode response: %v", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(append(body, '\n')); err != nil {
		s.log.Warn("Failed to write response", zap.Error(err))
	}

	s.publishLookup(requestID(r), results)
}

// decodeConstantRequest reads exactly one JSON object from body.
func decodeConstantRequest(body io.Reader) (ConstantRequest, error) {
	var req ConstantRequest
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, errors.New("empty body")
		}
		return req, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return req, errors.New("unexpected data after JSON object")
	}
	return req, nil
}

func (s *Server) handleViewCSV(w http.ResponseWriter, r *http.Request) {
	content, err := dataset.ReadOrCreate(s.settings.Database.Path)
	if err != nil {
		s.log.Error("Failed to read CSV file", zap.String("path", s.settings.Database.Path), zap.Error(err))
		writeText(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read CSV file: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := dataset.RenderHTML(w, content); err != nil {
		s.log.Warn("Failed to render dataset", zap.Error(err))
	}
}

// publishLookup hands a lookup event to the publisher without delaying the response.
func (s *Server) publishLookup(id string, results []constants.Result) {
	if s.publisher == nil {
		return
	}

	names := make([]string, 0, len(results))
	missing := make([]string, 0)
	for _, res := range results {
		names = append(names, res.Name)
		if !res.Found {
			missing = append(missing, res.Name)
		}
	}

	event := map[string]interface{}{
		"request_id": id,
		"names":      names,
		"found":      len(results) - len(missing),
		"missing":    missing,
		"received":   time.Now().UnixNano(),
	}

	s.events.Add(1)
	go func() {
		defer s.events.Done()
		if err := s.publisher.Publish(s.topic, event); err != nil {
			s.log.Warn("Failed to publish lookup event", zap.String("request_id", id), zap.Error(err))
		}
	}()
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, body)
}
