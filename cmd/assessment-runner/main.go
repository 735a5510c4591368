package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Lllllllleong/evidenceassessment/internal/metrics"
	"github.com/Lllllllleong/evidenceassessment/internal/models"
	"github.com/Lllllllleong/evidenceassessment/internal/services"
)

var (
	assessmentInstance *services.AssessmentFunction
	recorder           *metrics.Recorder
	once               sync.Once
	initErr            error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	recorder = metrics.NewRecorder(prometheus.DefaultRegisterer)

	functions.HTTP("HandleRunAssessment", handleRunAssessment)
	functions.HTTP("HandleMetrics", promhttp.Handler().ServeHTTP)
}

func main() {}

// handleRunAssessment is called by the workflow with the run handed off at intake.
func handleRunAssessment(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		assessmentInstance, initErr = services.NewAssessment(context.Background(), recorder)
	})
	if initErr != nil {
		slog.Error("Critical: Assessment initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.AssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := assessmentInstance.Process(r.Context(), &req)
	if err != nil {
		http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error(
			"Failed to write response",
			"error", err,
			"runId", req.RunID,
			"executionId", req.ExecutionID,
		)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
