package ui

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"requiem/adapters/excel"
	"requiem/internal/errors"
)

type indexData struct {
	Region            string
	DefaultThreshold  float64
	DefaultConfidence float64
	Summary           string
}

type analysisForm struct {
	Threshold       *float64 `json:"umbral"`
	ConfidenceLevel *float64 `json:"nivel_confianza"`
}

type sampleForm struct {
	N      int     `json:"n"`
	Mean   float64 `json:"media"`
	StdDev float64 `json:"desviacion"`
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	c := a.clientFor(w, r)
	data := indexData{
		Region:            reportRegion,
		DefaultThreshold:  a.config.DefaultThreshold,
		DefaultConfidence: a.config.DefaultConfidence,
	}
	if cur, ok := c.service.Session().Current(); ok && cur.Summary != nil {
		data.Summary = cur.Summary.Preview()
	}
	a.renderTemplate(w, "index.html", data)
}

func (a *App) handleEvents(w http.ResponseWriter, r *http.Request) {
	c := a.clientFor(w, r)
	a.hub.ServeClient(w, r, c.id)
}

func (a *App) handleUpload(w http.ResponseWriter, r *http.Request) {
	c := a.clientFor(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, excel.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "no file received")
		return
	}
	defer file.Close()

	res, err := c.service.UploadDataset(c.ctx, header.Filename, file)
	if err != nil {
		writeJSONError(w, statusFor(err), errors.Message(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": res.SessionID,
		"records":    res.Records(),
		"preview":    res.Summary.Preview(),
	})
}

func (a *App) handleSample(w http.ResponseWriter, r *http.Request) {
	c := a.clientFor(w, r)

	form := sampleForm{N: 100, Mean: 5.5, StdDev: 1.5}
	if err := decodeForm(r, &form, func(get func(string) string) error {
		var err error
		if v := get("n"); v != "" {
			if form.N, err = strconv.Atoi(v); err != nil {
				return err
			}
		}
		if v := get("media"); v != "" {
			if form.Mean, err = strconv.ParseFloat(v, 64); err != nil {
				return err
			}
		}
		if v := get("desviacion"); v != "" {
			if form.StdDev, err = strconv.ParseFloat(v, 64); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid sample parameters")
		return
	}

	res, err := c.service.GenerateSample(c.ctx, form.N, form.Mean, form.StdDev)
	if err != nil {
		writeJSONError(w, statusFor(err), errors.Message(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": res.SessionID,
		"records":    res.Records(),
		"preview":    res.Summary.Preview(),
	})
}

func (a *App) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	c := a.clientFor(w, r)

	threshold, confidence := a.config.DefaultThreshold, a.config.DefaultConfidence
	var form analysisForm
	if err := decodeForm(r, &form, func(get func(string) string) error {
		for key, dst := range map[string]**float64{"umbral": &form.Threshold, "nivel_confianza": &form.ConfidenceLevel} {
			if v := get(key); v != "" {
				f, err := strconv.ParseFloat(v, 64)
				if err != nil {
					return err
				}
				*dst = &f
			}
		}
		return nil
	}); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid analysis parameters")
		return
	}
	if form.Threshold != nil {
		threshold = *form.Threshold
	}
	if form.ConfidenceLevel != nil {
		confidence = *form.ConfidenceLevel
	}

	run, err := c.service.RunAnalysis(c.ctx, threshold, confidence)
	if err != nil {
		writeJSONError(w, statusFor(err), errors.Message(err))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"generation": run.Generation,
		"session_id": run.Request.SessionID,
	})
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ready",
		"clients": a.ClientCount(),
	})
}

// decodeForm reads a JSON body, or falls back to form values through parse
func decodeForm(r *http.Request, dst interface{}, parse func(get func(string) string) error) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil && err != io.EOF {
			return err
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return err
	}
	return parse(r.FormValue)
}

// statusFor maps orchestrator errors to HTTP statuses
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeAnalysisInProgress:
		return http.StatusConflict
	case errors.CodeNoActiveSession:
		return http.StatusPreconditionFailed
	case errors.CodeValidationError, errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeRequestFailed, errors.CodeExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[UI] Failed to write response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
