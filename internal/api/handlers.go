package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sympdx-server/internal/domain"
	"github.com/sympdx-server/internal/export"
	"github.com/sympdx-server/internal/patients"
)

// respondError maps domain errors onto HTTP status codes.
func (s *Server) respondError(c *gin.Context, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validationErr.Message,
			"field": validationErr.Field,
		})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		s.log.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"error":      err,
		}).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func (s *Server) handleRegisterPatient(c *gin.Context) {
	var input patients.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	patient, err := s.services.Patients.Register(c.Request.Context(), input)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, patient)
}

func (s *Server) handleGetPatient(c *gin.Context) {
	patient, err := s.services.Patients.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

func (s *Server) handleSearchPatients(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	results, err := s.services.Patients.Search(c.Request.Context(), c.Query("q"), limit, offset)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"patients": results,
		"count":    len(results),
	})
}

func (s *Server) handleUpdatePatient(c *gin.Context) {
	var update patients.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	patient, err := s.services.Patients.Update(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, patient)
}

func (s *Server) handleDeactivatePatient(c *gin.Context) {
	if err := s.services.Patients.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handlePatientChart(c *gin.Context) {
	patient, err := s.services.Patients.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)
	if err := export.WritePatientChart(c.Writer, patient); err != nil {
		s.log.WithError(err).Error("Failed to write patient chart")
	}
}

// diagnoseRequest is the body of POST /api/v1/diagnose. When patient_id
// is set the result is also recorded in that patient's history.
type diagnoseRequest struct {
	PatientID string   `json:"patient_id"`
	Symptoms  []string `json:"symptoms"`
	TopN      int      `json:"top_n"`
}

func (s *Server) handleDiagnose(c *gin.Context) {
	var req diagnoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.TopN <= 0 {
		req.TopN = 10
	}

	ctx := c.Request.Context()
	snapshot := s.services.Catalog.Snapshot()

	candidates, err := s.services.Engine.Diagnose(ctx, req.Symptoms, snapshot, req.TopN)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if req.PatientID == "" {
		c.JSON(http.StatusOK, gin.H{
			"candidates": candidates,
			"count":      len(candidates),
		})
		return
	}

	patient, err := s.services.Patients.Get(ctx, req.PatientID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	record, err := s.services.History.RecordDiagnosis(ctx, patient, req.Symptoms, candidates)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"candidates": candidates,
		"count":      len(candidates),
		"record":     record,
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	limit := intQuery(c, "limit", 0)
	offset := intQuery(c, "offset", 0)

	records, err := s.services.History.History(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"count":   len(records),
	})
}

func (s *Server) handleClearHistory(c *gin.Context) {
	deleted, err := s.services.History.ClearHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (s *Server) handleExportHistory(c *gin.Context) {
	ctx := c.Request.Context()
	patientID := c.Param("id")

	if _, err := s.services.Patients.Get(ctx, patientID); err != nil {
		s.respondError(c, err)
		return
	}

	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", "attachment; filename=history-"+patientID+".json")
	c.Status(http.StatusOK)
	if err := s.services.HistoryData.ExportJSON(ctx, patientID, c.Writer); err != nil {
		s.log.WithError(err).Error("Failed to export history")
	}
}

func (s *Server) handleHistoryReport(c *gin.Context) {
	ctx := c.Request.Context()
	patientID := c.Param("id")

	patient, err := s.services.Patients.Get(ctx, patientID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	records, err := s.services.History.History(ctx, patientID, 0, 0)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)
	if err := export.WriteHistoryReport(c.Writer, patient, records); err != nil {
		s.log.WithError(err).Error("Failed to write history report")
	}
}

func (s *Server) handleDiagnosisReport(c *gin.Context) {
	ctx := c.Request.Context()

	patient, err := s.services.Patients.Get(ctx, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	record, err := s.services.History.Record(ctx, patient.ID, c.Param("recordID"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)
	if err := export.WriteDiagnosisReport(c.Writer, patient, record); err != nil {
		s.log.WithError(err).Error("Failed to write diagnosis report")
	}
}

func (s *Server) handleImportHistory(c *gin.Context) {
	imported, skipped, err := s.services.HistoryData.ImportJSON(c.Request.Context(), c.Request.Body)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.log.WithFields(logrus.Fields{
		"imported": imported,
		"skipped":  skipped,
	}).Info("History import finished")

	c.JSON(http.StatusOK, gin.H{
		"imported": imported,
		"skipped":  skipped,
	})
}

func (s *Server) handleListSymptoms(c *gin.Context) {
	snapshot := s.services.Catalog.Snapshot()

	ids := snapshot.SymptomIDs()
	symptoms := make([]domain.Symptom, 0, len(ids))
	for _, id := range ids {
		if sym, ok := snapshot.Symptom(id); ok {
			symptoms = append(symptoms, sym)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"symptoms": symptoms,
		"count":    len(symptoms),
	})
}

func (s *Server) handleListDiseases(c *gin.Context) {
	snapshot := s.services.Catalog.Snapshot()
	diseases := snapshot.Diseases()
	c.JSON(http.StatusOK, gin.H{
		"diseases": diseases,
		"count":    len(diseases),
	})
}

func (s *Server) handleReloadCatalog(c *gin.Context) {
	if err := s.services.Catalog.Reload(); err != nil {
		s.respondError(c, err)
		return
	}

	// Rankings cached against the old snapshot are no longer valid.
	s.services.Engine.Invalidate(c.Request.Context())

	snapshot := s.services.Catalog.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"diseases": snapshot.DiseaseCount(),
		"symptoms": snapshot.SymptomCount(),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.services.Stats.Collect(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleTerminologySearch(c *gin.Context) {
	if s.services.Terminology == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "terminology lookup disabled"})
		return
	}

	query := c.Query("q")
	limit := intQuery(c, "limit", 10)

	codes, err := s.services.Terminology.Search(c.Request.Context(), query, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"codes": codes,
		"count": len(codes),
	})
}
