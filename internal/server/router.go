package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/notepad/internal/notes"
	"github.com/MarcoPoloResearchLab/notepad/internal/status"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	bannerMessage            = "Hello World - Notes API"
	noteDeletedMessage       = "Note deleted"
)

var (
	errMissingNotesService  = errors.New("notes service dependency required")
	errMissingStatusService = errors.New("status service dependency required")
)

type Dependencies struct {
	NotesService  *notes.Service
	StatusService *status.Service
	Logger        *zap.Logger
	Realtime      *RealtimeDispatcher
	// MetricsRegistry receives the HTTP metrics and backs GET /metrics. A fresh registry is used when nil.
	MetricsRegistry    *prometheus.Registry
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	HeartbeatInterval  time.Duration
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.NotesService == nil {
		return nil, errMissingNotesService
	}
	if deps.StatusService == nil {
		return nil, errMissingStatusService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	realtime := deps.Realtime
	if realtime == nil {
		realtime = NewRealtimeDispatcher()
	}
	registry := deps.MetricsRegistry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	metrics, err := newHTTPMetrics(registry)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.middleware())
	router.Use(requestLogger(logger))
	router.Use(corsMiddleware(deps.CORSAllowedOrigins))
	router.Use(rateLimitMiddleware(deps.RateLimitRPS, deps.RateLimitBurst, logger))

	handler := &httpHandler{
		notesService:  deps.NotesService,
		statusService: deps.StatusService,
		realtime:      realtime,
		heartbeat:     heartbeat,
		logger:        logger,
	}

	router.GET("/metrics", metricsHandler(registry))

	api := router.Group("/api")
	api.GET("/", handler.handleRoot)
	api.GET("/notes", handler.handleListNotes)
	api.POST("/notes", handler.handleCreateNote)
	api.GET("/notes/stream", handler.handleNotesStream)
	api.PUT("/notes/:id", handler.handleUpdateNote)
	api.PATCH("/notes/:id/toggle-complete", handler.handleToggleComplete)
	api.DELETE("/notes/:id", handler.handleDeleteNote)
	api.GET("/status", handler.handleListStatus)
	api.POST("/status", handler.handleRecordStatus)

	return router, nil
}

type httpHandler struct {
	notesService  *notes.Service
	statusService *status.Service
	realtime      *RealtimeDispatcher
	heartbeat     time.Duration
	logger        *zap.Logger
}

type toggleCompleteRequest struct {
	Completed *bool `json:"completed"`
}

type statusCheckRequest struct {
	ClientName string `json:"client_name"`
}

func (h *httpHandler) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": bannerMessage})
}

func (h *httpHandler) handleListNotes(c *gin.Context) {
	collection, err := h.notesService.ListNotes(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, "failed to list notes", err)
		return
	}
	c.JSON(http.StatusOK, collection)
}

func (h *httpHandler) handleCreateNote(c *gin.Context) {
	var request notes.NoteDraft
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c)
		return
	}

	created, err := h.notesService.CreateNote(c.Request.Context(), request)
	if err != nil {
		h.respondServiceError(c, "failed to create note", err)
		return
	}

	h.publishChange(RealtimeOperationCreate, created.ID)
	c.JSON(http.StatusOK, created)
}

func (h *httpHandler) handleUpdateNote(c *gin.Context) {
	noteID, ok := noteIDParam(c)
	if !ok {
		return
	}
	var request notes.NoteUpdate
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c)
		return
	}

	updated, err := h.notesService.UpdateNote(c.Request.Context(), noteID, request)
	if err != nil {
		h.respondServiceError(c, "failed to update note", err)
		return
	}

	h.publishChange(RealtimeOperationUpdate, updated.ID)
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleToggleComplete(c *gin.Context) {
	noteID, ok := noteIDParam(c)
	if !ok {
		return
	}
	var request toggleCompleteRequest
	if err := c.ShouldBindJSON(&request); err != nil || request.Completed == nil {
		respondInvalidRequest(c)
		return
	}

	updated, err := h.notesService.SetCompleted(c.Request.Context(), noteID, *request.Completed)
	if err != nil {
		h.respondServiceError(c, "failed to update note status", err)
		return
	}

	h.publishChange(RealtimeOperationToggle, updated.ID)
	c.JSON(http.StatusOK, updated)
}

func (h *httpHandler) handleDeleteNote(c *gin.Context) {
	noteID, ok := noteIDParam(c)
	if !ok {
		return
	}

	if err := h.notesService.DeleteNote(c.Request.Context(), noteID); err != nil {
		h.respondServiceError(c, "failed to delete note", err)
		return
	}

	h.publishChange(RealtimeOperationDelete, noteID.String())
	c.JSON(http.StatusOK, gin.H{"message": noteDeletedMessage})
}

func (h *httpHandler) handleListStatus(c *gin.Context) {
	checks, err := h.statusService.List(c.Request.Context())
	if err != nil {
		h.respondStatusError(c, "failed to list status checks", "status_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, checks)
}

func (h *httpHandler) handleRecordStatus(c *gin.Context) {
	var request statusCheckRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondInvalidRequest(c)
		return
	}

	check, err := h.statusService.Record(c.Request.Context(), request.ClientName)
	if err != nil {
		if errors.Is(err, status.ErrMissingClientName) {
			respondInvalidRequest(c)
			return
		}
		h.respondStatusError(c, "failed to record status check", "status_record_failed", err)
		return
	}
	c.JSON(http.StatusOK, check)
}

func (h *httpHandler) respondStatusError(c *gin.Context, message, errorKey string, err error) {
	fields := []zap.Field{zap.Error(err)}
	response := gin.H{"error": errorKey}
	var serviceErr *status.ServiceError
	if errors.As(err, &serviceErr) {
		fields = append(fields, zap.String("code", serviceErr.Code()))
		response["code"] = serviceErr.Code()
	}
	h.logger.Error(message, fields...)
	c.JSON(http.StatusInternalServerError, response)
}

func (h *httpHandler) publishChange(operation string, noteID string) {
	h.realtime.Publish(RealtimeMessage{
		EventType: RealtimeEventNoteChanged,
		Operation: operation,
		NoteIDs:   []string{noteID},
		Timestamp: time.Now().UTC(),
	})
}

func (h *httpHandler) respondServiceError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, notes.ErrInvalidNoteID), errors.Is(err, notes.ErrEmptyNoteText):
		respondInvalidRequest(c)
		return
	case errors.Is(err, notes.ErrNoteNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}

	fields := []zap.Field{zap.Error(err)}
	response := gin.H{"error": "internal_error"}
	var serviceErr *notes.ServiceError
	if errors.As(err, &serviceErr) {
		code := serviceErr.Code()
		fields = append(fields, zap.String("code", code))
		response["code"] = code
		if index := strings.LastIndex(code, "."); index >= 0 {
			response["error"] = code[index+1:]
		}
	}
	h.logger.Error(message, fields...)
	c.JSON(http.StatusInternalServerError, response)
}

func noteIDParam(c *gin.Context) (notes.NoteID, bool) {
	noteID, err := notes.NewNoteID(c.Param("id"))
	if err != nil {
		respondInvalidRequest(c)
		return "", false
	}
	return noteID, true
}

func respondInvalidRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
}
