package learn

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"visionlex-server-go/internal/app/orchestrator"
	"visionlex-server-go/internal/domain/collection"
	"visionlex-server-go/internal/domain/history"
	"visionlex-server-go/internal/domain/prefs"
	"visionlex-server-go/internal/domain/speech"
	"visionlex-server-go/internal/domain/vision"
	"visionlex-server-go/internal/platform/errors"
	"visionlex-server-go/internal/platform/logging"
	"visionlex-server-go/internal/platform/storage"
	httptransport "visionlex-server-go/internal/transport/http"
)

// Service is the HTTP surface of the learning session.
type Service struct {
	orch       *orchestrator.Orchestrator
	history    *history.Store
	collection *collection.Store
	prefs      *prefs.Store
	audio      *speech.Registry
	kv         *storage.KV
	logger     *logging.Logger
}

func NewService(
	orch *orchestrator.Orchestrator,
	hist *history.Store,
	coll *collection.Store,
	preferences *prefs.Store,
	audio *speech.Registry,
	kv *storage.KV,
	logger *logging.Logger,
) *Service {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &Service{
		orch:       orch,
		history:    hist,
		collection: coll,
		prefs:      preferences,
		audio:      audio,
		kv:         kv,
		logger:     logger,
	}
}

// Register mounts all session routes on the API group.
func (s *Service) Register(api *gin.RouterGroup) {
	api.POST("/analyze", s.handleAnalyze)
	api.POST("/analyze/retry", s.handleRetry)
	api.POST("/analyze/cancel", s.handleCancel)
	api.GET("/state", s.handleState)

	api.GET("/history", s.handleHistoryList)
	api.DELETE("/history", s.handleHistoryClear)
	api.DELETE("/history/:id", s.handleHistoryRemove)
	api.GET("/history/:id/select", s.handleHistorySelect)
	api.GET("/statistics", s.handleStatistics)

	api.GET("/collection", s.handleCollectionList)
	api.POST("/collection/toggle", s.handleCollectionToggle)
	api.DELETE("/collection/:word", s.handleCollectionRemove)

	api.GET("/audio/:id", s.handleAudio)

	api.GET("/preferences", s.handlePreferencesGet)
	api.PUT("/preferences", s.handlePreferencesPut)

	api.GET("/usage", s.handleUsage)
}

func (s *Service) handleAnalyze(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "file field is required", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "failed to read upload", nil)
		return
	}

	snap := s.orch.Analyze(c.Request.Context(), header.Filename, data)
	s.respondSnapshot(c, snap)
}

func (s *Service) handleRetry(c *gin.Context) {
	s.respondSnapshot(c, s.orch.Retry(c.Request.Context()))
}

func (s *Service) handleCancel(c *gin.Context) {
	s.orch.Cancel()
	httptransport.RespondSuccess(c, http.StatusOK, s.orch.Snapshot(), "cancel requested")
}

func (s *Service) handleState(c *gin.Context) {
	httptransport.RespondSuccess(c, http.StatusOK, s.orch.Snapshot(), "")
}

func (s *Service) handleHistoryList(c *gin.Context) {
	httptransport.RespondSuccess(c, http.StatusOK, s.history.List(c.Request.Context()), "")
}

func (s *Service) handleHistoryClear(c *gin.Context) {
	s.history.Clear(c.Request.Context())
	httptransport.RespondSuccess(c, http.StatusOK, nil, "history cleared")
}

func (s *Service) handleHistoryRemove(c *gin.Context) {
	s.history.Remove(c.Request.Context(), c.Param("id"))
	httptransport.RespondSuccess(c, http.StatusOK, nil, "record removed")
}

func (s *Service) handleHistorySelect(c *gin.Context) {
	snap, ok := s.orch.ShowHistory(c.Request.Context(), c.Param("id"))
	if !ok {
		httptransport.RespondError(c, http.StatusNotFound, "record not found", nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, snap, "")
}

func (s *Service) handleStatistics(c *gin.Context) {
	ctx := c.Request.Context()
	stats := s.history.Statistics(ctx)
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{
		"total":     stats.Total,
		"today":     stats.Today,
		"lifetime":  s.history.Lifetime(ctx),
		"collected": len(s.collection.List(ctx)),
	}, "")
}

func (s *Service) handleCollectionList(c *gin.Context) {
	httptransport.RespondSuccess(c, http.StatusOK, s.collection.List(c.Request.Context()), "")
}

func (s *Service) handleCollectionToggle(c *gin.Context) {
	var body vision.AnalysisResult
	if err := c.ShouldBindJSON(&body); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if body.RepresentativeWord == "" {
		httptransport.RespondError(c, http.StatusBadRequest, "representative_word is required", nil)
		return
	}
	collected := s.collection.Toggle(c.Request.Context(), body)
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{"collected": collected}, "")
}

func (s *Service) handleCollectionRemove(c *gin.Context) {
	s.collection.Remove(c.Request.Context(), c.Param("word"))
	httptransport.RespondSuccess(c, http.StatusOK, nil, "word removed")
}

// handleAudio streams the bytes of a live audio handle. Handles are
// in-memory only; a released or unknown id is a 404.
func (s *Service) handleAudio(c *gin.Context) {
	handle, ok := s.audio.Lookup(c.Param("id"))
	if !ok {
		httptransport.RespondError(c, http.StatusNotFound, "audio not found", nil)
		return
	}
	c.Data(http.StatusOK, handle.MIME(), handle.Bytes())
}

func (s *Service) handlePreferencesGet(c *gin.Context) {
	httptransport.RespondSuccess(c, http.StatusOK, s.prefs.Get(c.Request.Context()), "")
}

type preferencesPatch struct {
	Theme       *string `json:"theme"`
	Voice       *string `json:"voice"`
	AutoSpeak   *bool   `json:"autoSpeak"`
	SaveHistory *bool   `json:"saveHistory"`
}

func (s *Service) handlePreferencesPut(c *gin.Context) {
	var patch preferencesPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	updated := s.prefs.Update(c.Request.Context(), func(p *prefs.Preferences) {
		if patch.Theme != nil {
			p.Theme = *patch.Theme
		}
		if patch.Voice != nil {
			p.Voice = *patch.Voice
		}
		if patch.AutoSpeak != nil {
			p.AutoSpeak = *patch.AutoSpeak
		}
		if patch.SaveHistory != nil {
			p.SaveHistory = *patch.SaveHistory
		}
	})
	httptransport.RespondSuccess(c, http.StatusOK, updated, "preferences saved")
}

func (s *Service) handleUsage(c *gin.Context) {
	usage, err := s.kv.Usage(c.Request.Context())
	if err != nil {
		httptransport.RespondError(c, http.StatusInternalServerError, errors.UserMessage(err), nil)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, usage, "")
}

// respondSnapshot maps a terminal snapshot onto the response envelope using
// the error kind for the HTTP status.
func (s *Service) respondSnapshot(c *gin.Context, snap orchestrator.Snapshot) {
	if snap.State == orchestrator.StateError {
		httptransport.RespondError(c, statusForKind(errors.Kind(snap.ErrorKind)), snap.ErrorMessage, snap)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, snap, "")
}

func statusForKind(kind errors.Kind) int {
	switch kind {
	case errors.KindInvalidFormat, errors.KindEmptyInput:
		return http.StatusBadRequest
	case errors.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case errors.KindTimeout:
		return http.StatusGatewayTimeout
	case errors.KindConfig:
		return http.StatusServiceUnavailable
	case errors.KindAPI, errors.KindMalformedResponse, errors.KindParse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
