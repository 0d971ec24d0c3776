package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/apperror"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/auth"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/reports"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/repository"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/usecase"
)

// Option customizes route registration.
type Option func(*routeOptions)

type routeOptions struct {
	verifyMiddleware []gin.HandlerFunc
}

// WithVerifyLimiter rate-limits the routes that call the model.
func WithVerifyLimiter(l *UserRateLimiter) Option {
	return func(o *routeOptions) {
		if l != nil {
			o.verifyMiddleware = append(o.verifyMiddleware, l.Middleware())
		}
	}
}

type handler struct {
	uc *usecase.UseCase
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, uc *usecase.UseCase, authMiddleware gin.HandlerFunc, opts ...Option) {
	var o routeOptions
	for _, opt := range opts {
		opt(&o)
	}
	h := &handler{uc: uc}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/", authMiddleware)
	verify := func(final gin.HandlerFunc) []gin.HandlerFunc {
		chain := []gin.HandlerFunc{limitBody()}
		chain = append(chain, o.verifyMiddleware...)
		return append(chain, final)
	}

	api.POST("/verify", verify(h.analyze)...)
	api.GET("/result/:id", h.result)
	api.GET("/result/:id/duplicates", h.duplicates)
	api.GET("/metrics", h.metrics)

	api.POST("/reports", limitBody(), h.submitReport)
	api.GET("/reports", h.listReports)
	api.GET("/reports/:id", h.getReport)
	api.POST("/reports/:id/collect", h.startCollecting)
	api.POST("/reports/:id/complete", h.completeReport)
	api.POST("/reports/:id/verify", verify(h.verifyCollection)...)
	api.POST("/reports/:id/cleanup", verify(h.verifyCleanup)...)

	api.GET("/me", h.me)
	api.GET("/leaderboard", h.leaderboard)
	api.GET("/rewards", h.rewards)
	api.POST("/rewards/:id/redeem", h.redeem)
	api.GET("/notifications", h.notifications)
	api.PATCH("/notifications/:id", h.setNotificationRead)
}

func session(c *gin.Context) (auth.Session, bool) {
	s, ok := auth.SessionFrom(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "kind": apperror.KindAuth.String()})
	}
	return s, ok
}

func (h *handler) analyze(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	img, ok := readImage(c, "image", true)
	if !ok {
		return
	}

	result, err := h.uc.AnalyzeReportPhoto(c.Request.Context(), s.UserID, img)
	if err != nil {
		writeError(c, err, gin.H{"result": result})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) verifyCollection(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	img, ok := readImage(c, "image", true)
	if !ok {
		return
	}

	result, err := h.uc.VerifyCollection(c.Request.Context(), s.UserID, c.Param("id"), img)
	if err != nil {
		writeError(c, err, gin.H{"result": result})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) verifyCleanup(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	after, ok := readImage(c, "after", true)
	if !ok {
		return
	}
	before, ok := readImage(c, "before", false)
	if !ok {
		return
	}

	result, err := h.uc.VerifyCleanup(c.Request.Context(), s.UserID, c.Param("id"), before, after)
	if err != nil {
		writeError(c, err, gin.H{"result": result})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handler) result(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	log, err := h.uc.GetResult(c.Request.Context(), s.UserID, c.Param("id"))
	if err != nil {
		writeError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"request_id": log.RequestID,
		"user_id":    log.UserID,
		"report_id":  log.ReportID,
		"mode":       log.Mode,
		"score":      log.Score,
		"success":    log.Success,
		"details":    log.Details,
		"latency_ms": log.LatencyMs,
		"created_at": log.CreatedAt,
	})
}

func (h *handler) duplicates(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	report, err := h.uc.GetDuplicateReport(c.Request.Context(), s.UserID, c.Param("id"))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": report.Request, "duplicates": report.Duplicates})
}

func (h *handler) metrics(c *gin.Context) {
	summary, err := h.uc.GetMetricsSummary(c.Request.Context())
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *handler) submitReport(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	img, ok := readImage(c, "image", true)
	if !ok {
		return
	}
	lat, err := optionalFloat(c.PostForm("lat"))
	if err != nil {
		badRequest(c, "lat must be a number")
		return
	}
	lng, err := optionalFloat(c.PostForm("lng"))
	if err != nil {
		badRequest(c, "lng must be a number")
		return
	}

	report, err := h.uc.SubmitReport(c.Request.Context(), s, reports.SubmitInput{
		Location:  c.PostForm("location"),
		Latitude:  lat,
		Longitude: lng,
		TrashType: c.PostForm("trash_type"),
		Quantity:  c.PostForm("quantity"),
		Image:     img,
	})
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (h *handler) listReports(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	filter := repository.ReportFilter{
		Status: repository.ReportStatus(c.Query("status")),
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
	}
	if c.Query("mine") == "true" {
		filter.UserID = s.UserID
	}
	if c.Query("collecting") == "true" {
		filter.CollectorID = s.UserID
	}

	list, err := h.uc.ListReports(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": list})
}

func (h *handler) getReport(c *gin.Context) {
	report, err := h.uc.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *handler) startCollecting(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	report, err := h.uc.StartCollecting(c.Request.Context(), s, c.Param("id"))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *handler) completeReport(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	report, err := h.uc.CompleteReport(c.Request.Context(), s.UserID, c.Param("id"))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *handler) me(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	user, err := h.uc.Me(c.Request.Context(), s)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *handler) leaderboard(c *gin.Context) {
	users, err := h.uc.Leaderboard(c.Request.Context(), queryInt(c, "limit"))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *handler) rewards(c *gin.Context) {
	rewards, err := h.uc.Rewards(c.Request.Context())
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rewards": rewards})
}

func (h *handler) redeem(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	user, redemption, err := h.uc.Redeem(c.Request.Context(), s.UserID, c.Param("id"))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "redemption": redemption})
}

func (h *handler) notifications(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	list, err := h.uc.Notifications(c.Request.Context(), s.UserID,
		c.Query("unread") == "true", queryInt(c, "limit"), queryInt(c, "offset"))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

type readRequest struct {
	Read *bool `json:"read"`
}

func (h *handler) setNotificationRead(c *gin.Context) {
	s, ok := session(c)
	if !ok {
		return
	}
	var req readRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Read == nil {
		badRequest(c, "body must be {\"read\": true|false}")
		return
	}
	n, err := h.uc.SetNotificationRead(c.Request.Context(), s.UserID, c.Param("id"), *req.Read)
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, n)
}

func optionalFloat(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}
