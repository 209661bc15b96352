package handlers

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"questledger/internal/models"
	"questledger/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

const (
	tenantHeader = "X-Tenant-ID"
	tenantKey    = "tenantID"
)

// HTTPHandler holds the dependencies for the HTTP handlers, like the quest service.
type HTTPHandler struct {
	service *services.QuestService
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(service *services.QuestService) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type createQuestRequest struct {
	Title                    string  `json:"title" binding:"required"`
	Description              string  `json:"description"`
	Creator                  string  `json:"creator"`
	StartTime                int64   `json:"startTime" binding:"required"` // unix seconds
	EndTime                  int64   `json:"endTime" binding:"required"`
	DistributionType         int     `json:"distributionType"`
	TotalRewards             int     `json:"totalRewards"`
	RewardAmounts            []int64 `json:"rewardAmounts"`
	TotalParticipantsAllowed int     `json:"totalParticipantsAllowed"`
	StakeRequired            int64   `json:"stakeRequired"`
}

type enrollRequest struct {
	Participant string `json:"participant" binding:"required"`
	Stake       int64  `json:"stake"`
}

type completeRequest struct {
	Participant string `json:"participant" binding:"required"`
}

type depositRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// RegisterPublicRoutes registers routes that need no tenant.
func (h *HTTPHandler) RegisterPublicRoutes(router gin.IRouter) {
	router.GET("/healthz", h.Health)
}

// RegisterTenantRoutes registers all the quest routes. They expect
// TenantMiddleware to run first.
func (h *HTTPHandler) RegisterTenantRoutes(router gin.IRouter) {
	router.GET("/treasury", h.GetTreasury)
	router.POST("/treasury/deposit", h.Deposit)
	router.POST("/quests", h.CreateQuest)
	router.GET("/quests", h.ListQuests)
	router.GET("/quests/:id", h.GetQuest)
	router.POST("/quests/:id/enroll", h.Enroll)
	router.POST("/quests/:id/enroll-csv", h.UploadParticipantsCSV)
	router.POST("/quests/:id/complete", h.CompleteTask)
	router.POST("/quests/:id/distribute", h.DistributePrizes)
	router.GET("/quests/:id/events", h.ListEvents)
	router.GET("/quests/:id/payouts.csv", h.ExportPayoutsCSV)
}

// TenantMiddleware resolves the tenant from the X-Tenant-ID header.
func (h *HTTPHandler) TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := strings.TrimSpace(c.GetHeader(tenantHeader))
		if tenantID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing " + tenantHeader + " header"})
			return
		}
		c.Set(tenantKey, tenantID)
		c.Next()
	}
}

func (h *HTTPHandler) ledger(c *gin.Context) *services.Ledger {
	return h.service.Ledger(c.GetString(tenantKey))
}

// Health reports liveness.
func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetTreasury returns the tenant's unescrowed balance.
func (h *HTTPHandler) GetTreasury(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"treasury": h.ledger(c).Treasury()})
}

// Deposit adds funds to the tenant's treasury.
func (h *HTTPHandler) Deposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	balance, err := h.ledger(c).Deposit(req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"treasury": balance})
}

// CreateQuest handles quest creation.
func (h *HTTPHandler) CreateQuest(c *gin.Context) {
	var req createQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.ledger(c).CreateQuest(services.QuestParams{
		Title:                    req.Title,
		Description:              req.Description,
		Creator:                  req.Creator,
		StartTime:                time.Unix(req.StartTime, 0).UTC(),
		EndTime:                  time.Unix(req.EndTime, 0).UTC(),
		DistributionType:         models.DistributionType(req.DistributionType),
		TotalRewards:             req.TotalRewards,
		RewardAmounts:            req.RewardAmounts,
		TotalParticipantsAllowed: req.TotalParticipantsAllowed,
		StakeRequired:            req.StakeRequired,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "event": models.EventQuestCreated})
}

// ListQuests returns every quest of the tenant.
func (h *HTTPHandler) ListQuests(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"quests": h.ledger(c).Quests()})
}

// GetQuest returns one quest.
func (h *HTTPHandler) GetQuest(c *gin.Context) {
	id, ok := questID(c)
	if !ok {
		return
	}
	q, err := h.ledger(c).Quest(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quest": q, "totalParticipants": q.TotalParticipants()})
}

// Enroll enrolls a single participant.
func (h *HTTPHandler) Enroll(c *gin.Context) {
	id, ok := questID(c)
	if !ok {
		return
	}
	var req enrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.ledger(c).EnrollInQuest(id, req.Participant, req.Stake); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": models.EventParticipantEnrolled, "participant": req.Participant})
}

// UploadParticipantsCSV handles the CSV upload for bulk enrollment. Each row
// is "participant,stake". Malformed rows are skipped; rows the ledger
// rejects are reported back.
func (h *HTTPHandler) UploadParticipantsCSV(c *gin.Context) {
	id, ok := questID(c)
	if !ok {
		return
	}
	file, _, err := c.Request.FormFile("participantCSV")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "error retrieving file: " + err.Error()})
		return
	}
	defer file.Close()

	ledger := h.ledger(c)
	enrolled := make([]string, 0)
	rejected := make(map[string]string)

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "error reading CSV: " + err.Error(), "enrolled": enrolled})
			return
		}

		if len(record) != 2 {
			logger.Infof("Skipping malformed participant CSV record: %v", record)
			continue
		}
		participant := strings.TrimSpace(record[0])
		stake, err := strconv.ParseInt(strings.TrimSpace(record[1]), 10, 64)
		if err != nil {
			logger.Infof("Skipping CSV record with invalid stake: %v", record)
			continue
		}

		if err := ledger.EnrollInQuest(id, participant, stake); err != nil {
			if errors.Is(err, services.ErrQuestNotFound) {
				writeError(c, err)
				return
			}
			rejected[participant] = err.Error()
			continue
		}
		enrolled = append(enrolled, participant)
	}

	c.JSON(http.StatusOK, gin.H{"enrolled": enrolled, "rejected": rejected})
}

// CompleteTask marks a participant's task complete.
func (h *HTTPHandler) CompleteTask(c *gin.Context) {
	id, ok := questID(c)
	if !ok {
		return
	}
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.ledger(c).CompleteTask(id, req.Participant); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": models.EventTaskCompleted, "participant": req.Participant})
}

// DistributePrizes finalizes the quest and returns its settlement.
func (h *HTTPHandler) DistributePrizes(c *gin.Context) {
	id, ok := questID(c)
	if !ok {
		return
	}
	s, err := h.ledger(c).DistributePrizes(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settlement": s, "events": h.ledger(c).Events().ForQuest(id)})
}

// ListEvents returns the events emitted for a quest, oldest first.
func (h *HTTPHandler) ListEvents(c *gin.Context) {
	id, ok := questID(c)
	if !ok {
		return
	}
	ledger := h.ledger(c)
	if _, err := ledger.Quest(id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": ledger.Events().ForQuest(id)})
}

// ExportPayoutsCSV handles the request to download a quest's payouts as a CSV file.
func (h *HTTPHandler) ExportPayoutsCSV(c *gin.Context) {
	id, ok := questID(c)
	if !ok {
		return
	}
	s, err := h.ledger(c).Settlement(id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment;filename=quest_"+strconv.FormatUint(id, 10)+"_payouts.csv")

	// Add BOM to ensure UTF-8 compatibility in Excel
	c.Writer.Write([]byte("\xef\xbb\xbf"))

	w := csv.NewWriter(c.Writer)

	if err := w.Write([]string{"rank", "participant", "prize", "stake_returned"}); err != nil {
		logger.Infof("Error writing CSV header: %v", err)
		c.String(http.StatusInternalServerError, "Error writing CSV")
		return
	}

	for _, p := range s.Payouts {
		row := []string{
			strconv.Itoa(p.Rank),
			p.Participant,
			strconv.FormatInt(p.Prize, 10),
			strconv.FormatInt(p.StakeReturned, 10),
		}
		if err := w.Write(row); err != nil {
			logger.Infof("Error writing CSV row: %v", err)
			c.String(http.StatusInternalServerError, "Error writing CSV")
			return
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		logger.Infof("Error flushing CSV writer: %v", err)
		c.String(http.StatusInternalServerError, "Error writing CSV")
	}
}

func questID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quest id"})
		return 0, false
	}
	return id, true
}

// writeError maps ledger errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrQuestNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrQuestFull),
		errors.Is(err, services.ErrAlreadyEnrolled),
		errors.Is(err, services.ErrAlreadyCompleted),
		errors.Is(err, services.ErrAlreadyDistributed),
		errors.Is(err, services.ErrNotDistributed),
		errors.Is(err, services.ErrQuestNotOpen):
		status = http.StatusConflict
	case errors.Is(err, services.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, services.ErrInvalidTimeRange),
		errors.Is(err, services.ErrInvalidRewardConfig),
		errors.Is(err, services.ErrInsufficientStake),
		errors.Is(err, services.ErrInvalidParticipant),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrNotEnrolled),
		errors.Is(err, services.ErrNoEligibleParticipants):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
