package operator

import (
	"errors"
	"net/http"

	"github.com/artcommission/anchor/src/operator/request"
	"github.com/artcommission/anchor/src/operator/response"
	"github.com/artcommission/anchor/src/utils/config"
	. "github.com/artcommission/anchor/src/utils/logger"
	"github.com/artcommission/anchor/src/utils/model"
	"github.com/artcommission/anchor/src/utils/repository"

	"github.com/gin-gonic/gin"
)

// REST endpoints for operators
type Handlers struct {
	config *config.Config
	store  repository.Store
	retry  *RetryService
}

func NewHandlers(config *config.Config) *Handlers {
	return &Handlers{config: config}
}

func (self *Handlers) WithStore(store repository.Store) *Handlers {
	self.store = store
	return self
}

func (self *Handlers) WithRetryService(retry *RetryService) *Handlers {
	self.retry = retry
	return self
}

func (self *Handlers) Register(v1 *gin.RouterGroup) {
	jobs := v1.Group("jobs")
	{
		jobs.GET("failed", self.onListFailed)
		jobs.GET(":id", self.onGetJob)
		jobs.POST(":id/retry", self.onRetry)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflictingState):
		return http.StatusConflict
	case errors.Is(err, ErrThrottled):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func (self *Handlers) onListFailed(c *gin.Context) {
	var in request.ListFailed
	err := c.ShouldBindQuery(&in)
	if err != nil {
		LOGE(c, err, http.StatusBadRequest).Debug("Failed to parse request")
		return
	}

	var action model.ActionType
	if in.ActionType != "" {
		action, err = model.ParseActionType(in.ActionType)
		if err != nil {
			LOGE(c, err, http.StatusBadRequest).Debug("Invalid action type")
			return
		}
	}

	// Defaults
	if in.Page < 1 {
		in.Page = 1
	}
	if in.Size < 1 {
		in.Size = self.config.Operator.DefaultPageSize
	}
	if in.Size > self.config.Operator.MaxPageSize {
		in.Size = self.config.Operator.MaxPageSize
	}

	records, total, err := self.store.ListFailed(c, action, (in.Page-1)*in.Size, in.Size)
	if err != nil {
		LOGE(c, err, http.StatusInternalServerError).Error("Failed to list failed jobs")
		return
	}

	c.JSON(http.StatusOK, &response.ListFailed{
		Jobs:  response.JobsToResponse(records),
		Page:  in.Page,
		Size:  in.Size,
		Total: total,
	})
}

func (self *Handlers) onGetJob(c *gin.Context) {
	var in request.Job
	err := c.ShouldBindUri(&in)
	if err != nil {
		LOGE(c, err, http.StatusBadRequest).Debug("Failed to parse request")
		return
	}

	record, err := self.store.GetRecord(c, in.ID)
	if err != nil {
		LOGE(c, err, statusOf(err)).Debug("Failed to get job")
		return
	}

	contract, err := self.store.GetContract(c, record.ContractID)
	if err != nil {
		LOGE(c, err, statusOf(err)).Error("Failed to get contract of the job")
		return
	}

	history, err := self.store.ListRecords(c, record.ContractID, record.ActionType)
	if err != nil {
		LOGE(c, err, http.StatusInternalServerError).Error("Failed to get job history")
		return
	}

	logs, err := self.store.ListActionLogs(c, record.ContractID)
	if err != nil {
		LOGE(c, err, http.StatusInternalServerError).Error("Failed to get action log")
		return
	}

	c.JSON(http.StatusOK, response.JobDetailsToResponse(record, contract, history, logs))
}

func (self *Handlers) onRetry(c *gin.Context) {
	var in request.Job
	err := c.ShouldBindUri(&in)
	if err != nil {
		LOGE(c, err, http.StatusBadRequest).Debug("Failed to parse request")
		return
	}

	id, err := self.retry.Retry(c, in.ID)
	if err != nil {
		LOGE(c, err, statusOf(err)).Info("Retry refused")
		return
	}

	LOG(c).WithField("record_id", id).Debug("Retry accepted")
	c.JSON(http.StatusAccepted, &response.Retry{RecordID: id})
}
