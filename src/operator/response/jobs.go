package response

import (
	"time"

	"github.com/artcommission/anchor/src/utils/model"
)

type Job struct {
	ID         int64     `json:"id"`
	ContractID int64     `json:"contract_id"`
	ActionType string    `json:"action_type"`
	Status     string    `json:"status"`
	TxHash     string    `json:"tx_hash,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func JobToResponse(r *model.OnchainRecord) Job {
	return Job{
		ID:         r.ID,
		ContractID: r.ContractID,
		ActionType: r.ActionType.String(),
		Status:     r.Status.String(),
		TxHash:     r.TxHash.String,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func JobsToResponse(records []model.OnchainRecord) []Job {
	out := make([]Job, len(records))
	for i := range records {
		out[i] = JobToResponse(&records[i])
	}
	return out
}

type ListFailed struct {
	Jobs  []Job `json:"jobs"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Total int64 `json:"total"`
}

type Participants struct {
	LeaderID int64  `json:"leader_id"`
	ArtistID int64  `json:"artist_id"`
	Status   string `json:"contract_status"`
}

type ActionLog struct {
	ID        int64     `json:"id"`
	ActorID   int64     `json:"actor_id"`
	Type      string    `json:"type"`
	Memo      string    `json:"memo,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type JobDetails struct {
	Job          Job          `json:"job"`
	Participants Participants `json:"participants"`

	// All attempts for the same contract and action, oldest first
	History []Job `json:"history"`

	ActionLog []ActionLog `json:"action_log"`
}

func JobDetailsToResponse(r *model.OnchainRecord, c *model.Contract, history []model.OnchainRecord, logs []model.ActionLog) *JobDetails {
	out := &JobDetails{
		Job: JobToResponse(r),
		Participants: Participants{
			LeaderID: c.LeaderID,
			ArtistID: c.ArtistID,
			Status:   c.Status.String(),
		},
		History:   JobsToResponse(history),
		ActionLog: make([]ActionLog, len(logs)),
	}
	for i, l := range logs {
		out.ActionLog[i] = ActionLog{
			ID:        l.ID,
			ActorID:   l.ActorID,
			Type:      l.Type.String(),
			Memo:      l.Memo,
			CreatedAt: l.CreatedAt,
		}
	}
	return out
}

type Retry struct {
	// Zero when the new attempt isn't recorded yet
	RecordID int64 `json:"record_id"`
}
