package request

// Max page keeps the offset from overflowing
const MaxPage = 1_000_000

type ListFailed struct {
	ActionType string `form:"action_type"`
	Page       int    `form:"page" binding:"omitempty,max=1000000"`
	Size       int    `form:"size"`
}
