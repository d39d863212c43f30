package request

type Job struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}
