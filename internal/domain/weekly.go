package domain

import "time"

// WeeklyTask 一个用户在某 (year, week_number) 的周报，按自然键 upsert
type WeeklyTask struct {
	ID            string `gorm:"primaryKey;size:36" json:"id"`
	UserID        string `gorm:"size:36;uniqueIndex:idx_user_year_week" json:"userId"`
	Year          int    `gorm:"uniqueIndex:idx_user_year_week" json:"year"`
	WeekNumber    int    `gorm:"uniqueIndex:idx_user_year_week" json:"weekNumber"`
	ThisWeekTasks string `gorm:"type:text" json:"thisWeekTasks"`
	NextWeekPlan  string `gorm:"type:text" json:"nextWeekPlan"`
	// Note 周报附注，和 TaskNote 留言树无关
	Note           string    `gorm:"type:text" json:"note"`
	SubmissionDate time.Time `json:"submissionDate"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (WeeklyTask) TableName() string { return "weekly_tasks" }

// NoteStatus 留言状态只是标签，没有强制的状态机
type NoteStatus string

const (
	NoteStatusPending  NoteStatus = "pending"
	NoteStatusRead     NoteStatus = "read"
	NoteStatusReplied  NoteStatus = "replied"
	NoteStatusResolved NoteStatus = "resolved"
)

func (s NoteStatus) Valid() bool {
	switch s {
	case NoteStatusPending, NoteStatusRead, NoteStatusReplied, NoteStatusResolved:
		return true
	}
	return false
}

// TaskNote 挂在某条周报下的留言，parent_note_id 自引用构成回复树
type TaskNote struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	WeeklyTaskID string     `gorm:"size:36;index" json:"weeklyTaskId"`
	SenderID     string     `gorm:"size:36;index" json:"senderId"`
	RecipientID  string     `gorm:"size:36;index" json:"recipientId"`
	Content      string     `gorm:"type:text" json:"content"`
	ParentNoteID *string    `gorm:"size:36" json:"parentNoteId"`
	Status       NoteStatus `gorm:"size:16;default:pending" json:"status"`
	IsRead       bool       `json:"isRead"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (TaskNote) TableName() string { return "task_notes" }
