package model

type TaskType string

const (
	TaskTypeText      TaskType = "TEXT"
	TaskTypeImage     TaskType = "IMAGE"
	TaskTypeVideo     TaskType = "VIDEO"
	TaskTypeQuiz      TaskType = "QUIZ"
	TaskTypeForm      TaskType = "FORM"
	TaskTypePickOne   TaskType = "PICK_ONE"
	TaskTypeChecklist TaskType = "CHECKLIST"
)

func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeText, TaskTypeImage, TaskTypeVideo, TaskTypeQuiz,
		TaskTypeForm, TaskTypePickOne, TaskTypeChecklist:
		return true
	}
	return false
}

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "PENDING"
	SubmissionApproved SubmissionStatus = "APPROVED"
	SubmissionRejected SubmissionStatus = "REJECTED"
)

func (s SubmissionStatus) Valid() bool {
	return s == SubmissionPending || s == SubmissionApproved || s == SubmissionRejected
}

type BadgeStatus string

const (
	BadgeAvailable BadgeStatus = "AVAILABLE"
	BadgePurchased BadgeStatus = "PURCHASED"
	BadgeEarned    BadgeStatus = "EARNED"
)

// Held reports whether the badge counts toward raffle eligibility.
func (s BadgeStatus) Held() bool {
	return s == BadgePurchased || s == BadgeEarned
}

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionSuccess   TransactionStatus = "SUCCESS"
	TransactionFailed    TransactionStatus = "FAILED"
	TransactionCancelled TransactionStatus = "CANCELLED"
	TransactionExpired   TransactionStatus = "EXPIRED"
	TransactionRefunded  TransactionStatus = "REFUNDED"
)

type StaffRole string

const (
	RoleAdmin StaffRole = "ADMIN"
	RoleStaff StaffRole = "STAFF"
)
