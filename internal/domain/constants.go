package domain

const (
	RoleAdmin      = "ADMIN"
	RoleInstructor = "INSTRUCTOR"
	RoleStudent    = "STUDENT"
)

const (
	CourseStatusDraft     = "draft"
	CourseStatusPublished = "published"
	CourseStatusArchived  = "archived"
)

const (
	EnrollmentActive  = "active"
	EnrollmentExpired = "expired"
)

const (
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
)

const (
	OTPPurposeVerifyEmail   = "verify_email"
	OTPPurposeResetPassword = "reset_password"
)

// Forum report targets.
const (
	TargetQuestion = "question"
	TargetAnswer   = "answer"
	TargetReply    = "reply"
)

var ReportTargetTypes = []string{TargetQuestion, TargetAnswer, TargetReply}

const (
	ReasonSpam           = "spam"
	ReasonHarassment     = "harassment"
	ReasonInappropriate  = "inappropriate"
	ReasonOffTopic       = "off_topic"
	ReasonMisinformation = "misinformation"
	ReasonOther          = "other"
)

var ReportReasons = []string{ReasonSpam, ReasonHarassment, ReasonInappropriate, ReasonOffTopic, ReasonMisinformation, ReasonOther}

const (
	ReportPending  = "pending"
	ReportResolved = "resolved"
	ReportRejected = "rejected"
)

const (
	NotifEnrolled         = "ENROLLED"
	NotifPaymentConfirmed = "PAYMENT_CONFIRMED"
	NotifNewAnswer        = "FORUM_NEW_ANSWER"
	NotifNewReply         = "FORUM_NEW_REPLY"
	NotifReportActioned   = "REPORT_ACTIONED"
)

// DeletedPlaceholder replaces the text of soft-deleted forum posts in responses.
const DeletedPlaceholder = "[deleted]"

func IsValidReason(r string) bool     { return contains(ReportReasons, r) }
func IsValidTargetType(t string) bool { return contains(ReportTargetTypes, t) }

func IsValidRole(r string) bool {
	return r == RoleAdmin || r == RoleInstructor || r == RoleStudent
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
