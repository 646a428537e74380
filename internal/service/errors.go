package service

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")

	ErrEmailExists     = errors.New("email already registered")
	ErrInvalidCreds    = errors.New("invalid email or password")
	ErrAccountDisabled = errors.New("account is disabled")
	ErrNoPassword      = errors.New("account uses Google sign-in; reset your password to set one")
	ErrInvalidOTP      = errors.New("invalid or expired code")
	ErrOTPThrottled    = errors.New("a code was sent recently, try again shortly")
	ErrTokenRevoked    = errors.New("token has been revoked")

	ErrSlugTaken       = errors.New("slug already in use")
	ErrCategoryInUse   = errors.New("category still has courses")
	ErrInvalidStatus   = errors.New("invalid status transition")
	ErrNotPublished    = errors.New("course is not published")
	ErrNoAccess        = errors.New("you do not have access to this course")
	ErrAlreadyEnrolled = errors.New("already enrolled")
	ErrPaidCourse      = errors.New("course requires payment")
	ErrFreeCourse      = errors.New("course is free, enroll directly")

	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrPaymentFailed    = errors.New("payment has failed")
	ErrProvider         = errors.New("payment provider error")
	ErrAmountMismatch   = errors.New("paid amount does not match the order")

	ErrAttemptsExhausted = errors.New("maximum exam attempts reached")
	ErrExamEmpty         = errors.New("exam has no questions")

	ErrQuestionLocked = errors.New("question is locked")
	ErrInvalidParent  = errors.New("parent reply does not belong to this thread")
	ErrAlreadyDeleted = errors.New("content already deleted")

	ErrDuplicateReport = errors.New("you already have a pending report on this content")
	ErrSelfReport      = errors.New("you cannot report your own content")
	ErrReportClosed    = errors.New("report has already been actioned")
)
