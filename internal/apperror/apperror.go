package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for logging and user-facing messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindEncoding
	KindNoImage
	KindNetwork
	KindAuth
	KindRateLimit
	KindMalformedResponse
	KindParse
	KindValidation
	KindUserNotFound
	KindInsufficientPoints
	KindReportNotFound
	KindRewardNotFound
	KindNotificationNotFound
	KindInvalidTransition
	KindAlreadyAssigned
	KindForbidden
)

var kindNames = map[Kind]string{
	KindUnknown:              "unknown",
	KindEncoding:             "encoding_error",
	KindNoImage:              "no_image",
	KindNetwork:              "network_error",
	KindAuth:                 "auth_error",
	KindRateLimit:            "rate_limit_error",
	KindMalformedResponse:    "malformed_response",
	KindParse:                "parse_error",
	KindValidation:           "validation_error",
	KindUserNotFound:         "user_not_found",
	KindInsufficientPoints:   "insufficient_points",
	KindReportNotFound:       "report_not_found",
	KindRewardNotFound:       "reward_not_found",
	KindNotificationNotFound: "notification_not_found",
	KindInvalidTransition:    "invalid_transition",
	KindAlreadyAssigned:      "already_assigned",
	KindForbidden:            "forbidden",
}

// Messages shown to end users, keyed by kind.
var userMessages = map[Kind]string{
	KindUnknown:              "เกิดข้อผิดพลาด กรุณาลองใหม่อีกครั้ง",
	KindEncoding:             "ไม่สามารถอ่านไฟล์รูปภาพได้ กรุณาเลือกไฟล์ใหม่",
	KindNoImage:              "กรุณาเลือกรูปภาพก่อนตรวจสอบ",
	KindNetwork:              "ไม่สามารถเชื่อมต่อบริการตรวจสอบได้ กรุณาลองใหม่",
	KindAuth:                 "บริการตรวจสอบไม่พร้อมใช้งาน",
	KindRateLimit:            "มีการใช้งานมากเกินไป กรุณารอสักครู่",
	KindMalformedResponse:    "ไม่สามารถตรวจสอบรูปภาพได้ กรุณาลองใหม่",
	KindParse:                "ไม่สามารถตรวจสอบรูปภาพได้ กรุณาลองใหม่",
	KindValidation:           "ผลการตรวจสอบไม่สมบูรณ์ กรุณาลองใหม่",
	KindUserNotFound:         "ไม่พบบัญชีผู้ใช้",
	KindInsufficientPoints:   "คะแนนไม่เพียงพอ",
	KindReportNotFound:       "ไม่พบรายงาน",
	KindRewardNotFound:       "ไม่พบของรางวัล",
	KindNotificationNotFound: "ไม่พบการแจ้งเตือน",
	KindInvalidTransition:    "ไม่สามารถเปลี่ยนสถานะรายงานได้",
	KindAlreadyAssigned:      "รายงานนี้มีผู้เก็บแล้ว",
	KindForbidden:            "ไม่มีสิทธิ์ดำเนินการ",
}

// String returns the stable machine-readable name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// UserMessage returns the human-readable message for the kind.
func (k Kind) UserMessage() string {
	if msg, ok := userMessages[k]; ok {
		return msg
	}
	return userMessages[KindUnknown]
}

// Error is a failure tagged with a Kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so sentinel values like
// ErrUserNotFound work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// New creates a kind-tagged error with a message.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap tags err with kind. A nil err yields nil.
func Wrap(kind Kind, message string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Sentinels for errors.Is checks.
var (
	ErrEncoding             = &Error{Kind: KindEncoding}
	ErrNoImage              = &Error{Kind: KindNoImage}
	ErrNetwork              = &Error{Kind: KindNetwork}
	ErrAuth                 = &Error{Kind: KindAuth}
	ErrRateLimit            = &Error{Kind: KindRateLimit}
	ErrMalformedResponse    = &Error{Kind: KindMalformedResponse}
	ErrParse                = &Error{Kind: KindParse}
	ErrValidation           = &Error{Kind: KindValidation}
	ErrUserNotFound         = &Error{Kind: KindUserNotFound}
	ErrInsufficientPoints   = &Error{Kind: KindInsufficientPoints}
	ErrReportNotFound       = &Error{Kind: KindReportNotFound}
	ErrRewardNotFound       = &Error{Kind: KindRewardNotFound}
	ErrNotificationNotFound = &Error{Kind: KindNotificationNotFound}
	ErrInvalidTransition    = &Error{Kind: KindInvalidTransition}
	ErrAlreadyAssigned      = &Error{Kind: KindAlreadyAssigned}
	ErrForbidden            = &Error{Kind: KindForbidden}
)
