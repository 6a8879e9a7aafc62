package models

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a user-facing message produced by a cart operation.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}
