package service

import "errors"

// 校验类错误：路由层映射成带具体规则名的 400/404
var (
	ErrSelfRecipient = errors.New("cannot send a note to yourself")
	ErrNotRecipient  = errors.New("only the recipient of a note can reply to it")
	ErrNotOwner      = errors.New("members can only start note threads on their own weekly task")
	ErrNotFound      = errors.New("record not found")
	ErrEmptyContent  = errors.New("note content is empty")
	ErrBadStatus     = errors.New("unknown note status")
)
