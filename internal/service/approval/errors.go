package approval

import (
	"errors"
	"fmt"
)

// 配置类错误：说明缺少前置配置，调用方修正配置后重试
var (
	// ErrNoActiveFlow 部门没有激活的审批流模板
	ErrNoActiveFlow = errors.New("division has no active approval flow")

	// ErrEmptyChain 解析出的审批链为空
	ErrEmptyChain = errors.New("resolved approval chain is empty")
)

// 授权类错误：调用者不是该操作的合法主体
var (
	// ErrNotApprover 调用者不是该级别的审批人
	ErrNotApprover = errors.New("caller is not the approver of this level")

	// ErrNotRequester 调用者不是申请人
	ErrNotRequester = errors.New("caller is not the requester")
)

// 状态类错误：当前状态下操作不合法，调用方需修正意图后重新提交
var (
	// ErrNotPending 申请不在审批中状态
	ErrNotPending = errors.New("request is not pending")

	// ErrWrongLevel 操作级别不是当前待审批级别
	ErrWrongLevel = errors.New("level is not the current approval level")

	// ErrLevelNotFound 审批链中不存在该级别
	ErrLevelNotFound = errors.New("level not found in approval chain")

	// ErrAlreadyDecided 该级别已被决定
	ErrAlreadyDecided = errors.New("level has already been decided")

	// ErrNotRejected 只有已拒绝的申请才能编辑
	ErrNotRejected = errors.New("only rejected requests can be edited")

	// ErrAlreadyApproved 已批准的申请不能取消
	ErrAlreadyApproved = errors.New("approved requests cannot be cancelled")

	// ErrAlreadyCancelled 申请已被取消
	ErrAlreadyCancelled = errors.New("request is already cancelled")

	// ErrCommentRequired 拒绝时必须填写意见
	ErrCommentRequired = errors.New("comment is required when rejecting")

	// ErrFieldTooLong 自由文本字段超长
	ErrFieldTooLong = errors.New("field exceeds maximum length")
)

// ErrConflict 并发冲突重试耗尽，调用方可稍后重试
var ErrConflict = errors.New("request is being modified concurrently, try again")

// ApproverNotFoundError 指定级别找不到审批人
type ApproverNotFoundError struct {
	Level int
}

func (e *ApproverNotFoundError) Error() string {
	return fmt.Sprintf("no approver found for level %d", e.Level)
}
