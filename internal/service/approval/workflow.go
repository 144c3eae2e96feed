package approval

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/model"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/repository"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/config"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/logger"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/metrics"
	"gorm.io/datatypes"
)

// RequestStore 申请存储接口（由 repository.RequestRepository 实现）
type RequestStore interface {
	CreateRequest(req *model.CSWRequest) error
	GetRequest(id string) (*model.CSWRequest, error)
	UpdateWithVersion(req *model.CSWRequest) error
}

// defaultMaxFieldLength 自由文本字段（situation/information/solution/审批意见）默认上限
const defaultMaxFieldLength = 1500

// defaultMaxRetries 乐观锁冲突的默认重试次数
const defaultMaxRetries = 3

// WorkflowService CSW 申请的审批状态机
// 状态: pending -> approved / rejected / cancelled
// rejected 可通过 edit 回到 pending（复用原审批链，不重新解析）
type WorkflowService struct {
	requests    RequestStore
	resolver    *ChainResolver
	directory   Directory
	maxRetries  int
	maxFieldLen int
}

func NewWorkflowService(requests RequestStore, resolver *ChainResolver, directory Directory, cfg config.ApprovalConfig) *WorkflowService {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.MaxFieldLength <= 0 {
		cfg.MaxFieldLength = defaultMaxFieldLength
	}
	return &WorkflowService{
		requests:    requests,
		resolver:    resolver,
		directory:   directory,
		maxRetries:  cfg.MaxRetries,
		maxFieldLen: cfg.MaxFieldLength,
	}
}

// CreateInput 创建申请的输入
type CreateInput struct {
	RequesterID string
	Category    string
	Situation   string
	Information string
	Solution    string
	Attachments datatypes.JSON
}

// EditInput 编辑被拒绝申请的输入
type EditInput struct {
	Category    string
	Situation   string
	Information string
	Solution    string
	Attachments datatypes.JSON
}

// Create 创建申请：解析申请人部门的激活模板，固化审批链，写入 created 审计条目
func (s *WorkflowService) Create(input CreateInput) (*model.CSWRequest, error) {
	if err := validateFields(s.maxFieldLen, input.Situation, input.Information, input.Solution); err != nil {
		return nil, err
	}

	requester, err := s.directory.FindUserByID(input.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load requester: %w", err)
	}

	chain, flowID, err := s.resolver.Resolve(requester.DivisionID)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, ErrEmptyChain
	}

	divisionName := ""
	if division, err := s.directory.FindDivisionByID(requester.DivisionID); err == nil {
		divisionName = division.Name
	}

	now := time.Now()
	req := &model.CSWRequest{
		ID:             uuid.New().String(),
		RequestNumber:  generateRequestNumber(),
		RequesterID:    requester.ID,
		RequesterName:  requester.Name,
		RequesterTitle: requester.Title,
		DivisionID:     requester.DivisionID,
		DivisionName:   divisionName,
		Category:       input.Category,
		Situation:      input.Situation,
		Information:    input.Information,
		Solution:       input.Solution,
		Attachments:    input.Attachments,
		FlowID:         flowID,
		Chain:          chain,
		Status:         model.RequestStatusPending,
		CurrentLevel:   1,
		History: model.AuditTrail{{
			Action:          model.AuditActionCreated,
			PerformedBy:     requester.ID,
			PerformedByName: requester.Name,
			PerformedAt:     now,
			NewStatus:       model.RequestStatusPending,
		}},
	}
	syncCurrentLevel(req)

	// 模板标记为自动批准的前置级别在创建时直接通过
	s.applyAutoApprovals(req, now)

	if err := s.requests.CreateRequest(req); err != nil {
		return nil, fmt.Errorf("failed to persist request: %w", err)
	}

	metrics.CSWRequestsCreatedTotal.WithLabelValues(req.DivisionID).Inc()
	if req.Status == model.RequestStatusPending {
		metrics.PendingRequests.Inc()
	}
	logger.Infof("CSW request %s created by %s (division %s, %d levels)",
		req.RequestNumber, requester.Username, req.DivisionID, len(chain))
	return req, nil
}

// Approve 批准指定级别
// 校验失败返回类型化错误；并发提交通过版本号 CAS 串行化，冲突重试后仍失败返回 ErrConflict
func (s *WorkflowService) Approve(requestID, actorID string, level int, comment string) (*model.CSWRequest, error) {
	return s.mutate(requestID, "approve", func(req *model.CSWRequest, now time.Time) error {
		return applyApprove(req, actorID, level, comment, now, s.maxFieldLen)
	})
}

// Reject 拒绝指定级别：链不再前进，整体状态立即变为 rejected
func (s *WorkflowService) Reject(requestID, actorID string, level int, comment string) (*model.CSWRequest, error) {
	return s.mutate(requestID, "reject", func(req *model.CSWRequest, now time.Time) error {
		return applyReject(req, actorID, level, comment, now, s.maxFieldLen)
	})
}

// Cancel 申请人取消申请（pending 或 rejected 状态下允许）
func (s *WorkflowService) Cancel(requestID, actorID string, comment string) (*model.CSWRequest, error) {
	return s.mutate(requestID, "cancel", func(req *model.CSWRequest, now time.Time) error {
		return applyCancel(req, actorID, comment, now, s.maxFieldLen)
	})
}

// Edit 申请人编辑被拒绝的申请：覆盖内容字段，重置整条审批链为 pending
// 审批链不重新解析——原快照中的同一批人重新审批，即使岗位此后有变动
func (s *WorkflowService) Edit(requestID, actorID string, input EditInput) (*model.CSWRequest, error) {
	if err := validateFields(s.maxFieldLen, input.Situation, input.Information, input.Solution); err != nil {
		return nil, err
	}
	return s.mutate(requestID, "edit", func(req *model.CSWRequest, now time.Time) error {
		return applyEdit(req, actorID, input, now)
	})
}

// mutate 读取-校验-写入循环：校验失败直接返回（不写任何审计），
// 写入用版本号 CAS 防止并发双写，冲突时重新读取重试
func (s *WorkflowService) mutate(requestID, action string, apply func(*model.CSWRequest, time.Time) error) (*model.CSWRequest, error) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		req, err := s.requests.GetRequest(requestID)
		if err != nil {
			return nil, err
		}

		previous := req.Status
		if err := apply(req, time.Now()); err != nil {
			return nil, err
		}

		err = s.requests.UpdateWithVersion(req)
		if err == nil {
			metrics.ApprovalDecisionsTotal.WithLabelValues(action).Inc()
			trackPendingGauge(previous, req.Status)
			return req, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, fmt.Errorf("failed to persist request: %w", err)
		}

		metrics.ApprovalConflictRetriesTotal.Inc()
		logger.Warnf("Version conflict on request %s (%s), attempt %d/%d", requestID, action, attempt+1, s.maxRetries)
	}

	return nil, ErrConflict
}

// applyApprove 批准级别的状态转换（纯内存操作）
func applyApprove(req *model.CSWRequest, actorID string, level int, comment string, now time.Time, maxFieldLen int) error {
	entry, err := checkDecision(req, actorID, level)
	if err != nil {
		return err
	}
	if utf8.RuneCountInString(comment) > maxFieldLen {
		return fmt.Errorf("%w: comment", ErrFieldTooLong)
	}

	entry.Status = model.LevelStatusApproved
	entry.DecidedAt = &now
	entry.Comment = comment

	req.History = append(req.History, model.AuditEntry{
		Action:          model.AuditActionApproved,
		PerformedBy:     actorID,
		PerformedByName: entry.ApproverName,
		PerformedAt:     now,
		Level:           intPtr(level),
		PreviousStatus:  model.RequestStatusPending,
		NewStatus:       model.RequestStatusPending,
		Comment:         comment,
	})

	if req.LowestPendingLevel() == 0 {
		// 最后一级批准：同一次写入中完成整体状态切换
		req.Status = model.RequestStatusApproved
		req.CurrentApproverID = ""
		req.History = append(req.History, model.AuditEntry{
			Action:          model.AuditActionCompleted,
			PerformedBy:     actorID,
			PerformedByName: entry.ApproverName,
			PerformedAt:     now,
			PreviousStatus:  model.RequestStatusPending,
			NewStatus:       model.RequestStatusApproved,
		})
		return nil
	}

	syncCurrentLevel(req)
	return nil
}

// applyReject 拒绝级别的状态转换
func applyReject(req *model.CSWRequest, actorID string, level int, comment string, now time.Time, maxFieldLen int) error {
	entry, err := checkDecision(req, actorID, level)
	if err != nil {
		return err
	}
	if strings.TrimSpace(comment) == "" {
		return ErrCommentRequired
	}
	if utf8.RuneCountInString(comment) > maxFieldLen {
		return fmt.Errorf("%w: comment", ErrFieldTooLong)
	}

	entry.Status = model.LevelStatusRejected
	entry.DecidedAt = &now
	entry.Comment = comment

	// 拒绝立即终止整条链，后续级别不再评估
	req.Status = model.RequestStatusRejected
	req.CurrentApproverID = ""
	req.History = append(req.History, model.AuditEntry{
		Action:          model.AuditActionRejected,
		PerformedBy:     actorID,
		PerformedByName: entry.ApproverName,
		PerformedAt:     now,
		Level:           intPtr(level),
		PreviousStatus:  model.RequestStatusPending,
		NewStatus:       model.RequestStatusRejected,
		Comment:         comment,
	})
	return nil
}

// applyCancel 取消申请的状态转换
func applyCancel(req *model.CSWRequest, actorID string, comment string, now time.Time, maxFieldLen int) error {
	if actorID != req.RequesterID {
		return ErrNotRequester
	}
	switch req.Status {
	case model.RequestStatusApproved:
		return ErrAlreadyApproved
	case model.RequestStatusCancelled:
		return ErrAlreadyCancelled
	}
	if utf8.RuneCountInString(comment) > maxFieldLen {
		return fmt.Errorf("%w: comment", ErrFieldTooLong)
	}

	previous := req.Status
	req.Status = model.RequestStatusCancelled
	req.CurrentApproverID = ""
	req.History = append(req.History, model.AuditEntry{
		Action:          model.AuditActionCancelled,
		PerformedBy:     actorID,
		PerformedByName: req.RequesterName,
		PerformedAt:     now,
		PreviousStatus:  previous,
		NewStatus:       model.RequestStatusCancelled,
		Comment:         comment,
	})
	return nil
}

// applyEdit 编辑被拒绝申请的状态转换：内容覆盖 + 整链重置
func applyEdit(req *model.CSWRequest, actorID string, input EditInput, now time.Time) error {
	if req.Status != model.RequestStatusRejected {
		return ErrNotRejected
	}
	if actorID != req.RequesterID {
		return ErrNotRequester
	}

	if input.Category != "" {
		req.Category = input.Category
	}
	req.Situation = input.Situation
	req.Information = input.Information
	req.Solution = input.Solution
	if input.Attachments != nil {
		req.Attachments = input.Attachments
	}

	// 整链重置为 pending，清空决定时间和意见；审批人快照保持不变
	for i := range req.Chain {
		req.Chain[i].Status = model.LevelStatusPending
		req.Chain[i].DecidedAt = nil
		req.Chain[i].Comment = ""
	}
	req.Status = model.RequestStatusPending
	req.CurrentLevel = 1
	syncCurrentLevel(req)

	req.History = append(req.History, model.AuditEntry{
		Action:          model.AuditActionEdited,
		PerformedBy:     actorID,
		PerformedByName: req.RequesterName,
		PerformedAt:     now,
		PreviousStatus:  model.RequestStatusRejected,
		NewStatus:       model.RequestStatusPending,
	})
	return nil
}

// checkDecision 批准/拒绝共用的前置校验，全部通过后返回链节点
func checkDecision(req *model.CSWRequest, actorID string, level int) (*model.ResolvedApproval, error) {
	if req.Status != model.RequestStatusPending {
		return nil, ErrNotPending
	}
	if level != req.CurrentLevel {
		return nil, ErrWrongLevel
	}
	entry := req.ChainEntry(level)
	if entry == nil {
		return nil, ErrLevelNotFound
	}
	if entry.ApproverID != actorID {
		return nil, ErrNotApprover
	}
	if entry.Status != model.LevelStatusPending {
		return nil, ErrAlreadyDecided
	}
	return entry, nil
}

// applyAutoApprovals 创建时按链序自动通过标记为 auto_approve 的前置级别
// 遇到第一个需要人工决定的级别即停止；全部自动通过则整体批准
func (s *WorkflowService) applyAutoApprovals(req *model.CSWRequest, now time.Time) {
	for req.Status == model.RequestStatusPending {
		entry := req.ChainEntry(req.CurrentLevel)
		if entry == nil || !entry.AutoApprove {
			return
		}
		// 自动批准以该级别审批人的名义记录
		if err := applyApprove(req, entry.ApproverID, entry.Level, "auto-approved", now, s.maxFieldLen); err != nil {
			return
		}
	}
}

// syncCurrentLevel 维持不变式：pending 状态下 current_level 指向链中最小待决级别
func syncCurrentLevel(req *model.CSWRequest) {
	lowest := req.LowestPendingLevel()
	if lowest == 0 {
		return
	}
	req.CurrentLevel = lowest
	if entry := req.ChainEntry(lowest); entry != nil {
		req.CurrentApproverID = entry.ApproverID
	}
}

// trackPendingGauge 维护待审批数量指标
func trackPendingGauge(previous, current model.RequestStatus) {
	switch {
	case previous == model.RequestStatusPending && current != model.RequestStatusPending:
		metrics.PendingRequests.Dec()
	case previous != model.RequestStatusPending && current == model.RequestStatusPending:
		metrics.PendingRequests.Inc()
	}
}

// validateFields 校验自由文本字段长度
// 上限按字符数计（UTF-8 字节数会把中文内容的额度缩到三分之一）
func validateFields(maxFieldLen int, situation, information, solution string) error {
	if utf8.RuneCountInString(situation) > maxFieldLen {
		return fmt.Errorf("%w: situation", ErrFieldTooLong)
	}
	if utf8.RuneCountInString(information) > maxFieldLen {
		return fmt.Errorf("%w: information", ErrFieldTooLong)
	}
	if utf8.RuneCountInString(solution) > maxFieldLen {
		return fmt.Errorf("%w: solution", ErrFieldTooLong)
	}
	return nil
}

// generateRequestNumber 生成申请编号: csw-YYYYMMDDHHMMSS-xxxxxx
// 同一秒内并发建单靠 6 位随机后缀避开唯一索引冲突
func generateRequestNumber() string {
	ts := time.Now().Format("20060102150405")
	const letters = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = letters[rand.Intn(len(letters))]
	}
	return fmt.Sprintf("csw-%s-%s", ts, suffix)
}

func intPtr(v int) *int {
	return &v
}
