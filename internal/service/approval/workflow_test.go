package approval

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/model"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/repository"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/config"
	"gorm.io/gorm"
)

// fakeRequestStore 内存申请存储，模拟版本号 CAS 语义
type fakeRequestStore struct {
	requests map[string]*model.CSWRequest

	// forcedConflicts 前 N 次写入返回版本冲突（模拟并发写）
	forcedConflicts int
}

func newFakeRequestStore() *fakeRequestStore {
	return &fakeRequestStore{requests: make(map[string]*model.CSWRequest)}
}

func cloneRequest(req *model.CSWRequest) *model.CSWRequest {
	data, _ := json.Marshal(req)
	var out model.CSWRequest
	_ = json.Unmarshal(data, &out)
	return &out
}

func (s *fakeRequestStore) CreateRequest(req *model.CSWRequest) error {
	s.requests[req.ID] = cloneRequest(req)
	return nil
}

func (s *fakeRequestStore) GetRequest(id string) (*model.CSWRequest, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneRequest(req), nil
}

func (s *fakeRequestStore) UpdateWithVersion(req *model.CSWRequest) error {
	stored, ok := s.requests[req.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if s.forcedConflicts > 0 {
		s.forcedConflicts--
		return repository.ErrVersionConflict
	}
	if stored.Version != req.Version {
		return repository.ErrVersionConflict
	}
	req.Version++
	s.requests[req.ID] = cloneRequest(req)
	return nil
}

// newTestWorkflow 构造两级审批的测试服务
// 申请人 u-staff（div-hr），第1级 u-boss，第2级 u-cfo（跨部门回退）
func newTestWorkflow(levels model.FlowLevelArray) (*WorkflowService, *fakeRequestStore) {
	directory := &fakeDirectory{users: []*model.User{
		{ID: "u-boss", Username: "liboss", Name: "李总", Title: "部门主管", RoleID: "r-manager", DivisionID: "div-hr"},
		{ID: "u-cfo", Username: "wangcfo", Name: "王财务", Title: "财务总监", RoleID: "r-finance", DivisionID: "div-finance"},
		{ID: "u-staff", Username: "zhangsan", Name: "张三", Title: "专员", RoleID: "r-staff", DivisionID: "div-hr"},
	}}

	if levels == nil {
		levels = model.FlowLevelArray{
			{Order: 1, Name: "主管审批", ApproverType: model.LevelApproverRole, RoleID: "r-manager"},
			{Order: 2, Name: "财务审批", ApproverType: model.LevelApproverRole, RoleID: "r-finance"},
		}
	}
	flows := &fakeFlowSource{flow: &model.ApprovalFlow{
		ID:         "flow-1",
		DivisionID: "div-hr",
		Levels:     levels,
		Active:     true,
	}}

	store := newFakeRequestStore()
	resolver := NewChainResolver(flows, directory)
	return NewWorkflowService(store, resolver, directory, config.ApprovalConfig{MaxRetries: 3}), store
}

func mustCreate(t *testing.T, svc *WorkflowService) *model.CSWRequest {
	t.Helper()
	req, err := svc.Create(CreateInput{
		RequesterID: "u-staff",
		Category:    "equipment",
		Situation:   "办公电脑无法开机",
		Solution:    "申请更换新电脑",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return req
}

// TestCreateRequest 测试创建申请：链快照和初始状态
func TestCreateRequest(t *testing.T) {
	svc, _ := newTestWorkflow(nil)
	req := mustCreate(t, svc)

	if req.Status != model.RequestStatusPending {
		t.Errorf("Status = %q, expected pending", req.Status)
	}
	if req.CurrentLevel != 1 {
		t.Errorf("CurrentLevel = %d, expected 1", req.CurrentLevel)
	}
	if req.CurrentApproverID != "u-boss" {
		t.Errorf("CurrentApproverID = %q, expected u-boss", req.CurrentApproverID)
	}
	if req.FlowID != "flow-1" {
		t.Errorf("FlowID = %q, expected flow-1", req.FlowID)
	}
	if !strings.HasPrefix(req.RequestNumber, "csw-") {
		t.Errorf("RequestNumber = %q, expected csw- prefix", req.RequestNumber)
	}
	// csw- + 14 位时间戳 + - + 6 位随机后缀
	if len(req.RequestNumber) != 25 {
		t.Errorf("len(RequestNumber) = %d (%q), expected 25", len(req.RequestNumber), req.RequestNumber)
	}
	if len(req.Chain) != 2 {
		t.Fatalf("len(Chain) = %d, expected 2", len(req.Chain))
	}
	if req.Chain[0].ApproverName != "李总" || req.Chain[1].ApproverName != "王财务" {
		t.Errorf("chain approver snapshot = %s/%s, expected 李总/王财务",
			req.Chain[0].ApproverName, req.Chain[1].ApproverName)
	}
	if len(req.History) != 1 || req.History[0].Action != model.AuditActionCreated {
		t.Errorf("History = %+v, expected single created entry", req.History)
	}
	// 快照包含申请人和部门信息
	if req.RequesterName != "张三" || req.DivisionID != "div-hr" {
		t.Errorf("requester snapshot = %s/%s, expected 张三/div-hr", req.RequesterName, req.DivisionID)
	}
}

// TestApproveChain 测试逐级批准直至整体批准
func TestApproveChain(t *testing.T) {
	svc, _ := newTestWorkflow(nil)
	req := mustCreate(t, svc)

	// 第1级批准后前进到第2级
	updated, err := svc.Approve(req.ID, "u-boss", 1, "同意")
	if err != nil {
		t.Fatalf("Approve(level 1) error = %v", err)
	}
	if updated.Status != model.RequestStatusPending {
		t.Errorf("Status = %q, expected pending", updated.Status)
	}
	if updated.CurrentLevel != 2 || updated.CurrentApproverID != "u-cfo" {
		t.Errorf("current = %d/%s, expected 2/u-cfo", updated.CurrentLevel, updated.CurrentApproverID)
	}
	if updated.Chain[0].Status != model.LevelStatusApproved || updated.Chain[0].DecidedAt == nil {
		t.Errorf("level 1 entry = %+v, expected approved with decided_at", updated.Chain[0])
	}

	// 最后一级批准：整体状态在同一次写入中切换
	final, err := svc.Approve(req.ID, "u-cfo", 2, "")
	if err != nil {
		t.Fatalf("Approve(level 2) error = %v", err)
	}
	if final.Status != model.RequestStatusApproved {
		t.Errorf("Status = %q, expected approved", final.Status)
	}
	if final.CurrentApproverID != "" {
		t.Errorf("CurrentApproverID = %q, expected empty", final.CurrentApproverID)
	}

	// 历史: created, approved, approved, completed
	actions := make([]model.AuditAction, 0, len(final.History))
	for _, entry := range final.History {
		actions = append(actions, entry.Action)
	}
	expected := []model.AuditAction{
		model.AuditActionCreated,
		model.AuditActionApproved,
		model.AuditActionApproved,
		model.AuditActionCompleted,
	}
	if len(actions) != len(expected) {
		t.Fatalf("history actions = %v, expected %v", actions, expected)
	}
	for i := range expected {
		if actions[i] != expected[i] {
			t.Errorf("history[%d] = %q, expected %q", i, actions[i], expected[i])
		}
	}
}

// TestApproveValidation 测试批准的前置校验
func TestApproveValidation(t *testing.T) {
	svc, _ := newTestWorkflow(nil)
	req := mustCreate(t, svc)

	tests := []struct {
		name    string
		actorID string
		level   int
		wantErr error
	}{
		{"非当前级别审批人", "u-cfo", 1, ErrNotApprover},
		{"越级批准", "u-cfo", 2, ErrWrongLevel},
		{"级别不存在", "u-boss", 99, ErrWrongLevel},
		{"申请人自己批准", "u-staff", 1, ErrNotApprover},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Approve(req.ID, tt.actorID, tt.level, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Approve() error = %v, expected %v", err, tt.wantErr)
			}
		})
	}

	// 已批准的申请不能再操作
	if _, err := svc.Approve(req.ID, "u-boss", 1, ""); err != nil {
		t.Fatalf("Approve(level 1) error = %v", err)
	}
	if _, err := svc.Approve(req.ID, "u-cfo", 2, ""); err != nil {
		t.Fatalf("Approve(level 2) error = %v", err)
	}
	if _, err := svc.Approve(req.ID, "u-cfo", 2, ""); !errors.Is(err, ErrNotPending) {
		t.Errorf("Approve() after approved error = %v, expected ErrNotPending", err)
	}
}

// TestReject 测试拒绝：意见必填，整体状态立即终止
func TestReject(t *testing.T) {
	svc, _ := newTestWorkflow(nil)
	req := mustCreate(t, svc)

	// 拒绝必须填写意见
	if _, err := svc.Reject(req.ID, "u-boss", 1, "   "); !errors.Is(err, ErrCommentRequired) {
		t.Errorf("Reject() without comment error = %v, expected ErrCommentRequired", err)
	}

	updated, err := svc.Reject(req.ID, "u-boss", 1, "预算不足")
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if updated.Status != model.RequestStatusRejected {
		t.Errorf("Status = %q, expected rejected", updated.Status)
	}
	if updated.Chain[0].Status != model.LevelStatusRejected || updated.Chain[0].Comment != "预算不足" {
		t.Errorf("level 1 entry = %+v, expected rejected with comment", updated.Chain[0])
	}
	// 后续级别保持待决，不再评估
	if updated.Chain[1].Status != model.LevelStatusPending {
		t.Errorf("level 2 entry status = %q, expected pending", updated.Chain[1].Status)
	}

	// 拒绝后第2级不能再批准
	if _, err := svc.Approve(req.ID, "u-cfo", 2, ""); !errors.Is(err, ErrNotPending) {
		t.Errorf("Approve() after rejected error = %v, expected ErrNotPending", err)
	}
}

// TestEditAfterReject 测试编辑被拒绝的申请：内容覆盖 + 整链重置
func TestEditAfterReject(t *testing.T) {
	svc, _ := newTestWorkflow(nil)
	req := mustCreate(t, svc)

	// pending 状态不允许编辑
	if _, err := svc.Edit(req.ID, "u-staff", EditInput{Situation: "x"}); !errors.Is(err, ErrNotRejected) {
		t.Errorf("Edit() on pending error = %v, expected ErrNotRejected", err)
	}

	if _, err := svc.Reject(req.ID, "u-boss", 1, "信息不全"); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}

	// 非申请人不能编辑
	if _, err := svc.Edit(req.ID, "u-boss", EditInput{Situation: "x"}); !errors.Is(err, ErrNotRequester) {
		t.Errorf("Edit() by approver error = %v, expected ErrNotRequester", err)
	}

	updated, err := svc.Edit(req.ID, "u-staff", EditInput{
		Situation:   "办公电脑无法开机，已检查电源",
		Information: "采购部已确认库存",
		Solution:    "申请更换新电脑",
	})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}

	if updated.Status != model.RequestStatusPending {
		t.Errorf("Status = %q, expected pending", updated.Status)
	}
	if updated.CurrentLevel != 1 || updated.CurrentApproverID != "u-boss" {
		t.Errorf("current = %d/%s, expected 1/u-boss", updated.CurrentLevel, updated.CurrentApproverID)
	}
	if updated.Situation != "办公电脑无法开机，已检查电源" {
		t.Errorf("Situation not overwritten: %q", updated.Situation)
	}

	// 整链重置：同一批审批人，所有级别回到待决，决定痕迹清空
	for i, entry := range updated.Chain {
		if entry.Status != model.LevelStatusPending || entry.DecidedAt != nil || entry.Comment != "" {
			t.Errorf("chain[%d] = %+v, expected reset to pending", i, entry)
		}
	}
	if updated.Chain[0].ApproverID != "u-boss" {
		t.Errorf("chain approver changed after edit: %q, expected u-boss", updated.Chain[0].ApproverID)
	}

	// 历史只追加: created, rejected, edited
	if len(updated.History) != 3 || updated.History[2].Action != model.AuditActionEdited {
		t.Errorf("History = %+v, expected created/rejected/edited", updated.History)
	}

	// 编辑后可以重新走完整条链
	if _, err := svc.Approve(req.ID, "u-boss", 1, ""); err != nil {
		t.Fatalf("Approve() after edit error = %v", err)
	}
	final, err := svc.Approve(req.ID, "u-cfo", 2, "")
	if err != nil {
		t.Fatalf("Approve() after edit error = %v", err)
	}
	if final.Status != model.RequestStatusApproved {
		t.Errorf("Status = %q, expected approved", final.Status)
	}
}

// TestCancel 测试取消规则
func TestCancel(t *testing.T) {
	svc, _ := newTestWorkflow(nil)
	req := mustCreate(t, svc)

	// 非申请人不能取消
	if _, err := svc.Cancel(req.ID, "u-boss", ""); !errors.Is(err, ErrNotRequester) {
		t.Errorf("Cancel() by approver error = %v, expected ErrNotRequester", err)
	}

	updated, err := svc.Cancel(req.ID, "u-staff", "不需要了")
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if updated.Status != model.RequestStatusCancelled {
		t.Errorf("Status = %q, expected cancelled", updated.Status)
	}

	// 重复取消
	if _, err := svc.Cancel(req.ID, "u-staff", ""); !errors.Is(err, ErrAlreadyCancelled) {
		t.Errorf("Cancel() twice error = %v, expected ErrAlreadyCancelled", err)
	}

	// 已批准的申请不能取消
	req2 := mustCreate(t, svc)
	if _, err := svc.Approve(req2.ID, "u-boss", 1, ""); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if _, err := svc.Approve(req2.ID, "u-cfo", 2, ""); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if _, err := svc.Cancel(req2.ID, "u-staff", ""); !errors.Is(err, ErrAlreadyApproved) {
		t.Errorf("Cancel() on approved error = %v, expected ErrAlreadyApproved", err)
	}

	// 被拒绝的申请可以取消
	req3 := mustCreate(t, svc)
	if _, err := svc.Reject(req3.ID, "u-boss", 1, "不同意"); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	cancelled, err := svc.Cancel(req3.ID, "u-staff", "")
	if err != nil {
		t.Fatalf("Cancel() on rejected error = %v", err)
	}
	last := cancelled.History[len(cancelled.History)-1]
	if last.PreviousStatus != model.RequestStatusRejected || last.NewStatus != model.RequestStatusCancelled {
		t.Errorf("cancel audit entry = %+v, expected rejected→cancelled transition", last)
	}
}

// TestVersionConflictRetry 测试乐观锁冲突重试
func TestVersionConflictRetry(t *testing.T) {
	svc, store := newTestWorkflow(nil)
	req := mustCreate(t, svc)

	// 冲突2次后成功（maxRetries=3 以内）
	store.forcedConflicts = 2
	updated, err := svc.Approve(req.ID, "u-boss", 1, "")
	if err != nil {
		t.Fatalf("Approve() with 2 conflicts error = %v", err)
	}
	if updated.CurrentLevel != 2 {
		t.Errorf("CurrentLevel = %d, expected 2", updated.CurrentLevel)
	}

	// 持续冲突耗尽重试次数
	store.forcedConflicts = 100
	if _, err := svc.Approve(req.ID, "u-cfo", 2, ""); !errors.Is(err, ErrConflict) {
		t.Errorf("Approve() with persistent conflicts error = %v, expected ErrConflict", err)
	}
}

// TestAutoApproveLevels 测试创建时自动批准前置级别
func TestAutoApproveLevels(t *testing.T) {
	svc, _ := newTestWorkflow(model.FlowLevelArray{
		{Order: 1, Name: "主管确认", ApproverType: model.LevelApproverRole, RoleID: "r-manager", AutoApprove: true},
		{Order: 2, Name: "财务审批", ApproverType: model.LevelApproverRole, RoleID: "r-finance"},
	})
	req := mustCreate(t, svc)

	if req.Status != model.RequestStatusPending {
		t.Errorf("Status = %q, expected pending", req.Status)
	}
	if req.CurrentLevel != 2 || req.CurrentApproverID != "u-cfo" {
		t.Errorf("current = %d/%s, expected 2/u-cfo", req.CurrentLevel, req.CurrentApproverID)
	}
	if req.Chain[0].Status != model.LevelStatusApproved {
		t.Errorf("auto level status = %q, expected approved", req.Chain[0].Status)
	}
}

// TestFieldLengthLimit 测试自由文本字段长度上限
func TestFieldLengthLimit(t *testing.T) {
	svc, _ := newTestWorkflow(nil)

	long := strings.Repeat("a", defaultMaxFieldLength+1)
	_, err := svc.Create(CreateInput{
		RequesterID: "u-staff",
		Category:    "equipment",
		Situation:   long,
	})
	if !errors.Is(err, ErrFieldTooLong) {
		t.Errorf("Create() with long situation error = %v, expected ErrFieldTooLong", err)
	}

	req := mustCreate(t, svc)
	if _, err := svc.Approve(req.ID, "u-boss", 1, long); !errors.Is(err, ErrFieldTooLong) {
		t.Errorf("Approve() with long comment error = %v, expected ErrFieldTooLong", err)
	}
}

// TestFieldLengthCountsRunes 测试长度上限按字符数而非字节数
func TestFieldLengthCountsRunes(t *testing.T) {
	svc, _ := newTestWorkflow(nil)

	// 1000 个汉字 = 3000 字节，按字符数计应在 1500 上限之内
	cjk := strings.Repeat("审", 1000)
	if _, err := svc.Create(CreateInput{
		RequesterID: "u-staff",
		Category:    "equipment",
		Situation:   cjk,
	}); err != nil {
		t.Errorf("Create() with %d-rune CJK situation error = %v, expected success", 1000, err)
	}

	tooLong := strings.Repeat("审", defaultMaxFieldLength+1)
	if _, err := svc.Create(CreateInput{
		RequesterID: "u-staff",
		Category:    "equipment",
		Situation:   tooLong,
	}); !errors.Is(err, ErrFieldTooLong) {
		t.Errorf("Create() with over-limit CJK situation error = %v, expected ErrFieldTooLong", err)
	}
}
