package repository

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/model"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newFlowTestDB 内存 SQLite，单连接避免写事务互相 busy
func newFlowTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取底层连接失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.ApprovalFlow{}); err != nil {
		t.Fatalf("建表失败: %v", err)
	}
	return db
}

func testLevels() model.FlowLevelArray {
	return model.FlowLevelArray{
		{Order: 1, Name: "部门经理", ApproverType: model.LevelApproverRole, RoleID: "r-manager", Required: true},
	}
}

// seedFlow 直接入库的测试夹具，id 可控
func seedFlow(t *testing.T, db *gorm.DB, id, divisionID string) *model.ApprovalFlow {
	t.Helper()
	flow := &model.ApprovalFlow{
		ID:         id,
		DivisionID: divisionID,
		Name:       "默认审批流-" + id,
		Levels:     testLevels(),
	}
	if err := db.Create(flow).Error; err != nil {
		t.Fatalf("seed flow %s error = %v", id, err)
	}
	return flow
}

func countActive(t *testing.T, db *gorm.DB, divisionID string) int64 {
	t.Helper()
	var n int64
	err := db.Model(&model.ApprovalFlow{}).
		Where("division_id = ? AND active = ? AND deleted = ?", divisionID, true, false).
		Count(&n).Error
	if err != nil {
		t.Fatalf("统计激活模板失败: %v", err)
	}
	return n
}

// TestSaveFlowCreate 测试创建模板：分配 id、默认不激活
func TestSaveFlowCreate(t *testing.T) {
	db := newFlowTestDB(t)
	repo := NewFlowRepository(db)

	flow := &model.ApprovalFlow{
		DivisionID: "div-hr",
		Name:       "设备变更审批流",
		Levels:     testLevels(),
	}
	if err := repo.SaveFlow(flow); err != nil {
		t.Fatalf("SaveFlow() error = %v", err)
	}
	if flow.ID == "" {
		t.Fatal("SaveFlow() did not assign an id")
	}

	got, err := repo.GetFlow(flow.ID)
	if err != nil {
		t.Fatalf("GetFlow() error = %v", err)
	}
	if got.Name != "设备变更审批流" || got.Active || got.Deleted {
		t.Errorf("got name=%q active=%v deleted=%v, expected 设备变更审批流/false/false",
			got.Name, got.Active, got.Deleted)
	}
	if len(got.Levels) != 1 || got.Levels[0].RoleID != "r-manager" {
		t.Errorf("Levels = %+v, expected single r-manager level", got.Levels)
	}
}

// TestSaveFlowValidation 测试保存时的级别顺序校验
func TestSaveFlowValidation(t *testing.T) {
	repo := NewFlowRepository(newFlowTestDB(t))

	cases := []struct {
		name   string
		levels model.FlowLevelArray
		ok     bool
	}{
		{"级别 1..2 合法", model.FlowLevelArray{
			{Order: 1, Name: "一级"}, {Order: 2, Name: "二级"},
		}, true},
		{"空级别列表", model.FlowLevelArray{}, false},
		{"级别有空洞", model.FlowLevelArray{
			{Order: 1, Name: "一级"}, {Order: 3, Name: "三级"},
		}, false},
		{"级别重复", model.FlowLevelArray{
			{Order: 1, Name: "一级"}, {Order: 1, Name: "又一级"},
		}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := repo.SaveFlow(&model.ApprovalFlow{
				DivisionID: "div-hr",
				Name:       "校验用例",
				Levels:     tc.levels,
			})
			if tc.ok && err != nil {
				t.Errorf("SaveFlow() error = %v, expected success", err)
			}
			if !tc.ok && !errors.Is(err, model.ErrInvalidLevelSequence) {
				t.Errorf("SaveFlow() error = %v, expected ErrInvalidLevelSequence", err)
			}
		})
	}
}

// TestSaveFlowUpdate 测试更新已有模板
func TestSaveFlowUpdate(t *testing.T) {
	db := newFlowTestDB(t)
	repo := NewFlowRepository(db)
	flow := seedFlow(t, db, "flow-1", "div-hr")

	flow.Name = "改名后的审批流"
	flow.Levels = model.FlowLevelArray{
		{Order: 1, Name: "一级"}, {Order: 2, Name: "二级"},
	}
	if err := repo.SaveFlow(flow); err != nil {
		t.Fatalf("SaveFlow() update error = %v", err)
	}

	got, err := repo.GetFlow("flow-1")
	if err != nil {
		t.Fatalf("GetFlow() error = %v", err)
	}
	if got.Name != "改名后的审批流" {
		t.Errorf("Name = %q, expected 改名后的审批流", got.Name)
	}
	if len(got.Levels) != 2 {
		t.Errorf("len(Levels) = %d, expected 2", len(got.Levels))
	}
}

// TestSaveFlowDeletedRejected 测试更新已软删除的模板返回未找到而非静默成功
func TestSaveFlowDeletedRejected(t *testing.T) {
	db := newFlowTestDB(t)
	repo := NewFlowRepository(db)
	flow := seedFlow(t, db, "flow-1", "div-hr")

	if err := repo.DeleteFlow("flow-1"); err != nil {
		t.Fatalf("DeleteFlow() error = %v", err)
	}

	flow.Name = "删除后改名"
	if err := repo.SaveFlow(flow); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("SaveFlow() on deleted flow error = %v, expected ErrRecordNotFound", err)
	}

	got, err := repo.GetFlow("flow-1")
	if err != nil {
		t.Fatalf("GetFlow() error = %v", err)
	}
	if got.Name == "删除后改名" {
		t.Error("soft-deleted flow was modified")
	}
}

// TestActivateFlow 测试依次激活多个模板，部门始终只有一个激活
func TestActivateFlow(t *testing.T) {
	db := newFlowTestDB(t)
	repo := NewFlowRepository(db)
	seedFlow(t, db, "flow-1", "div-hr")
	seedFlow(t, db, "flow-2", "div-hr")
	seedFlow(t, db, "flow-3", "div-hr")

	for _, id := range []string{"flow-1", "flow-2", "flow-3", "flow-1"} {
		if err := repo.ActivateFlow(id); err != nil {
			t.Fatalf("ActivateFlow(%s) error = %v", id, err)
		}
		if n := countActive(t, db, "div-hr"); n != 1 {
			t.Fatalf("activate %s 后激活模板数 = %d, expected 1", id, n)
		}
		active, err := repo.GetActiveFlow("div-hr")
		if err != nil {
			t.Fatalf("GetActiveFlow() error = %v", err)
		}
		if active.ID != id {
			t.Errorf("active flow = %s, expected %s", active.ID, id)
		}
	}
}

// TestActivateFlowDivisionIsolation 测试激活不影响其他部门的激活模板
func TestActivateFlowDivisionIsolation(t *testing.T) {
	db := newFlowTestDB(t)
	repo := NewFlowRepository(db)
	seedFlow(t, db, "flow-hr", "div-hr")
	seedFlow(t, db, "flow-fin", "div-finance")

	if err := repo.ActivateFlow("flow-hr"); err != nil {
		t.Fatalf("ActivateFlow(flow-hr) error = %v", err)
	}
	if err := repo.ActivateFlow("flow-fin"); err != nil {
		t.Fatalf("ActivateFlow(flow-fin) error = %v", err)
	}

	if n := countActive(t, db, "div-hr"); n != 1 {
		t.Errorf("div-hr 激活模板数 = %d, expected 1", n)
	}
	if n := countActive(t, db, "div-finance"); n != 1 {
		t.Errorf("div-finance 激活模板数 = %d, expected 1", n)
	}
}

// TestActivateFlowNotFound 测试激活不存在或已删除的模板
func TestActivateFlowNotFound(t *testing.T) {
	db := newFlowTestDB(t)
	repo := NewFlowRepository(db)
	seedFlow(t, db, "flow-1", "div-hr")
	if err := repo.DeleteFlow("flow-1"); err != nil {
		t.Fatalf("DeleteFlow() error = %v", err)
	}

	if err := repo.ActivateFlow("flow-missing"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("ActivateFlow(missing) error = %v, expected ErrRecordNotFound", err)
	}
	if err := repo.ActivateFlow("flow-1"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("ActivateFlow(deleted) error = %v, expected ErrRecordNotFound", err)
	}
}

// TestActivateFlowConcurrent 测试并发激活同部门不同模板，提交后仍只有一个激活
func TestActivateFlowConcurrent(t *testing.T) {
	db := newFlowTestDB(t)
	repo := NewFlowRepository(db)
	const flows = 4
	ids := make([]string, flows)
	for i := range ids {
		ids[i] = fmt.Sprintf("flow-%d", i+1)
		seedFlow(t, db, ids[i], "div-hr")
	}

	var wg sync.WaitGroup
	errs := make([]error, flows)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = repo.ActivateFlow(id)
		}(i, id)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("ActivateFlow(%s) error = %v", ids[i], err)
		}
	}
	if n := countActive(t, db, "div-hr"); n != 1 {
		t.Errorf("并发激活后 div-hr 激活模板数 = %d, expected 1", n)
	}
}

// TestDeleteFlow 测试软删除：模板保留、取消激活、列表不可见
func TestDeleteFlow(t *testing.T) {
	db := newFlowTestDB(t)
	repo := NewFlowRepository(db)
	seedFlow(t, db, "flow-1", "div-hr")
	if err := repo.ActivateFlow("flow-1"); err != nil {
		t.Fatalf("ActivateFlow() error = %v", err)
	}

	if err := repo.DeleteFlow("flow-1"); err != nil {
		t.Fatalf("DeleteFlow() error = %v", err)
	}

	// 历史申请仍可按 id 取到模板
	got, err := repo.GetFlow("flow-1")
	if err != nil {
		t.Fatalf("GetFlow() after delete error = %v", err)
	}
	if !got.Deleted || got.Active {
		t.Errorf("deleted/active = %v/%v, expected true/false", got.Deleted, got.Active)
	}

	if _, err := repo.GetActiveFlow("div-hr"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("GetActiveFlow() after delete error = %v, expected ErrRecordNotFound", err)
	}

	flows, err := repo.ListFlows("div-hr")
	if err != nil {
		t.Fatalf("ListFlows() error = %v", err)
	}
	if len(flows) != 0 {
		t.Errorf("len(ListFlows) = %d, expected 0", len(flows))
	}
}
