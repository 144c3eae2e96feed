package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/model"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/distributed"
	pkgredis "github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/redis"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FlowRepository 审批流模板目录
type FlowRepository struct {
	db *gorm.DB
}

func NewFlowRepository(db *gorm.DB) *FlowRepository {
	return &FlowRepository{db: db}
}

// SaveFlow 创建或更新模板：ID 为空时创建并分配新 id，否则按 id 更新
// 每次保存都校验级别顺序（Invariant: 排序后恰好 1..N）
// 激活状态不在这里变更，统一走 ActivateFlow
func (r *FlowRepository) SaveFlow(flow *model.ApprovalFlow) error {
	if err := flow.ValidateLevels(); err != nil {
		return err
	}

	if flow.ID == "" {
		flow.ID = uuid.New().String()
		return r.db.Create(flow).Error
	}

	result := r.db.Model(&model.ApprovalFlow{}).
		Where("id = ? AND deleted = ?", flow.ID, false).
		Updates(map[string]interface{}{
			"name":       flow.Name,
			"levels":     flow.Levels,
			"is_default": flow.IsDefault,
		})
	if result.Error != nil {
		return result.Error
	}
	// 已软删除或不存在的模板：0 行命中不是成功
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetFlow 按 id 获取模板（包含已软删除的，供历史申请引用查询）
func (r *FlowRepository) GetFlow(id string) (*model.ApprovalFlow, error) {
	var flow model.ApprovalFlow
	err := r.db.Where("id = ?", id).First(&flow).Error
	if err != nil {
		return nil, err
	}
	return &flow, nil
}

// GetActiveFlow 获取部门当前激活的模板
// 无激活模板时返回 gorm.ErrRecordNotFound，由调用方转换为 NoActiveFlow
func (r *FlowRepository) GetActiveFlow(divisionID string) (*model.ApprovalFlow, error) {
	var flow model.ApprovalFlow
	err := r.db.Where("division_id = ? AND active = ? AND deleted = ?", divisionID, true, false).
		First(&flow).Error
	if err != nil {
		return nil, err
	}
	return &flow, nil
}

// ListFlows 列出模板（divisionID 为空时列出全部未删除模板）
func (r *FlowRepository) ListFlows(divisionID string) ([]model.ApprovalFlow, error) {
	var flows []model.ApprovalFlow
	query := r.db.Where("deleted = ?", false)
	if divisionID != "" {
		query = query.Where("division_id = ?", divisionID)
	}
	err := query.Order("created_at DESC").Find(&flows).Error
	return flows, err
}

// activateMaxRetries 激活事务遇到死锁/串行化失败时的重试次数
const activateMaxRetries = 3

// ActivateFlow 激活模板，同一事务内取消同部门其他模板的激活状态
// 锁的对象是部门的整个模板集合：只锁目标行时，两个不同模板的并发激活互不阻塞，
// 各自的取消激活都看不到对方未提交的 active=true，提交后部门会留下两个激活模板。
// 多实例部署额外加 Redis 锁（尽力而为，行锁兜底）
func (r *FlowRepository) ActivateFlow(flowID string) error {
	// 先读出部门，确定锁的粒度
	flow, err := r.GetFlow(flowID)
	if err != nil {
		return err
	}
	if flow.Deleted {
		return gorm.ErrRecordNotFound
	}

	lock := distributed.NewRedisLock(pkgredis.Client, "flow:activate:"+flow.DivisionID, 10*time.Second)
	if ok, err := lock.TryLock(); err == nil && ok {
		defer lock.Unlock()
	}

	var lastErr error
	for attempt := 0; attempt < activateMaxRetries; attempt++ {
		lastErr = r.activateInTx(flowID, flow.DivisionID)
		if lastErr == nil || !isRetryableTxError(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (r *FlowRepository) activateInTx(flowID, divisionID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// 锁定部门的全部模板行，并发激活在这里排队
		query := tx.Where("division_id = ? AND deleted = ?", divisionID, false)
		if tx.Dialector.Name() != "sqlite" {
			// SQLite 不支持 FOR UPDATE，其写事务本身互斥
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var flows []model.ApprovalFlow
		if err := query.Find(&flows).Error; err != nil {
			return err
		}

		found := false
		for _, f := range flows {
			if f.ID == flowID {
				found = true
				break
			}
		}
		if !found {
			return gorm.ErrRecordNotFound
		}

		// 同部门其余激活模板全部取消激活
		if err := tx.Model(&model.ApprovalFlow{}).
			Where("division_id = ? AND active = ? AND id <> ?", divisionID, true, flowID).
			Update("active", false).Error; err != nil {
			return fmt.Errorf("failed to deactivate previous flow: %w", err)
		}

		return tx.Model(&model.ApprovalFlow{}).
			Where("id = ?", flowID).
			Update("active", true).Error
	})
}

// isRetryableTxError 死锁或串行化失败，事务整体回滚后可以安全重试
func isRetryableTxError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "lock wait timeout")
}

// DeleteFlow 软删除模板（永不物理删除，保留被历史申请引用的模板）
// 已激活的模板删除后同时取消激活
func (r *FlowRepository) DeleteFlow(flowID string) error {
	return r.db.Model(&model.ApprovalFlow{}).
		Where("id = ? AND deleted = ?", flowID, false).
		Updates(map[string]interface{}{
			"deleted": true,
			"active":  false,
		}).Error
}
