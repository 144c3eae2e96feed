package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/model"
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/pkg/logger"
	"gorm.io/gorm"
)

// Auditor 操作日志审计接口
// 申请内部的状态历史由审批引擎随申请行写入；这里记录的是 API 层面
// 谁在什么时候调了什么变更操作，仅追加，对外只读
type Auditor interface {
	// LogOperation 记录一次变更操作
	LogOperation(entry *model.OperationLog) error

	// ListOperations 查询操作日志
	ListOperations(userID, action string, page, pageSize int) ([]model.OperationLog, int64, error)
}

// DatabaseAuditor 把操作日志写入数据库
type DatabaseAuditor struct {
	db *gorm.DB
}

func NewDatabaseAuditor(db *gorm.DB) *DatabaseAuditor {
	return &DatabaseAuditor{db: db}
}

// LogOperation 记录操作日志
// 审计失败不阻断业务操作，只记录错误日志
func (a *DatabaseAuditor) LogOperation(entry *model.OperationLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	if err := a.db.Create(entry).Error; err != nil {
		logger.Errorf("Failed to write operation log: %v", err)
		return err
	}
	return nil
}

// ListOperations 分页查询操作日志
func (a *DatabaseAuditor) ListOperations(userID, action string, page, pageSize int) ([]model.OperationLog, int64, error) {
	query := a.db.Model(&model.OperationLog{})

	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if action != "" {
		query = query.Where("action = ?", action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var logs []model.OperationLog
	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&logs).Error
	return logs, total, err
}
