package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"sort"
	"time"
)

// LevelApproverType 审批级别的审批人策略类型
type LevelApproverType string

const (
	LevelApproverRole LevelApproverType = "role" // 按岗位查找审批人
	LevelApproverUser LevelApproverType = "user" // 指定具体员工
)

// ErrInvalidLevelSequence 级别顺序必须恰好是 1..N（无空洞、无重复）
var ErrInvalidLevelSequence = errors.New("flow levels must be numbered exactly 1..N without gaps or duplicates")

// FlowLevel 审批流模板中的一个级别
type FlowLevel struct {
	Order        int               `json:"order"` // 1 开始
	Name         string            `json:"name"`
	ApproverType LevelApproverType `json:"approver_type"` // role / user
	RoleID       string            `json:"role_id,omitempty"`
	UserID       string            `json:"user_id,omitempty"`
	Required     bool              `json:"required"`
	AutoApprove  bool              `json:"auto_approve"`
}

// FlowLevelArray 级别列表，JSON 序列化存储
type FlowLevelArray []FlowLevel

// Scan 实现 sql.Scanner 接口
func (a *FlowLevelArray) Scan(value interface{}) error {
	if value == nil {
		*a = FlowLevelArray{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		// MySQL 驱动返回 []byte，SQLite 驱动返回 string
		return json.Unmarshal([]byte(v), a)
	default:
		return nil
	}
}

// Value 实现 driver.Valuer 接口
func (a FlowLevelArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	return json.Marshal(a)
}

// ApprovalFlow 部门审批流模板
// 每个部门最多有一个 active=true 的模板（写入时事务性保证）
type ApprovalFlow struct {
	ID         string         `json:"id" gorm:"primaryKey;type:varchar(64)"`
	DivisionID string         `json:"division_id" gorm:"type:varchar(64);not null;index"`
	Name       string         `json:"name" gorm:"type:varchar(200);not null"`
	Levels     FlowLevelArray `json:"levels" gorm:"type:json;not null"`
	Active     bool           `json:"active" gorm:"default:false;index"`
	IsDefault  bool           `json:"is_default" gorm:"default:false"`
	Deleted    bool           `json:"deleted" gorm:"default:false;index"` // 软删除标记，保留被引用历史
	CreatedBy  string         `json:"created_by" gorm:"type:varchar(64)"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// TableName 指定表名
func (ApprovalFlow) TableName() string {
	return "approval_flows"
}

// ValidateLevels 校验级别顺序：排序后的 order 必须恰好是 1..N
// 每次保存模板前都要调用
func (f *ApprovalFlow) ValidateLevels() error {
	if len(f.Levels) == 0 {
		return ErrInvalidLevelSequence
	}

	orders := make([]int, 0, len(f.Levels))
	for _, level := range f.Levels {
		orders = append(orders, level.Order)
	}
	sort.Ints(orders)

	for i, order := range orders {
		if order != i+1 {
			return ErrInvalidLevelSequence
		}
	}
	return nil
}

// SortedLevels 返回按 order 升序排列的级别副本
func (f *ApprovalFlow) SortedLevels() []FlowLevel {
	levels := make([]FlowLevel, len(f.Levels))
	copy(levels, f.Levels)
	sort.Slice(levels, func(i, j int) bool {
		return levels[i].Order < levels[j].Order
	})
	return levels
}
