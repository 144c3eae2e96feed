package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// RequestStatus CSW申请状态
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"   // 审批中
	RequestStatusApproved  RequestStatus = "approved"  // 已批准
	RequestStatusRejected  RequestStatus = "rejected"  // 已拒绝（可编辑后重新进入审批）
	RequestStatusCancelled RequestStatus = "cancelled" // 已取消
)

// LevelStatus 审批链中单个级别的状态
type LevelStatus string

const (
	LevelStatusPending  LevelStatus = "pending"  // 待决定
	LevelStatusApproved LevelStatus = "approved" // 已批准
	LevelStatusRejected LevelStatus = "rejected" // 已拒绝
)

// AuditAction 审计动作
type AuditAction string

const (
	AuditActionCreated   AuditAction = "created"
	AuditActionApproved  AuditAction = "approved"
	AuditActionRejected  AuditAction = "rejected"
	AuditActionCancelled AuditAction = "cancelled"
	AuditActionEdited    AuditAction = "edited"
	AuditActionCompleted AuditAction = "completed"
)

// ResolvedApproval 创建申请时从模板解析出的审批链节点
// 审批人 id/姓名/职称 为创建时刻的快照，之后不再从目录重新读取
type ResolvedApproval struct {
	Level         int         `json:"level"` // 1 开始
	Name          string      `json:"name"`
	ApproverID    string      `json:"approver_id"`
	ApproverName  string      `json:"approver_name"`
	ApproverTitle string      `json:"approver_title"`
	AutoApprove   bool        `json:"auto_approve,omitempty"` // 模板标记：创建时自动批准
	Status        LevelStatus `json:"status"`
	DecidedAt     *time.Time  `json:"decided_at,omitempty"`
	Comment       string      `json:"comment,omitempty"`
}

// ApprovalChain 审批链，JSON 序列化存储在申请行内
// 整个申请行是原子变更单元：链和历史跟随状态在同一次写入中落盘
type ApprovalChain []ResolvedApproval

// Scan 实现 sql.Scanner 接口
func (c *ApprovalChain) Scan(value interface{}) error {
	if value == nil {
		*c = ApprovalChain{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return nil
	}
}

// Value 实现 driver.Valuer 接口
func (c ApprovalChain) Value() (driver.Value, error) {
	if len(c) == 0 {
		return "[]", nil
	}
	return json.Marshal(c)
}

// AuditEntry 审计条目，只追加，写入后永不修改或删除
type AuditEntry struct {
	Action          AuditAction   `json:"action"`
	PerformedBy     string        `json:"performed_by"`
	PerformedByName string        `json:"performed_by_name"`
	PerformedAt     time.Time     `json:"performed_at"`
	Level           *int          `json:"level,omitempty"`
	PreviousStatus  RequestStatus `json:"previous_status,omitempty"`
	NewStatus       RequestStatus `json:"new_status,omitempty"`
	Comment         string        `json:"comment,omitempty"`
}

// AuditTrail 申请的审计历史
type AuditTrail []AuditEntry

// Scan 实现 sql.Scanner 接口
func (t *AuditTrail) Scan(value interface{}) error {
	if value == nil {
		*t = AuditTrail{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return nil
	}
}

// Value 实现 driver.Valuer 接口
func (t AuditTrail) Value() (driver.Value, error) {
	if len(t) == 0 {
		return "[]", nil
	}
	return json.Marshal(t)
}

// CSWRequest CSW 变更/工作申请
type CSWRequest struct {
	ID            string `json:"id" gorm:"primaryKey;type:varchar(64)"`
	RequestNumber string `json:"request_number" gorm:"type:varchar(50);uniqueIndex"`

	// 申请人信息（创建时快照）
	RequesterID    string `json:"requester_id" gorm:"type:varchar(64);not null;index"`
	RequesterName  string `json:"requester_name" gorm:"type:varchar(100)"`
	RequesterTitle string `json:"requester_title" gorm:"type:varchar(100)"`
	DivisionID     string `json:"division_id" gorm:"type:varchar(64);not null;index"`
	DivisionName   string `json:"division_name" gorm:"type:varchar(100)"`

	// 申请内容
	Category    string         `json:"category" gorm:"type:varchar(50);index"`
	Situation   string         `json:"situation" gorm:"type:text"`   // 现状描述，≤1500字符
	Information string         `json:"information" gorm:"type:text"` // 补充信息，≤1500字符
	Solution    string         `json:"solution" gorm:"type:text"`    // 期望方案，≤1500字符
	Attachments datatypes.JSON `json:"attachments" gorm:"type:json"` // 附件列表

	// 审批状态
	FlowID            string        `json:"flow_id" gorm:"type:varchar(64)"` // 创建时使用的模板
	Chain             ApprovalChain `json:"chain" gorm:"type:json;not null"`
	Status            RequestStatus `json:"status" gorm:"type:varchar(20);default:pending;index"`
	CurrentLevel      int           `json:"current_level"` // 1 开始；status 离开 pending 后无意义
	CurrentApproverID string        `json:"current_approver_id" gorm:"type:varchar(64);index"`

	// 审计历史（只追加）
	History AuditTrail `json:"history" gorm:"type:json;not null"`

	// Version 乐观锁版本号，所有变更操作通过 CAS 更新保证线性化
	Version int  `json:"version" gorm:"not null;default:0"`
	Deleted bool `json:"deleted" gorm:"default:false;index"` // 软删除标记，保留审计追踪

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (CSWRequest) TableName() string {
	return "csw_requests"
}

// LowestPendingLevel 返回链中最小的待决级别号，没有则返回 0
func (r *CSWRequest) LowestPendingLevel() int {
	lowest := 0
	for _, entry := range r.Chain {
		if entry.Status != LevelStatusPending {
			continue
		}
		if lowest == 0 || entry.Level < lowest {
			lowest = entry.Level
		}
	}
	return lowest
}

// ChainEntry 返回指定级别的链节点，不存在返回 nil
func (r *CSWRequest) ChainEntry(level int) *ResolvedApproval {
	for i := range r.Chain {
		if r.Chain[i].Level == level {
			return &r.Chain[i]
		}
	}
	return nil
}
