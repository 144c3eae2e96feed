package model

import (
	"time"
)

// OperationLog API 操作日志（中间件写入）
type OperationLog struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	UserID    string    `json:"user_id" gorm:"type:varchar(64);index"`
	Username  string    `json:"username" gorm:"type:varchar(100)"`
	Method    string    `json:"method" gorm:"type:varchar(10)"`
	Path      string    `json:"path" gorm:"type:varchar(255)"`
	Action    string    `json:"action" gorm:"type:varchar(50);index"` // create/approve/reject/cancel/edit/activate/...
	Resource  string    `json:"resource" gorm:"type:varchar(64);index"`
	ClientIP  string    `json:"client_ip" gorm:"type:varchar(50)"`
	Status    int       `json:"status"` // HTTP 状态码
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// TableName 指定表名
func (OperationLog) TableName() string {
	return "operation_logs"
}
