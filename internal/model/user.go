package model

import (
	"time"
)

// User 员工账号（目录服务的数据来源）
// 审批引擎只消费 id/姓名/职称/角色/部门 查询，完整的员工管理属于外部CRUD模块
type User struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Username   string `json:"username" gorm:"type:varchar(100);uniqueIndex;not null"`
	Password   string `json:"-" gorm:"type:varchar(100);not null"` // bcrypt hash
	Name       string `json:"name" gorm:"type:varchar(100);not null"`
	Title      string `json:"title" gorm:"type:varchar(100)"` // 职称，创建申请时快照到审批链
	Email      string `json:"email" gorm:"type:varchar(100)"`
	RoleID     string `json:"role_id" gorm:"type:varchar(64);index"`
	DivisionID string `json:"division_id" gorm:"type:varchar(64);index"`
	Status     string `json:"status" gorm:"type:varchar(20);default:active;index"` // active / inactive

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Role     *Role     `json:"role,omitempty" gorm:"foreignKey:RoleID"`
	Division *Division `json:"division,omitempty" gorm:"foreignKey:DivisionID"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}
