package repository

import (
	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/model"
	"gorm.io/gorm"
)

// UserRepository 员工目录查询（审批链解析和登录使用）
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindUserByID(id string) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ? AND status = ?", id, "active").First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindUserByUsername(username string) (*model.User, error) {
	var users []model.User
	result := r.db.Where("username = ? AND status = ?", username, "active").Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}
	if len(users) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &users[0], nil
}

// FindByRoleInDivision 查找指定部门内持有指定岗位的员工
// 多人匹配时取创建时间最早的一个（并列再按 id），保证解析结果确定
func (r *UserRepository) FindByRoleInDivision(roleID, divisionID string) (*model.User, error) {
	var user model.User
	err := r.db.Where("role_id = ? AND division_id = ? AND status = ?", roleID, divisionID, "active").
		Order("created_at ASC, id ASC").
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByRole 跨部门查找持有指定岗位的员工（部门内无人时的回退路径）
func (r *UserRepository) FindByRole(roleID string) (*model.User, error) {
	var user model.User
	err := r.db.Where("role_id = ? AND status = ?", roleID, "active").
		Order("created_at ASC, id ASC").
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindDivisionByID 查询部门（创建申请时快照部门名称）
func (r *UserRepository) FindDivisionByID(id string) (*model.Division, error) {
	var division model.Division
	err := r.db.Where("id = ? AND deleted = ?", id, false).First(&division).Error
	if err != nil {
		return nil, err
	}
	return &division, nil
}

// ListUsers 查询在职员工列表（审批流配置页选择审批人使用）
func (r *UserRepository) ListUsers(divisionID string) ([]model.User, error) {
	var users []model.User
	query := r.db.Where("status = ?", "active")
	if divisionID != "" {
		query = query.Where("division_id = ?", divisionID)
	}
	err := query.Order("created_at ASC").Find(&users).Error
	return users, err
}

func (r *UserRepository) ListDivisions() ([]model.Division, error) {
	var divisions []model.Division
	err := r.db.Where("deleted = ?", false).Order("name ASC").Find(&divisions).Error
	return divisions, err
}

func (r *UserRepository) ListRoles() ([]model.Role, error) {
	var roles []model.Role
	err := r.db.Where("deleted = ?", false).Order("name ASC").Find(&roles).Error
	return roles, err
}

func (r *UserRepository) GetDB() *gorm.DB {
	return r.db
}
