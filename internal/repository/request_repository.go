package repository

import (
	"errors"

	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/model"
	"gorm.io/gorm"
)

// ErrVersionConflict 乐观锁版本冲突：另一并发操作先落盘了
var ErrVersionConflict = errors.New("request was modified concurrently")

// RequestRepository CSW 申请存储
// 申请行（含审批链和审计历史）是原子变更单元，所有状态变更走 UpdateWithVersion
type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) CreateRequest(req *model.CSWRequest) error {
	return r.db.Create(req).Error
}

func (r *RequestRepository) GetRequest(id string) (*model.CSWRequest, error) {
	var req model.CSWRequest
	err := r.db.Where("id = ? AND deleted = ?", id, false).First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateWithVersion CAS 更新：只有版本号未变时写入才生效
// 链、历史、状态和内容字段在同一条 UPDATE 中落盘，保证不会出现
// 链已变更但审计缺失的中间状态
func (r *RequestRepository) UpdateWithVersion(req *model.CSWRequest) error {
	result := r.db.Model(&model.CSWRequest{}).
		Where("id = ? AND version = ? AND deleted = ?", req.ID, req.Version, false).
		Updates(map[string]interface{}{
			"situation":           req.Situation,
			"information":         req.Information,
			"solution":            req.Solution,
			"attachments":         req.Attachments,
			"chain":               req.Chain,
			"status":              req.Status,
			"current_level":       req.CurrentLevel,
			"current_approver_id": req.CurrentApproverID,
			"history":             req.History,
			"version":             req.Version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	req.Version++
	return nil
}

// ListByRequester 我的申请（所有状态）
func (r *RequestRepository) ListByRequester(requesterID string, status, category string, page, pageSize int) ([]model.CSWRequest, int64, error) {
	query := r.db.Model(&model.CSWRequest{}).
		Where("requester_id = ? AND deleted = ?", requesterID, false)
	return r.listPage(query, status, category, page, pageSize)
}

// ListPendingForApprover 待我审批的申请
func (r *RequestRepository) ListPendingForApprover(approverID string, page, pageSize int) ([]model.CSWRequest, int64, error) {
	query := r.db.Model(&model.CSWRequest{}).
		Where("status = ? AND current_approver_id = ? AND deleted = ?",
			model.RequestStatusPending, approverID, false)
	return r.listPage(query, "", "", page, pageSize)
}

// ListRequests 全部申请（管理视图），按状态/类别/部门过滤
func (r *RequestRepository) ListRequests(divisionID, status, category string, page, pageSize int) ([]model.CSWRequest, int64, error) {
	query := r.db.Model(&model.CSWRequest{}).Where("deleted = ?", false)
	if divisionID != "" {
		query = query.Where("division_id = ?", divisionID)
	}
	return r.listPage(query, status, category, page, pageSize)
}

func (r *RequestRepository) listPage(query *gorm.DB, status, category string, page, pageSize int) ([]model.CSWRequest, int64, error) {
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if category != "" {
		query = query.Where("category = ?", category)
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

	var requests []model.CSWRequest
	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&requests).Error
	return requests, total, err
}

// CountByStatus 各状态的申请数量（仪表盘）
func (r *RequestRepository) CountByStatus() (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.Model(&model.CSWRequest{}).
		Select("status, COUNT(*) as count").
		Where("deleted = ?", false).
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// CountPendingForApprover 待我审批的数量
func (r *RequestRepository) CountPendingForApprover(approverID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.CSWRequest{}).
		Where("status = ? AND current_approver_id = ? AND deleted = ?",
			model.RequestStatusPending, approverID, false).
		Count(&count).Error
	return count, err
}

// SoftDelete 软删除申请（永不物理删除，保留审计追踪）
func (r *RequestRepository) SoftDelete(id string) error {
	return r.db.Model(&model.CSWRequest{}).
		Where("id = ? AND deleted = ?", id, false).
		Update("deleted", true).Error
}
