package approval

import (
	"errors"
	"fmt"

	"github.com/jhoannUnlimitech/RH-UNLIMITECH-CLOUD-sub001/internal/model"
	"gorm.io/gorm"
)

// Directory 员工目录查询接口（由 repository.UserRepository 实现）
type Directory interface {
	FindUserByID(id string) (*model.User, error)
	FindByRoleInDivision(roleID, divisionID string) (*model.User, error)
	FindByRole(roleID string) (*model.User, error)
	FindDivisionByID(id string) (*model.Division, error)
}

// FlowSource 审批流模板来源（由 repository.FlowRepository 实现）
type FlowSource interface {
	GetActiveFlow(divisionID string) (*model.ApprovalFlow, error)
}

// ChainResolver 创建申请时把模板解析成具体的审批链快照
// 解析结果中的审批人 id/姓名/职称 固化在申请内，之后模板或目录的变化
// 不影响已创建的申请
type ChainResolver struct {
	flows     FlowSource
	directory Directory
}

func NewChainResolver(flows FlowSource, directory Directory) *ChainResolver {
	return &ChainResolver{
		flows:     flows,
		directory: directory,
	}
}

// Resolve 解析部门当前激活模板，返回审批链和使用的模板 id
// 无激活模板返回 ErrNoActiveFlow；某级别找不到审批人返回 ApproverNotFoundError
func (r *ChainResolver) Resolve(divisionID string) ([]model.ResolvedApproval, string, error) {
	flow, err := r.flows.GetActiveFlow(divisionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrNoActiveFlow
		}
		return nil, "", fmt.Errorf("failed to load active flow: %w", err)
	}

	levels := flow.SortedLevels()
	if len(levels) == 0 {
		return nil, "", ErrEmptyChain
	}

	chain := make([]model.ResolvedApproval, 0, len(levels))
	for _, level := range levels {
		approver, err := r.resolveApprover(level, divisionID)
		if err != nil {
			return nil, "", err
		}

		chain = append(chain, model.ResolvedApproval{
			Level:         level.Order,
			Name:          level.Name,
			ApproverID:    approver.ID,
			ApproverName:  approver.Name,
			ApproverTitle: approver.Title,
			AutoApprove:   level.AutoApprove,
			Status:        model.LevelStatusPending,
		})
	}

	return chain, flow.ID, nil
}

// resolveApprover 把级别策略解析成具体员工
// user 策略直接按 id 查；role 策略先在申请人部门内找，找不到再跨部门回退
func (r *ChainResolver) resolveApprover(level model.FlowLevel, divisionID string) (*model.User, error) {
	switch level.ApproverType {
	case model.LevelApproverUser:
		user, err := r.directory.FindUserByID(level.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &ApproverNotFoundError{Level: level.Order}
			}
			return nil, fmt.Errorf("failed to look up approver for level %d: %w", level.Order, err)
		}
		return user, nil

	case model.LevelApproverRole:
		user, err := r.directory.FindByRoleInDivision(level.RoleID, divisionID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to look up approver for level %d: %w", level.Order, err)
		}

		// 部门内无人持有该岗位，跨部门回退
		user, err = r.directory.FindByRole(level.RoleID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, &ApproverNotFoundError{Level: level.Order}
			}
			return nil, fmt.Errorf("failed to look up approver for level %d: %w", level.Order, err)
		}
		return user, nil

	default:
		return nil, &ApproverNotFoundError{Level: level.Order}
	}
}
