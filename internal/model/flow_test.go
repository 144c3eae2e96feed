package model

import (
	"errors"
	"testing"
)

// TestValidateLevels 测试级别顺序校验
func TestValidateLevels(t *testing.T) {
	tests := []struct {
		name    string
		orders  []int
		wantErr bool
	}{
		{"单级别", []int{1}, false},
		{"连续三级", []int{1, 2, 3}, false},
		{"乱序但完整", []int{3, 1, 2}, false},
		{"空级别列表", []int{}, true},
		{"从2开始", []int{2, 3}, true},
		{"中间有空洞", []int{1, 3}, true},
		{"重复级别", []int{1, 1, 2}, true},
		{"包含0", []int{0, 1, 2}, true},
		{"包含负数", []int{-1, 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := &ApprovalFlow{}
			for _, order := range tt.orders {
				flow.Levels = append(flow.Levels, FlowLevel{
					Order:        order,
					Name:         "审批",
					ApproverType: LevelApproverRole,
					RoleID:       "role-1",
				})
			}

			err := flow.ValidateLevels()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidLevelSequence) {
					t.Errorf("ValidateLevels() = %v, expected ErrInvalidLevelSequence", err)
				}
			} else if err != nil {
				t.Errorf("ValidateLevels() = %v, expected nil", err)
			}
		})
	}
}

// TestSortedLevels 测试级别排序不修改原列表
func TestSortedLevels(t *testing.T) {
	flow := &ApprovalFlow{
		Levels: FlowLevelArray{
			{Order: 3, Name: "总监"},
			{Order: 1, Name: "主管"},
			{Order: 2, Name: "经理"},
		},
	}

	sorted := flow.SortedLevels()
	for i, level := range sorted {
		if level.Order != i+1 {
			t.Errorf("sorted[%d].Order = %d, expected %d", i, level.Order, i+1)
		}
	}

	// 原列表保持原顺序
	if flow.Levels[0].Order != 3 {
		t.Errorf("original levels mutated: first order = %d, expected 3", flow.Levels[0].Order)
	}
}

// TestLowestPendingLevel 测试最小待决级别查找
func TestLowestPendingLevel(t *testing.T) {
	tests := []struct {
		name     string
		statuses []LevelStatus
		expected int
	}{
		{"全部待决", []LevelStatus{LevelStatusPending, LevelStatusPending}, 1},
		{"第一级已批准", []LevelStatus{LevelStatusApproved, LevelStatusPending}, 2},
		{"全部已批准", []LevelStatus{LevelStatusApproved, LevelStatusApproved}, 0},
		{"空链", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &CSWRequest{}
			for i, status := range tt.statuses {
				req.Chain = append(req.Chain, ResolvedApproval{Level: i + 1, Status: status})
			}

			if got := req.LowestPendingLevel(); got != tt.expected {
				t.Errorf("LowestPendingLevel() = %d, expected %d", got, tt.expected)
			}
		})
	}
}
