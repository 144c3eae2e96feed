package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Server Metrics

	// APIRequestsTotal API请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// APIRequestDuration API请求处理时长
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Approval Engine Metrics

	// CSWRequestsCreatedTotal 已创建的CSW申请总数
	CSWRequestsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "csw_requests_created_total",
			Help: "Total number of CSW requests created",
		},
		[]string{"division"},
	)

	// ApprovalDecisionsTotal 审批决定总数（按动作分类）
	ApprovalDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_decisions_total",
			Help: "Total number of approval decisions (approve/reject/cancel/edit)",
		},
		[]string{"action"},
	)

	// ApprovalConflictRetriesTotal 乐观锁冲突重试次数
	ApprovalConflictRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "approval_conflict_retries_total",
			Help: "Total number of optimistic-lock conflict retries on request mutations",
		},
	)

	// PendingRequests 当前待审批的申请数量
	PendingRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "csw_pending_requests",
			Help: "Current number of pending CSW requests",
		},
	)
)
