package config

import "time"

const (
	DefaultTimeZone = "Asia/Kolkata"

	// Workbook layout
	PipelineSheetName   = "Pipeline"
	AssignmentSheetName = "Account Assignments"
	HeaderScanRows      = 10
	MinHeaderCells      = 3
	MaxUploadBytes      = 32 << 20

	// Reconciliation
	WeightedTolerance  = 1 // currency units
	DefaultItemTimeout = 15 * time.Second
	DefaultCurrency    = "USD"
	NewAccountType     = "Prospect"

	// Services
	DefaultPipelineAddr = ":6243"
	DefaultGatewayAddr  = ":8081"

	// Logger
	DefaultLogFolder         = "./logs"
	DefaultRotationSchedule  = "@every 10s"
	DefaultRetentionSchedule = "0 2 * * *"
)
