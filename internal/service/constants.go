package service

const (
	// History pagination
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 500

	// Seconds per minute for lap time formatting
	SecondsPerMinute = 60
)
