package main

import (
	"github.com/fatih/color"

	"github.com/use-agent/pagelens/models"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

func formatStatusWithColor(status string) string {
	switch status {
	case string(models.StatusOk), models.JobCompleted:
		return colorSuccess(status)
	case string(models.StatusError), models.JobFailed:
		return colorError(status)
	case models.JobPartial, models.JobCancelled, "skipped":
		return colorWarn(status)
	default:
		return status
	}
}
