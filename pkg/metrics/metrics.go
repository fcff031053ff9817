package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Mail metrics
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "napcat_email_send_success_total",
		Help: "Total number of successful mail sends",
	}, []string{"host"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "napcat_email_send_failure_total",
		Help: "Total number of failed mail sends",
	}, []string{"host"})
	MailVerifySuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "napcat_email_verify_success_total",
		Help: "Total number of successful SMTP connection verifications",
	}, []string{"host"})
	MailVerifyFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "napcat_email_verify_failure_total",
		Help: "Total number of failed SMTP connection verifications",
	}, []string{"host"})

	// Scheduler metrics
	SchedulerTicks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "napcat_email_scheduler_ticks_total",
		Help: "Total number of scheduler scan ticks",
	})
	TasksDue = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "napcat_email_tasks_due_total",
		Help: "Total number of due tasks picked up by scheduler ticks",
	})
	TaskExecSuccess = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "napcat_email_task_exec_success_total",
		Help: "Total number of scheduled task executions that succeeded",
	})
	TaskExecFailure = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "napcat_email_task_exec_failure_total",
		Help: "Total number of scheduled task executions that failed",
	})
	TaskExecSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "napcat_email_task_exec_skipped_total",
		Help: "Total number of due tasks skipped because an execution was already in flight",
	})

	// History metrics
	HistoryRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "napcat_email_history_recorded_total",
		Help: "Total number of history records written",
	}, []string{"type", "status"})
	HistoryDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "napcat_email_history_dropped_total",
		Help: "Total number of history records dropped by the retention cap",
	})
)

func init() {
	prometheus.MustRegister(MailSendSuccess)
	prometheus.MustRegister(MailSendFailure)
	prometheus.MustRegister(MailVerifySuccess)
	prometheus.MustRegister(MailVerifyFailure)
	prometheus.MustRegister(SchedulerTicks)
	prometheus.MustRegister(TasksDue)
	prometheus.MustRegister(TaskExecSuccess)
	prometheus.MustRegister(TaskExecFailure)
	prometheus.MustRegister(TaskExecSkipped)
	prometheus.MustRegister(HistoryRecorded)
	prometheus.MustRegister(HistoryDropped)
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
