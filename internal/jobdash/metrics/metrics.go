package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const MetricPrefix = "jobdash_"

var RequestsTotalCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: MetricPrefix + "requests_total",
	Help: "Total number of incoming http requests, by route and status code",
}, []string{"route", "code"})

var StoreActionsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: MetricPrefix + "store_actions_total",
	Help: "Number of actions applied to the shared state store, by action type",
}, []string{"action"})

var StoreSubscriptionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: MetricPrefix + "store_subscriptions",
	Help: "Number of open subscriptions to the shared state store",
})

var JobRequestsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: MetricPrefix + "job_requests_total",
	Help: "Number of dispatched job requests, by request and result",
}, []string{"request", "result"})

var RendersCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: MetricPrefix + "view_renders_total",
	Help: "Number of view renders, by view and rendered branch",
}, []string{"view", "branch"})

func ExposeJobDashMetrics() {
	prometheus.MustRegister(
		RequestsTotalCounter,
		StoreActionsCounter,
		StoreSubscriptionsGauge,
		JobRequestsCounter,
		RendersCounter,
	)
}
