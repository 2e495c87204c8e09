package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(campaignsCreated, campaignsFinished, rowsRejected) }

var campaignsCreated = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "audit_campaigns_created_total",
		Help: "Campaigns created.",
	},
)

var campaignsFinished = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "audit_campaigns_finished_total",
		Help: "Campaigns that reached a terminal status.",
	},
	[]string{"status"},
)

var rowsRejected = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "audit_rows_rejected_total",
		Help: "Submitted rows rejected before job creation.",
	},
)

func IncCampaignCreated()             { campaignsCreated.Inc() }
func IncCampaignFinished(status string) { campaignsFinished.WithLabelValues(norm(status)).Inc() }
func AddRowsRejected(n int)           { rowsRejected.Add(float64(n)) }
