package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var shellRenders = promauto.NewCounter(prometheus.CounterOpts{
	Name: "rippley_shell_renders_total",
	Help: "Number of rendered viewer documents.",
})

var chatRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "rippley_chat_requests_total",
	Help: "Number of chat completion requests by status.",
}, []string{"status"})
