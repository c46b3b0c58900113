package stats

import (
	"time"

	"github.com/ether/etherdoc/lib"
	"github.com/ether/etherdoc/lib/settings"
	"github.com/gofiber/adaptor/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	activeDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "etherdoc",
			Name:      "active_documents",
			Help:      "Number of documents currently loaded into an editor",
		},
	)

	connectedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "etherdoc",
			Name:      "connected_clients",
			Help:      "Number of connected websocket clients",
		},
	)
)

func Init(store *lib.InitStore) {
	checks := []Checker{
		DBChecker{store.Store},
		SessionChecker{store.Manager},
	}

	store.C.Get("/health", Handler(
		settings.GitVersion(),
		"etherdoc-api",
		checks,
	))

	if store.RetrievedSettings.EnableMetrics {
		go func() {
			ticker := time.NewTicker(10 * time.Second)
			defer ticker.Stop()

			for range ticker.C {
				activeDocuments.Set(float64(store.Manager.ActiveSessions()))
				connectedClients.Set(float64(store.Hub.ClientCount()))
			}
		}()
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			activeDocuments,
			connectedClients,
		)
		handler := promhttp.HandlerFor(
			reg,
			promhttp.HandlerOpts{},
		)
		store.C.Get("/metrics", adaptor.HTTPHandler(handler))
	}
}
