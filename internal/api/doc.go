// Package api hosts the report server: HTML pages for people and JSON for
// scripts, all read-only over the scraped database. Routes:
//   - GET / and POST /results for the sortable, filterable top-20 report,
//     optionally drawn as a chart.
//   - GET|POST /250list for the full ranked list.
//   - GET /api/top, /api/movies, /api/regions and /api/runs for JSON clients.
//   - GET /healthz, /readyz and /metrics for probes and Prometheus.
package api
