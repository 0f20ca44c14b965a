package subapp

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements prometheus.Collector over an application's
// Stats. It exposes, under the given namespace (default "subapp"):
//
//	<ns>_resources_injected_total{kind="style|executable"}
//	<ns>_resources_removed_total{kind="style|executable"}
//	<ns>_resources_loaded_total
//	<ns>_controllers_added_total, <ns>_controllers_removed_total
//	<ns>_subapps_launched_total, <ns>_subapps_destroyed_total, <ns>_subapps_failed_total
//	<ns>_subapps_active, <ns>_bus_registrations
//
// Values are read on scrape and emitted as ConstMetrics.
type PrometheusCollector struct {
	app *Application

	injectedDesc       *prometheus.Desc
	removedDesc        *prometheus.Desc
	loadedDesc         *prometheus.Desc
	controllersAdded   *prometheus.Desc
	controllersRemoved *prometheus.Desc
	launchedDesc       *prometheus.Desc
	destroyedDesc      *prometheus.Desc
	failedDesc         *prometheus.Desc
	activeDesc         *prometheus.Desc
	registrationsDesc  *prometheus.Desc
}

// NewPrometheusCollector creates a collector for app.
func NewPrometheusCollector(app *Application, namespace string) *PrometheusCollector {
	if namespace == "" {
		namespace = "subapp"
	}
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(fmt.Sprintf("%s_%s", namespace, name), help, labels, nil)
	}
	return &PrometheusCollector{
		app:                app,
		injectedDesc:       desc("resources_injected_total", "Resources injected into the host", "kind"),
		removedDesc:        desc("resources_removed_total", "Resources removed from the host", "kind"),
		loadedDesc:         desc("resources_loaded_total", "Executable resources that reported completion"),
		controllersAdded:   desc("controllers_added_total", "Controllers added to sub-applications"),
		controllersRemoved: desc("controllers_removed_total", "Controllers removed from sub-applications"),
		launchedDesc:       desc("subapps_launched_total", "Sub-applications that reached the active state"),
		destroyedDesc:      desc("subapps_destroyed_total", "Sub-applications torn down"),
		failedDesc:         desc("subapps_failed_total", "Sub-applications stopped by an error"),
		activeDesc:         desc("subapps_active", "Sub-applications currently registered with the application"),
		registrationsDesc:  desc("bus_registrations", "Controller registrations on the event bus"),
	}
}

// Describe sends metric descriptors.
func (c *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.injectedDesc
	ch <- c.removedDesc
	ch <- c.loadedDesc
	ch <- c.controllersAdded
	ch <- c.controllersRemoved
	ch <- c.launchedDesc
	ch <- c.destroyedDesc
	ch <- c.failedDesc
	ch <- c.activeDesc
	ch <- c.registrationsDesc
}

// Collect gathers current stats and emits ConstMetrics.
func (c *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.app.Stats()
	counter := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(d *prometheus.Desc, v int64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v))
	}

	counter(c.injectedDesc, s.StylesInjected, ResourceStyle.String())
	counter(c.injectedDesc, s.ScriptsInjected, ResourceExecutable.String())
	counter(c.removedDesc, s.StylesRemoved, ResourceStyle.String())
	counter(c.removedDesc, s.ScriptsRemoved, ResourceExecutable.String())
	counter(c.loadedDesc, s.ScriptsLoaded)
	counter(c.controllersAdded, s.ControllersAdded)
	counter(c.controllersRemoved, s.ControllersRemoved)
	counter(c.launchedDesc, s.SubAppsLaunched)
	counter(c.destroyedDesc, s.SubAppsDestroyed)
	counter(c.failedDesc, s.SubAppsFailed)
	gauge(c.activeDesc, s.ActiveSubApps)
	gauge(c.registrationsDesc, s.RegisteredListeners)
}
