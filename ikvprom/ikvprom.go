// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package ikvprom exports the size and lookup counters of an open
// ikv.Reader as Prometheus metrics.
package ikvprom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bpowers/ikv"
)

const (
	namespace = "ikv"
	subsystem = "reader"
)

type collector struct {
	r *ikv.Reader

	entries    *prometheus.Desc
	dataBytes  *prometheus.Desc
	indexBytes *prometheus.Desc
	lookups    *prometheus.Desc
	hits       *prometheus.Desc
	misses     *prometheus.Desc
}

// NewCollector returns a Collector reporting on r.  Every metric carries
// a "store" label set to name, so one registry can hold collectors for
// several stores.  Values are read from r on every scrape; unregister
// the collector before closing r.
func NewCollector(name string, r *ikv.Reader) prometheus.Collector {
	labels := prometheus.Labels{"store": name}
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, metric), help, nil, labels)
	}
	return &collector{
		r:          r,
		entries:    desc("entries", "Number of entries in the store"),
		dataBytes:  desc("data_bytes", "Size of the data segment in bytes"),
		indexBytes: desc("index_bytes", "Size of the in-memory index in bytes"),
		lookups:    desc("lookups_total", "Number of fingerprint lookups"),
		hits:       desc("hits_total", "Number of lookups that found an entry"),
		misses:     desc("misses_total", "Number of lookups that found nothing"),
	}
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.dataBytes
	ch <- c.indexBytes
	ch <- c.lookups
	ch <- c.hits
	ch <- c.misses
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.r.Stats()
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(c.r.Len()))
	ch <- prometheus.MustNewConstMetric(c.dataBytes, prometheus.GaugeValue, float64(c.r.DataSize()))
	ch <- prometheus.MustNewConstMetric(c.indexBytes, prometheus.GaugeValue, float64(c.r.IndexSize()))
	ch <- prometheus.MustNewConstMetric(c.lookups, prometheus.CounterValue, float64(stats.Lookups))
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(stats.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(stats.Misses))
}
