/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package prometheus provides a Prometheus metrics exporter.
package prometheus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/yorkie-team/docsync/internal/version"
)

const (
	namespace       = "docsync"
	hostnameLabel   = "hostname"
	taskTypeLabel   = "task_type"
	messageLabel    = "message_type"
	reasonLabel     = "reason"
	methodLabel     = "http_method"
	routeLabel      = "http_route"
	statusCodeLabel = "http_code"
)

// Metrics manages the metric information that docsync is trying to measure.
type Metrics struct {
	registry *prometheus.Registry

	serverVersion        *prometheus.GaugeVec
	serverHandledCounter *prometheus.CounterVec

	roomsTotal    *prometheus.GaugeVec
	sessionsTotal *prometheus.GaugeVec

	receivedMessagesTotal  *prometheus.CounterVec
	broadcastMessagesTotal *prometheus.CounterVec
	decodeErrorsTotal      *prometheus.CounterVec
	droppedSessionsTotal   *prometheus.CounterVec

	flushFailuresTotal   *prometheus.CounterVec
	flushDurationSeconds prometheus.Histogram
	flushBytesTotal      *prometheus.CounterVec

	backgroundGoroutinesTotal *prometheus.GaugeVec
}

// NewMetrics creates a new instance of Metrics.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()

	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	metrics := &Metrics{
		registry: reg,
		serverVersion: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "version",
			Help:      "Which version is running. 1 for 'server_version' label with current version.",
		}, []string{"server_version"}),
		serverHandledCounter: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "server_handled_total",
			Help:      "Total number of HTTP requests completed on the server, regardless of success or failure.",
		}, []string{methodLabel, routeLabel, statusCodeLabel}),
		roomsTotal: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rooms",
			Name:      "resident_total",
			Help:      "The number of rooms resident in memory.",
		}, []string{hostnameLabel}),
		sessionsTotal: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "attached_total",
			Help:      "The number of sessions attached to rooms.",
		}, []string{hostnameLabel}),
		receivedMessagesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "received_messages_total",
			Help:      "The total count of protocol messages received from sessions.",
		}, []string{hostnameLabel, messageLabel}),
		broadcastMessagesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rooms",
			Name:      "broadcast_messages_total",
			Help:      "The total count of protocol messages sent to sessions by rooms.",
		}, []string{hostnameLabel, messageLabel}),
		decodeErrorsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "decode_errors_total",
			Help:      "The total count of malformed messages dropped.",
		}, []string{hostnameLabel, messageLabel}),
		droppedSessionsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "dropped_total",
			Help:      "The total count of sessions closed by the server.",
		}, []string{hostnameLabel, reasonLabel}),
		flushFailuresTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rooms",
			Name:      "flush_failures_total",
			Help:      "The total count of snapshot flushes that failed.",
		}, []string{hostnameLabel}),
		flushDurationSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rooms",
			Name:      "flush_duration_seconds",
			Help:      "The time spent encoding and saving a snapshot.",
		}),
		flushBytesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rooms",
			Name:      "flush_bytes_total",
			Help:      "The total bytes of snapshots saved.",
		}, []string{hostnameLabel}),
		backgroundGoroutinesTotal: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "background",
			Name:      "goroutines_total",
			Help:      "The total number of goroutines attached by a particular background task.",
		}, []string{taskTypeLabel}),
	}

	metrics.serverVersion.With(prometheus.Labels{
		"server_version": version.Version,
	}).Set(1)

	return metrics, nil
}

// AddServerHandledCounter adds the number of HTTP requests completed on the
// server.
func (m *Metrics) AddServerHandledCounter(method, route, code string) {
	m.serverHandledCounter.With(prometheus.Labels{
		methodLabel:     method,
		routeLabel:      route,
		statusCodeLabel: code,
	}).Inc()
}

// AddRooms increases the number of resident rooms.
func (m *Metrics) AddRooms(hostname string) {
	m.roomsTotal.With(prometheus.Labels{hostnameLabel: hostname}).Inc()
}

// RemoveRooms decreases the number of resident rooms.
func (m *Metrics) RemoveRooms(hostname string) {
	m.roomsTotal.With(prometheus.Labels{hostnameLabel: hostname}).Dec()
}

// AddSessions increases the number of attached sessions.
func (m *Metrics) AddSessions(hostname string) {
	m.sessionsTotal.With(prometheus.Labels{hostnameLabel: hostname}).Inc()
}

// RemoveSessions decreases the number of attached sessions.
func (m *Metrics) RemoveSessions(hostname string) {
	m.sessionsTotal.With(prometheus.Labels{hostnameLabel: hostname}).Dec()
}

// AddReceivedMessages adds a message received from a session.
func (m *Metrics) AddReceivedMessages(hostname, messageType string) {
	m.receivedMessagesTotal.With(prometheus.Labels{
		hostnameLabel: hostname,
		messageLabel:  messageType,
	}).Inc()
}

// AddBroadcastMessages adds the number of sessions a message was sent to.
func (m *Metrics) AddBroadcastMessages(hostname, messageType string, count int) {
	m.broadcastMessagesTotal.With(prometheus.Labels{
		hostnameLabel: hostname,
		messageLabel:  messageType,
	}).Add(float64(count))
}

// AddDecodeErrors adds a malformed message.
func (m *Metrics) AddDecodeErrors(hostname, messageType string) {
	m.decodeErrorsTotal.With(prometheus.Labels{
		hostnameLabel: hostname,
		messageLabel:  messageType,
	}).Inc()
}

// AddDroppedSessions adds a session closed by the server for the given reason.
func (m *Metrics) AddDroppedSessions(hostname, reason string) {
	m.droppedSessionsTotal.With(prometheus.Labels{
		hostnameLabel: hostname,
		reasonLabel:   reason,
	}).Inc()
}

// AddFlushFailures adds a failed flush.
func (m *Metrics) AddFlushFailures(hostname string) {
	m.flushFailuresTotal.With(prometheus.Labels{hostnameLabel: hostname}).Inc()
}

// ObserveFlushDurationSeconds adds an observation of a flush.
func (m *Metrics) ObserveFlushDurationSeconds(seconds float64) {
	m.flushDurationSeconds.Observe(seconds)
}

// AddFlushBytes adds the byte size of a saved snapshot.
func (m *Metrics) AddFlushBytes(hostname string, bytes int) {
	m.flushBytesTotal.With(prometheus.Labels{hostnameLabel: hostname}).Add(float64(bytes))
}

// AddBackgroundGoroutines adds the number of goroutines attached by a particular background task.
func (m *Metrics) AddBackgroundGoroutines(taskType string) {
	m.backgroundGoroutinesTotal.With(prometheus.Labels{
		taskTypeLabel: taskType,
	}).Inc()
}

// RemoveBackgroundGoroutines removes the number of goroutines attached by a particular background task.
func (m *Metrics) RemoveBackgroundGoroutines(taskType string) {
	m.backgroundGoroutinesTotal.With(prometheus.Labels{
		taskTypeLabel: taskType,
	}).Dec()
}

// Registry returns the registry of this metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
