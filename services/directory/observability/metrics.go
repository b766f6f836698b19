// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the directory
// service's messaging paths.
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal
// locking. All Metrics methods are nil-receiver safe so the messaging
// core can run without metrics in tests.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "appraiserlink"

// Subsystem for messaging metrics
const messagingSubsystem = "messaging"

// Channel label values for the messages-sent counter.
const (
	ChannelAuthenticated = "authenticated"
	ChannelPublic        = "public"
)

// MessagingMetrics holds all Prometheus metrics for messaging operations.
//
// # Fields
//
//   - MessagesSentTotal: Counter of sent messages by channel
//   - SendFailuresTotal: Counter of failed sends by channel and reason
//   - MessagesMarkedReadTotal: Counter of applied read transitions
//   - SendDurationSeconds: Histogram of end-to-end send latency
//   - ActiveSubscriptions: Gauge of live-update subscriptions
type MessagingMetrics struct {
	// MessagesSentTotal counts persisted messages.
	// Labels: channel (authenticated, public)
	MessagesSentTotal *prometheus.CounterVec

	// SendFailuresTotal counts rejected or failed sends.
	// Labels: channel, reason (validation, not_found, store)
	SendFailuresTotal *prometheus.CounterVec

	// MessagesMarkedReadTotal counts applied ReadAt transitions.
	// Skipped (already-read or misaddressed) messages are not counted.
	MessagesMarkedReadTotal prometheus.Counter

	// SendDurationSeconds measures send latency by channel.
	SendDurationSeconds *prometheus.HistogramVec

	// ActiveSubscriptions tracks currently open live-update
	// subscriptions.
	ActiveSubscriptions prometheus.Gauge
}

// NewMessagingMetrics creates and registers messaging metrics on the
// given registerer. Pass prometheus.DefaultRegisterer in production.
func NewMessagingMetrics(reg prometheus.Registerer) *MessagingMetrics {
	factory := promauto.With(reg)
	return &MessagingMetrics{
		MessagesSentTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: messagingSubsystem,
			Name:      "messages_sent_total",
			Help:      "Messages persisted, by channel.",
		}, []string{"channel"}),
		SendFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: messagingSubsystem,
			Name:      "send_failures_total",
			Help:      "Send attempts rejected or failed, by channel and reason.",
		}, []string{"channel", "reason"}),
		MessagesMarkedReadTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: messagingSubsystem,
			Name:      "messages_marked_read_total",
			Help:      "Applied read transitions (skipped messages excluded).",
		}),
		SendDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: messagingSubsystem,
			Name:      "send_duration_seconds",
			Help:      "End-to-end send latency, by channel.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
		ActiveSubscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: messagingSubsystem,
			Name:      "active_subscriptions",
			Help:      "Currently open live-update subscriptions.",
		}),
	}
}

// MessageSent records a successful send on the given channel.
func (m *MessagingMetrics) MessageSent(channel string, seconds float64) {
	if m == nil {
		return
	}
	m.MessagesSentTotal.WithLabelValues(channel).Inc()
	m.SendDurationSeconds.WithLabelValues(channel).Observe(seconds)
}

// SendFailed records a rejected or failed send.
func (m *MessagingMetrics) SendFailed(channel, reason string) {
	if m == nil {
		return
	}
	m.SendFailuresTotal.WithLabelValues(channel, reason).Inc()
}

// MarkedRead records n applied read transitions.
func (m *MessagingMetrics) MarkedRead(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.MessagesMarkedReadTotal.Add(float64(n))
}

// SubscriptionOpened increments the active-subscriptions gauge.
func (m *MessagingMetrics) SubscriptionOpened() {
	if m == nil {
		return
	}
	m.ActiveSubscriptions.Inc()
}

// SubscriptionClosed decrements the active-subscriptions gauge.
func (m *MessagingMetrics) SubscriptionClosed() {
	if m == nil {
		return
	}
	m.ActiveSubscriptions.Dec()
}
