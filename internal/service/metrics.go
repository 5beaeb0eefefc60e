package service

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blood_requests_created_total",
		Help: "Donation requests created",
	})
	requestTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "blood_request_transitions_total",
		Help: "Donation request status changes by target status",
	}, []string{"to"})
	paymentsRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blood_payments_recorded_total",
		Help: "Payments recorded from paid checkout sessions",
	})
	fundingAmount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blood_funding_amount_total",
		Help: "Sum of recorded payment amounts in major currency units",
	})
)

func init() {
	prometheus.MustRegister(requestsCreated, requestTransitions, paymentsRecorded, fundingAmount)
}
