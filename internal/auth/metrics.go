package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var signIns = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "budgetbook",
		Subsystem: "auth",
		Name:      "sign_ins_total",
		Help:      "Sign-in attempts by method and result.",
	},
	[]string{"method", "result"},
)

var registrations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "budgetbook",
		Subsystem: "auth",
		Name:      "registrations_total",
		Help:      "Account registrations by method and result.",
	},
	[]string{"method", "result"},
)

func observeSignIn(method string, err error) {
	signIns.WithLabelValues(method, result(err)).Inc()
}

func observeRegistration(method string, err error) {
	registrations.WithLabelValues(method, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
