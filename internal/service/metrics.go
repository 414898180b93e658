package service

import (
	"github.com/prometheus/client_golang/prometheus"

	"aquanova-auth/internal/domain"
)

const resultOK = "ok"

// OTPRequests cuenta solicitudes de OTP por proposito y resultado.
var OTPRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "aquanova_otp_requests_total",
		Help: "Total number of OTP requests",
	},
	[]string{"purpose", "result"},
)

// OTPChecks cuenta verificaciones y consumos de codigos por flujo.
var OTPChecks = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "aquanova_otp_checks_total",
		Help: "Total number of OTP checks by flow",
	},
	[]string{"flow", "result"},
)

var Logins = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "aquanova_logins_total",
		Help: "Total number of login attempts",
	},
	[]string{"result"},
)

// RegisterMetrics registra las metricas del paquete en el registry dado.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(OTPRequests)
	reg.MustRegister(OTPChecks)
	reg.MustRegister(Logins)
}

func resultLabel(err error) string {
	if err == nil {
		return resultOK
	}
	return string(domain.KindOf(err))
}
