package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Principal and token label values.
const (
	PrincipalClient = "client"
	PrincipalUser   = "user"

	KindAccess     = "access"
	KindRefresh    = "refresh"
	KindValidation = "validation"

	ResultValid   = "valid"
	ResultInvalid = "invalid"
)

var (
	// Registry holds every tenantauth collector. It is separate from the
	// default registry so textfile exports only carry our series.
	Registry = prometheus.NewRegistry()

	TokensIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantauth_tokens_issued_total",
			Help: "Signed assertions issued, by principal and token kind.",
		},
		[]string{"principal", "kind"},
	)

	SignatureChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantauth_signature_checks_total",
			Help: "User nonce signature verifications, by result.",
		},
		[]string{"result"},
	)

	RefreshRotations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantauth_refresh_rotations_total",
			Help: "Refresh key rotations, by principal.",
		},
		[]string{"principal"},
	)
)

var initOnce sync.Once

// Init registers the collectors. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		Registry.MustRegister(
			TokensIssued,
			SignatureChecks,
			RefreshRotations,
			collectors.NewGoCollector(),
		)
	})
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
