package registry

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/olla-project/framework/internal/core/ports"
)

// getEtcdTestEndpoints skips the test unless FRAMEWORK_TEST_ETCD_ENDPOINTS
// points at a reachable etcd cluster, following the teacher's
// integration-test skip idiom.
func getEtcdTestEndpoints(t *testing.T) []string {
	endpoints := os.Getenv("FRAMEWORK_TEST_ETCD_ENDPOINTS")
	if endpoints == "" {
		t.Skip("FRAMEWORK_TEST_ETCD_ENDPOINTS environment variable not set. " +
			"Set it to a comma-separated etcd endpoint list to run this test.")
	}
	return strings.Split(endpoints, ",")
}

// TestEtcdRegistry_Conformance runs the same behavioural suite as the
// in-memory registry against a live etcd cluster, proving the two
// backends are behaviorally indistinguishable (spec §4.1).
func TestEtcdRegistry_Conformance(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping etcd integration test in short mode")
	}
	endpoints := getEtcdTestEndpoints(t)

	conformanceSuite(t, func() ports.Registry {
		r, err := NewEtcdRegistry(EtcdConfig{
			Endpoints: endpoints,
			Namespace: "framework-test",
			TTL:       5 * time.Second,
		}, createTestLogger())
		if err != nil {
			t.Fatalf("NewEtcdRegistry failed: %v", err)
		}
		return r
	})
}
