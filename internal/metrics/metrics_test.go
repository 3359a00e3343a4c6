package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRegistersAllCollectors(t *testing.T) {
	m := New()
	require.NotNil(t, m.operationTotal)
	require.NotNil(t, m.operationDuration)
	require.NotNil(t, m.operationBytes)
	require.NotNil(t, m.retryTotal)
}

func TestObserveOperationIsNilSafe(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveOperation(OperationPut, nil, time.Millisecond)
		m.ObserveBytes(OperationGet, 1024)
		m.ObserveRetry(true)
	})
}

func TestObserveOperationRecordsOutcome(t *testing.T) {
	m := New()
	m.ObserveOperation(OperationPut, nil, 10*time.Millisecond)
	m.ObserveOperation(OperationPut, errors.New("boom"), 5*time.Millisecond)

	metricFamilies, err := m.registry.Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range metricFamilies {
		if mf.GetName() == "lamina_store_operations_total" {
			for _, metric := range mf.GetMetric() {
				total += metric.GetCounter().GetValue()
			}
		}
	}
	require.Equal(t, float64(2), total)
}

func TestServeExposesMetricsEndpoint(t *testing.T) {
	m := New()
	m.ObserveOperation(OperationGet, nil, time.Millisecond)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx, addr) }()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(fmt.Sprintf("http://%s/metrics", addr))
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())

	cancel()
	require.NoError(t, <-done)
}
