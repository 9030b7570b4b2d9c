package metrics

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brollup/coordinator/log"
)

func TestStartServesMetricsEndpoint(t *testing.T) {
	l := Start(log.DefaultLogger(), "127.0.0.1:0")
	require.NotNil(t, l)
	defer l.Close()

	resp, err := http.Get("http://" + l.Addr().String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "coordinator_session_stage")
}

func TestStartTwiceDoesNotPanicOnDoubleRegister(t *testing.T) {
	a := Start(log.DefaultLogger(), "127.0.0.1:0")
	require.NotNil(t, a)
	defer a.Close()

	b := Start(log.DefaultLogger(), "127.0.0.1:0")
	require.NotNil(t, b)
	defer b.Close()
}
