package ports

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetricGameLabel(t *testing.T) {
	t.Parallel()

	for _, c := range []struct {
		raw      string
		expected string
	}{
		{raw: "", expected: "<none>"},
		{raw: "lol", expected: "lol"},
		{raw: "CS2", expected: "cs2"},
		{raw: "csgo", expected: "cs2"},
		{raw: "chess", expected: "<invalid>"},
	} {
		t.Run(c.raw, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, c.expected, metricGameLabel(c.raw))
		})
	}
}

func TestMetricsMiddlewareRecordsStatus(t *testing.T) {
	t.Parallel()

	var recorder *statusRecorder
	handler := buildMetricsMiddleware("teams")(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		recorder, ok = w.(*statusRecorder)
		require.True(t, ok)
		w.WriteHeader(http.StatusBadRequest)
	})

	req := httptest.NewRequest("GET", "/v1/chess/teams", nil)
	req.SetPathValue("game", "chess")
	w := httptest.NewRecorder()
	handler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, http.StatusBadRequest, recorder.statusCode)
}
