package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	Register()
	Register()

	ForecastErrors.WithLabelValues("arima", "insufficient_history").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(ForecastErrors.WithLabelValues("arima", "insufficient_history")))

	PredictedPrice.WithLabelValues("005930", "ensemble").Set(75200)
	assert.Equal(t, 75200.0, testutil.ToFloat64(PredictedPrice.WithLabelValues("005930", "ensemble")))
}
