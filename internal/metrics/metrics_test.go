package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegister_Twice(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestRowsExtracted_CountsByResource(t *testing.T) {
	before := testutil.ToFloat64(RowsExtracted.WithLabelValues("videos"))
	RowsExtracted.WithLabelValues("videos").Add(3)
	require.Equal(t, before+3, testutil.ToFloat64(RowsExtracted.WithLabelValues("videos")))
}
