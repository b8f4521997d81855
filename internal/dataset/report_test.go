package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `<!doctype html>
<html><head><title>Profile Report</title><style>.x{}</style></head>
<body>
<h1>Overview</h1>
<div class="alert alert-warning"><span>sensor_3</span> has 12.5% missing values</div>
<h2>Variables</h2>
<script>var h1 = "<h1>not a heading</h1>";</script>
<h2>  Correlations
</h2>
<p class="Warning">High correlation between sensor_1 and sensor_2</p>
</body></html>`

func TestSummarizeReport(t *testing.T) {
	s, err := SummarizeReport(sampleReport)
	require.NoError(t, err)

	assert.Equal(t, "Profile Report", s.Title)
	assert.Equal(t, []string{"Overview", "Variables", "Correlations"}, s.Sections)
	assert.Equal(t, []string{
		"sensor_3 has 12.5% missing values",
		"High correlation between sensor_1 and sensor_2",
	}, s.Alerts)
}

func TestSummarizeReport_TitleFallsBackToHeading(t *testing.T) {
	s, err := SummarizeReport("<h2>Dataset</h2><p>rows: 10</p>")
	require.NoError(t, err)
	assert.Equal(t, "Dataset", s.Title)
	assert.Empty(t, s.Alerts)
}
