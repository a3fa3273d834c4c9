package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSeverity(t *testing.T) {
	assert.Equal(t, "critical", NormalizeSeverity("CRITICAL"))
	assert.Equal(t, "high", NormalizeSeverity(" high "))
	assert.Equal(t, "medium", NormalizeSeverity("medium"))
	assert.Equal(t, "info", NormalizeSeverity("catastrophic"))
	assert.Equal(t, "info", NormalizeSeverity(""))
}

func TestNormalizeConfidence(t *testing.T) {
	assert.Equal(t, "low", NormalizeConfidence("Low"))
	assert.Equal(t, "medium", NormalizeConfidence("unsure"))
	assert.Equal(t, "medium", NormalizeConfidence(""))
}
