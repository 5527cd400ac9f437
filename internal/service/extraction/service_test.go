package extraction

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medifast/claims-api/pkg/logger"
)

func newTestService() *Service {
	return NewService(logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard}))
}

func TestExtractIsDeterministic(t *testing.T) {
	svc := newTestService()

	first := svc.Extract("claim.pdf")
	second := svc.Extract("claim.pdf")
	assert.Equal(t, first, second)
}

func TestExtractSelectsByFileNameHash(t *testing.T) {
	svc := newTestService()

	cases := map[string]string{
		"invoice.jpg":           "John Smith",
		"scan_001.png":          "John Smith",
		"receipt.jpeg":          "Maria Garcia",
		"claim.pdf":             "David Wilson",
		"discharge-summary.pdf": "David Wilson",
	}

	for fileName, patient := range cases {
		data := svc.Extract(fileName)
		assert.Equal(t, patient, data.PatientName, "file %s", fileName)
	}
}

func TestExtractAlwaysYieldsKnownTemplate(t *testing.T) {
	svc := newTestService()
	known := map[string]bool{
		"John Smith":   true,
		"Maria Garcia": true,
		"David Wilson": true,
	}

	for i := 0; i < 50; i++ {
		data := svc.Extract(fmt.Sprintf("document-%d.pdf", i))
		require.True(t, known[data.PatientName], "unexpected template for document-%d.pdf", i)
		assert.Positive(t, data.ClaimAmount)
		assert.NotEmpty(t, data.HospitalName)
		assert.NotEmpty(t, data.ProcedureCodes)
	}
}

func TestTemplateIndexInRange(t *testing.T) {
	for _, name := range []string{"", "a", "claim.pdf", "日本語.pdf"} {
		idx := templateIndex(name)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, len(templates))
	}
}
