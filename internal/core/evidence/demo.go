package evidence

import (
	"fmt"

	"github.com/NdodaEnde/doc-processor/internal/models"
)

// DemoModeError is the status message stored when demo evidence replaces a
// failed extraction. Kept explicit so it is never confused with real output.
const DemoModeError = "DEMO MODE: Using mock data because API authentication failed"

// BuildDemo synthesizes two pages of two-line evidence per filename. It is
// used only when mock mode hits an auth-suspect failure and the demo
// fallback was explicitly enabled; batches carrying it are always flagged
// is_mock_data.
func BuildDemo(filenames []string) models.Evidence {
	demo := make(models.Evidence)
	for _, filename := range filenames {
		for page := 1; page <= 2; page++ {
			demo[Key(filename, page)] = []models.EvidenceRecord{
				{
					BBoxes:   [][]float64{{0.1, 0.1, 0.8, 0.05}},
					Captions: []string{fmt.Sprintf("Mock extracted text from page %d - line 1", page)},
				},
				{
					BBoxes:   [][]float64{{0.1, 0.2, 0.8, 0.05}},
					Captions: []string{fmt.Sprintf("Mock extracted text from page %d - line 2", page)},
				},
			}
		}
	}
	return demo
}
