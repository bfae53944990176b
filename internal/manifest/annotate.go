package manifest

import (
	"encoding/json"
	"fmt"
	"os"
)

// AnnotateIntegration records integration procedure outcomes on a manifest
// without disturbing its other fields. The first annotation lands under
// "integration_procedure"; later runs against the same manifest land under
// "integration_procedure_rerun1", "integration_procedure_rerun2", and so on,
// preserving the history of reruns.
func (s *Store) AnnotateIntegration(path string, outcomes map[string]string) error {
	return s.withLock(path, func() error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read manifest for annotation: %w", err)
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}

		key := "integration_procedure"
		if _, taken := doc[key]; taken {
			for n := 1; ; n++ {
				candidate := fmt.Sprintf("integration_procedure_rerun%d", n)
				if _, taken := doc[candidate]; !taken {
					key = candidate
					break
				}
			}
		}
		doc[key] = outcomes

		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("encode annotated manifest: %w", err)
		}
		return writeAtomic(path, out)
	})
}
