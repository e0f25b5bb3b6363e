package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// nextFilename implements spec.md §6's recording-prefix rule (scenario
// S6): "<prefix>NNN.3es" with NNN the first free slot 000-999, unless
// overwrite is set, in which case it is always slot 000 regardless of
// what else exists.
func nextFilename(dir, prefix string, overwrite bool) (string, error) {
	if overwrite {
		return filepath.Join(dir, fmt.Sprintf("%s000.3es", prefix)), nil
	}
	for n := 0; n < 1000; n++ {
		name := filepath.Join(dir, fmt.Sprintf("%s%03d.3es", prefix, n))
		if _, err := os.Stat(name); os.IsNotExist(err) {
			return name, nil
		}
	}
	return "", fmt.Errorf("tesrec: no free file name for prefix %q (000-999 all taken)", prefix)
}
