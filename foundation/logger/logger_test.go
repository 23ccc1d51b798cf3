package logger_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardanlabs/utxochain/foundation/logger"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func Test_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "node.log")

	t.Log("Given the need to write the log to a file.")
	{
		log, err := logger.NewWithConfig(logger.Config{
			Service:   "NODE-TEST",
			Path:      path,
			MaxSizeMB: 1,
		})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the logger: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to construct the logger.", success)

		log.Infow("startup", "status", "testing")
		log.Sync()

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("\t%s\tShould create the log file: %s", failed, err)
		}
		t.Logf("\t%s\tShould create the log file.", success)

		line := strings.TrimSpace(string(data))
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("\t%s\tShould write JSON entries: %s", failed, err)
		}
		t.Logf("\t%s\tShould write JSON entries.", success)

		if entry["service"] != "NODE-TEST" || entry["msg"] != "startup" || entry["status"] != "testing" {
			t.Fatalf("\t%s\tShould carry the service and fields: %v", failed, entry)
		}
		t.Logf("\t%s\tShould carry the service and fields.", success)
	}
}
