package hashlist

import (
	"os"
	"testing"

	"github.com/xxxsen/common/logger"
)

func TestMain(m *testing.M) {
	logger.Init("", "error", 0, 0, 0, true)
	os.Exit(m.Run())
}
