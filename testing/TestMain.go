package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("NOMINA_TEST_MODE", "1")
		if os.Getenv("VOUCHER_STORAGE_DIR") == "" {
			_ = os.Setenv("VOUCHER_STORAGE_DIR", os.TempDir())
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
