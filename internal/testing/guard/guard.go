// Package guard puts the process into test mode when imported by a test. In
// test mode the worker never dials SMTP and the UI defaults to Indonesian.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("AKADEMI_TEST_MODE") == "" {
			_ = os.Setenv("AKADEMI_TEST_MODE", "1")
		}
		if os.Getenv("APP_LANG") == "" {
			_ = os.Setenv("APP_LANG", "id")
		}
	})
}
