package testutils

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
)

// TestHelper bundles a test with a logger whose output is kept in memory and
// dumped only when the test fails.
type TestHelper struct {
	T      testing.TB
	Logger *logrus.Logger
	buf    bytes.Buffer
}

func NewTestHelper(t testing.TB) *TestHelper {
	h := &TestHelper{T: t}
	h.Logger = logrus.New()
	h.Logger.SetLevel(logrus.DebugLevel) // keep debug logs to trace task hand-offs
	h.Logger.SetOutput(&h.buf)
	h.Logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	t.Cleanup(func() {
		if t.Failed() {
			t.Logf("log output:\n%s", h.buf.String())
		}
	})
	return h
}

// Logs returns everything logged so far.
func (h *TestHelper) Logs() string {
	return h.buf.String()
}
