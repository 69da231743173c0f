package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	logrus "github.com/sirupsen/logrus"
)

func TestSetupWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "editor.log")
	if err := Setup(path, "debug"); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() { logrus.SetOutput(os.Stderr) })

	logrus.WithField("stop_id", "S1").Debug("stop placed")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "stop_id=S1") {
		t.Errorf("log file = %q", data)
	}
	if logrus.GetLevel() != logrus.DebugLevel {
		t.Errorf("level = %s", logrus.GetLevel())
	}
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	if err := Setup("", "chatty"); err == nil {
		t.Error("Setup accepted an unknown level")
	}
}
