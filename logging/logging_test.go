package logging

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestNewLoggerConfig(t *testing.T) {
	conf := NewLoggerConfig()
	test.That(t, conf.Level.Level(), test.ShouldEqual, zapcore.InfoLevel)
	test.That(t, conf.Encoding, test.ShouldEqual, "console")
	test.That(t, conf.DisableStacktrace, test.ShouldBeTrue)
}

func TestNewLogger(t *testing.T) {
	logger, closer, err := NewLogger("test", Options{Debug: true})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, logger.Desugar().Core().Enabled(zapcore.DebugLevel), test.ShouldBeTrue)
	//nolint:errcheck
	closer()

	logger, closer, err = NewLogger("test", Options{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, logger.Desugar().Core().Enabled(zapcore.DebugLevel), test.ShouldBeFalse)
	//nolint:errcheck
	closer()
}

func TestNewLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gridmapper.log")
	logger, closer, err := NewLogger("gridmapper", Options{LogFile: path})
	test.That(t, err, test.ShouldBeNil)
	logger.Infow("applied scan", "beams", 3)
	test.That(t, closer(), test.ShouldBeNil)

	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, `"msg":"applied scan"`)
	test.That(t, string(contents), test.ShouldContainSubstring, `"beams":3`)
	test.That(t, string(contents), test.ShouldContainSubstring, `"logger":"gridmapper"`)
}
