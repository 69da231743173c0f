package logger

import (
	"io"
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	logrus "github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger. With a file name the output
// goes through a rotating file, otherwise to stdout.
func Setup(file, level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if file != "" {
		out = &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 7,
			MaxAge:     7, // days
			Compress:   true,
		}
	}

	logrus.SetOutput(out)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	logrus.SetLevel(lvl)
	return nil
}

// Writer returns the destination of the standard logger, for request logging.
func Writer() io.Writer {
	return logrus.StandardLogger().Out
}
