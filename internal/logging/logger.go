package logging

// #region imports
import (
	"io"
	stdlog "log"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// #endregion

// #region options

// Options configures the process-wide logger.
type Options struct {
	FilePath   string // empty = stdout only
	JSONFormat bool
	Level      string // logrus level name, defaults to info
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// #endregion

// #region setup

// Setup builds the service logger. Output goes to stdout and, when FilePath
// is set, to a size-rotated file. The stdlib logger is redirected to the same
// writer so hot-path log.Printf lines land in the rotated file too.
func Setup(opts Options) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if opts.JSONFormat {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var out io.Writer = os.Stdout
	if opts.FilePath != "" {
		os.MkdirAll(filepath.Dir(opts.FilePath), 0755)
		rotator := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotator)
	}
	logger.SetOutput(out)
	stdlog.SetOutput(out)

	return logger
}

// #endregion
