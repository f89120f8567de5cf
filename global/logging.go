package global

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	maxLogSize = 2_500_000
	maxLogs    = 2
)

// rollingFileWriter appends to <dir>/<name>.log, rotating it to
// <name>-1.log (and shifting older archives up) once it outgrows
// maxLogSize. Archives beyond maxLogs are dropped.
type rollingFileWriter struct {
	dir  string
	name string
}

func newRollingFileWriter(dir string, name string) (rollingFileWriter, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return rollingFileWriter{}, err
	}
	if err := os.MkdirAll(absDir, 0750); err != nil {
		return rollingFileWriter{}, err
	}
	return rollingFileWriter{dir: absDir, name: name}, nil
}

func (w rollingFileWriter) mainPath() string {
	return filepath.Join(w.dir, w.name+".log")
}

func (w rollingFileWriter) archivePath(index int) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%d.log", w.name, index))
}

func (w rollingFileWriter) Write(b []byte) (int, error) {
	file, err := os.OpenFile(w.mainPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return 0, err
	}

	stats, err := file.Stat()
	if err != nil {
		file.Close()
		return 0, err
	}

	if stats.Size() < maxLogSize {
		defer file.Close()
		return file.Write(b)
	}
	file.Close()

	if err := w.rotate(); err != nil {
		return 0, err
	}
	file, err = os.OpenFile(w.mainPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	return file.Write(b)
}

// rotate shifts archives up by one index, oldest first so renames never
// collide, then moves the main log into slot 1.
func (w rollingFileWriter) rotate() error {
	if err := os.Remove(w.archivePath(maxLogs)); err != nil && !os.IsNotExist(err) {
		return err
	}
	for i := maxLogs - 1; i >= 1; i-- {
		if err := os.Rename(w.archivePath(i), w.archivePath(i+1)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return os.Rename(w.mainPath(), w.archivePath(1))
}

// InitLogging installs the global zerolog logger: console plus a rolling
// file in the configured log directory.
func InitLogging(config Config) {
	level := zerolog.InfoLevel
	if config.Debug {
		level = zerolog.DebugLevel
	}

	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}

	fileWriter, err := newRollingFileWriter(config.LogDir, "poke-env")
	if err != nil {
		log.Logger = zerolog.New(consoleWriter).With().Timestamp().Logger().Level(level)
		log.Err(err).Msg("could not open log dir, logging to console only")
		return
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(consoleWriter, fileWriter)).
		With().Timestamp().Logger().Level(level)
}
