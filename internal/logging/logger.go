// Package logging настраивает logrus: свой формат строки и ротацию файла через lumberjack.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SystemName пишется в каждую строку журнала.
const SystemName = "assignment-desk"

// CustomFormatter выводит одну запись в строку: дата, время, ID записи,
// источник, уровень и сообщение с полями.
type CustomFormatter struct {
	SystemName string
}

func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	source := "unknown"
	if entry.HasCaller() {
		source = fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s | Time: %s | Entry ID: %s | System: %s | Event Source: %s | Event Type: %s | Message: %s",
		entry.Time.Format("2006-01-02"),
		entry.Time.Format("15:04:05"),
		uuid.NewString(),
		f.SystemName,
		source,
		strings.ToUpper(entry.Level.String()),
		entry.Message,
	)
	for k, v := range entry.Data {
		fmt.Fprintf(&b, " | %s=%v", k, v)
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// New создает логгер. Пустой file означает вывод в stdout.
func New(file, level string) (*logrus.Logger, error) {
	var out io.Writer = os.Stdout
	if file != "" {
		out = &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
	}
	return NewWithWriter(out, level)
}

// NewWithWriter создает логгер, пишущий в out.
func NewWithWriter(out io.Writer, level string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&CustomFormatter{SystemName: SystemName})
	logger.SetReportCaller(true)

	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger.SetLevel(lvl)
	return logger, nil
}
