package utils

import (
	"context"
	"fmt"
	"os"
	"time"

	"guild-guardian/model"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel string

const (
	Info  LogLevel = "INFO"
	Warn  LogLevel = "WARN"
	Error LogLevel = "ERROR"
)

// NewLogger builds the process logger. format is "json" or "console".
func NewLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), lvl)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// AlertSender posts an alert embed to a channel.
type AlertSender interface {
	SendAlert(ctx context.Context, channelID string, alert model.Alert) error
}

func getColor(level LogLevel) int {
	switch level {
	case Info:
		return model.ColorGreen
	case Warn:
		return model.ColorOrange
	case Error:
		return model.ColorRed
	default:
		return model.ColorBlue
	}
}

func sendLog(ctx context.Context, sender AlertSender, channelID string, level LogLevel, module, operation, extraInfo string) error {
	if sender == nil || channelID == "" {
		return nil
	}
	alert := model.Alert{
		Title: string(level) + " Log",
		Color: getColor(level),
		Fields: []model.AlertField{
			{Name: "Module", Value: module},
			{Name: "Operation", Value: operation},
			{Name: "Details", Value: extraInfo},
		},
		Timestamp: time.Now(),
	}
	return sender.SendAlert(ctx, channelID, alert)
}

// LogInfo posts an operator log entry to the bot's log channel.
func LogInfo(ctx context.Context, sender AlertSender, channelID, module, operation, extraInfo string) error {
	return sendLog(ctx, sender, channelID, Info, module, operation, extraInfo)
}

func LogWarn(ctx context.Context, sender AlertSender, channelID, module, operation, extraInfo string) error {
	return sendLog(ctx, sender, channelID, Warn, module, operation, extraInfo)
}

func LogError(ctx context.Context, sender AlertSender, channelID, module, operation, extraInfo string) error {
	return sendLog(ctx, sender, channelID, Error, module, operation, extraInfo)
}
